package convert

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ragdesk/internal/domain"
)

const docxBody = "word/document.xml"

// readDOCX walks the paragraphs of word/document.xml. Heading and Title
// paragraph styles become heading elements.
func readDOCX(path string) (*domain.Document, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	for _, f := range archive.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return parseDOCXBody(rc)
	}
	return nil, fmt.Errorf("missing %s", docxBody)
}

func parseDOCXBody(r io.Reader) (*domain.Document, error) {
	decoder := xml.NewDecoder(r)
	doc := &domain.Document{}

	var (
		text   strings.Builder
		style  string
		inPara bool
		inText bool
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inPara = true
				style = ""
				text.Reset()
			case "pStyle":
				style = attr(t, "val")
			case "t":
				inText = true
			case "tab":
				if inPara {
					text.WriteByte('\t')
				}
			case "br", "cr":
				if inPara {
					text.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inPara = false
				if el, ok := docxElement(style, text.String()); ok {
					if el.Kind == domain.ElementHeading && doc.Title == "" && style == "Title" {
						doc.Title = el.Text
					}
					doc.Elements = append(doc.Elements, el)
				}
			}
		case xml.CharData:
			if inPara && inText {
				text.Write(t)
			}
		}
	}
	return doc, nil
}

func docxElement(style, text string) (domain.Element, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Element{}, false
	}
	if level := headingLevel(style); level > 0 {
		return domain.Element{Kind: domain.ElementHeading, Text: text, Level: level}, true
	}
	if strings.HasPrefix(style, "List") {
		return domain.Element{Kind: domain.ElementList, Text: text}, true
	}
	return domain.Element{Kind: domain.ElementParagraph, Text: text}, true
}

func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "Heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 {
		return 0
	}
	if level > 6 {
		level = 6
	}
	return level
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
