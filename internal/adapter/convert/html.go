package convert

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ragdesk/internal/domain"
)

var skippedTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Head:     true,
}

var blockTags = map[atom.Atom]domain.ElementKind{
	atom.P:          domain.ElementParagraph,
	atom.Blockquote: domain.ElementParagraph,
	atom.Figcaption: domain.ElementParagraph,
	atom.Dt:         domain.ElementParagraph,
	atom.Dd:         domain.ElementParagraph,
	atom.Td:         domain.ElementParagraph,
	atom.Th:         domain.ElementParagraph,
	atom.Li:         domain.ElementList,
	atom.Pre:        domain.ElementCode,
}

var headingTags = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3,
	atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// ParseHTML extracts the title and the text of block elements. Navigation,
// footers and scripts are dropped.
func ParseHTML(body []byte) (*domain.Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	p := &htmlParser{doc: &domain.Document{}}
	p.doc.Title = findTitle(root)
	p.traverse(root)
	p.flushLoose()
	return p.doc, nil
}

type htmlParser struct {
	doc   *domain.Document
	loose strings.Builder
}

func (p *htmlParser) traverse(n *html.Node) {
	if n.Type == html.ElementNode {
		if skippedTags[n.DataAtom] {
			return
		}
		if level, ok := headingTags[n.DataAtom]; ok {
			p.emit(domain.ElementHeading, nodeText(n), level)
			return
		}
		if kind, ok := blockTags[n.DataAtom]; ok {
			text := nodeText(n)
			if kind == domain.ElementCode {
				text = rawText(n)
			}
			p.emit(kind, text, 0)
			return
		}
		if n.DataAtom == atom.Br {
			p.loose.WriteByte('\n')
		}
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			if p.loose.Len() > 0 {
				p.loose.WriteByte(' ')
			}
			p.loose.WriteString(t)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.traverse(c)
	}
}

func (p *htmlParser) emit(kind domain.ElementKind, text string, level int) {
	p.flushLoose()
	if text == "" {
		return
	}
	p.doc.Elements = append(p.doc.Elements, domain.Element{Kind: kind, Text: text, Level: level})
}

func (p *htmlParser) flushLoose() {
	text := strings.TrimSpace(p.loose.String())
	p.loose.Reset()
	if text == "" {
		return
	}
	p.doc.Elements = append(p.doc.Elements, domain.Element{Kind: domain.ElementParagraph, Text: text})
}

// nodeText collapses the whitespace of all visible text below n.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedTags[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func rawText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Trim(sb.String(), "\n")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		return nodeText(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
