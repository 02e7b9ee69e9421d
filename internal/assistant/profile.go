package assistant

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.txt schemas/*.json context/*
var files embed.FS

// Profile is the static configuration of one assistant.
type Profile struct {
	Variant Variant
	System  string
	// Format is sent verbatim as the request's "text" field.
	Format json.RawMessage
	// RequiresContext makes the chat turn prepend retrieved chunks.
	RequiresContext bool
}

func stem(v Variant) string {
	return strings.ReplaceAll(v.ID(), "-", "_")
}

func ProfileFor(v Variant) (Profile, error) {
	if !v.Valid() {
		return Profile{}, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}

	system, err := files.ReadFile("prompts/" + stem(v) + ".txt")
	if err != nil {
		return Profile{}, err
	}
	format, err := files.ReadFile("schemas/" + stem(v) + ".json")
	if err != nil {
		return Profile{}, err
	}
	if !json.Valid(format) {
		return Profile{}, fmt.Errorf("schema for %s is not valid JSON", v)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, format); err != nil {
		return Profile{}, err
	}

	return Profile{
		Variant:         v,
		System:          string(system),
		Format:          compact.Bytes(),
		RequiresContext: v == ExploratoryTesting || v == InterviewPreparation,
	}, nil
}

// SessionInfo describes the exploratory test session handed to the
// exploratory testing assistant.
type SessionInfo struct {
	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	SessionName        string `json:"session_name"`
	TestObject         string `json:"test_object"`
	TestObjective      string `json:"test_objective"`
	Introduction       string `json:"introduction"`
	Focus              string `json:"focus"`
}

var sessionTemplate = template.Must(template.ParseFS(files, "context/session.tmpl"))

func DefaultSession() (SessionInfo, error) {
	var info SessionInfo
	data, err := files.ReadFile("context/session.json")
	if err != nil {
		return info, err
	}
	err = json.Unmarshal(data, &info)
	return info, err
}

// RenderSession formats info as the exploratory testing developer message.
func RenderSession(info SessionInfo) (string, error) {
	var buf bytes.Buffer
	if err := sessionTemplate.Execute(&buf, info); err != nil {
		return "", fmt.Errorf("render session: %w", err)
	}
	return buf.String(), nil
}

// DeveloperContext returns the developer message for v: the session block
// for exploratory testing, the test plan for interview preparation and the
// test report for the other two.
func DeveloperContext(v Variant) (string, error) {
	switch v {
	case ExploratoryTesting:
		info, err := DefaultSession()
		if err != nil {
			return "", err
		}
		return RenderSession(info)
	case InterviewPreparation:
		return readContext("context/test_plan.json")
	case Summarizing, TestResults:
		return readContext("context/report.txt")
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
}

func readContext(name string) (string, error) {
	data, err := files.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
