package assistant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const noFriendlyMessage = "No friendly message provided."

var (
	// ErrInvalidReply means the output text was not a JSON object.
	ErrInvalidReply = errors.New("reply is not valid JSON")
	// ErrIncompleteReply means a list entry lacks one of its required fields.
	ErrIncompleteReply = errors.New("reply is missing a required field")
)

type explorationReply struct {
	FriendlyMessage *string         `json:"friendly_message"`
	TestProcedure   json.RawMessage `json:"test_procedure"`
}

type interviewQuestion struct {
	QuestionNumber *json.Number `json:"question_number"`
	QuestionText   *string      `json:"question_text"`
	Category       *string      `json:"category"`
	Purpose        *string      `json:"purpose"`
}

type interviewReply struct {
	FriendlyMessage    *string             `json:"friendly_message"`
	InterviewQuestions []interviewQuestion `json:"interview_questions"`
	AdditionalNotes    string              `json:"additional_notes"`
}

type summaryReply struct {
	FriendlyMessage *string         `json:"friendly_message"`
	TestSummary     json.RawMessage `json:"test_summary"`
}

type resultRow struct {
	Area        *string `json:"area"`
	KeyFindings *string `json:"key_findings"`
	EffortIssue *string `json:"effort_issue"`
	Quality     *string `json:"quality"`
}

type resultsReply struct {
	FriendlyMessage *string     `json:"friendly_message"`
	ResultsTable    []resultRow `json:"results_table"`
	AdditionalNotes string      `json:"additional_notes"`
}

// FormatReply turns the assistant's JSON output into display text.
func FormatReply(v Variant, raw string) (string, error) {
	switch v {
	case ExploratoryTesting:
		var r explorationReply
		if err := decode(raw, &r); err != nil {
			return "", err
		}
		procedure, err := indent(r.TestProcedure, "{}")
		if err != nil {
			return "", err
		}
		return friendly(r.FriendlyMessage) + "\n\nProcedure:\n" + procedure, nil

	case InterviewPreparation:
		var r interviewReply
		if err := decode(raw, &r); err != nil {
			return "", err
		}
		var sb strings.Builder
		sb.WriteString(friendly(r.FriendlyMessage))
		sb.WriteString("\n\nInterview Questions:\n")
		for i, q := range r.InterviewQuestions {
			if q.QuestionNumber == nil || q.QuestionText == nil || q.Category == nil || q.Purpose == nil {
				return "", fmt.Errorf("%w: interview question %d", ErrIncompleteReply, i)
			}
			fmt.Fprintf(&sb, "Q%s: %s\n  - Category: %s\n  - Purpose: %s\n\n",
				q.QuestionNumber.String(), *q.QuestionText, *q.Category, *q.Purpose)
		}
		sb.WriteString("Additional Notes: ")
		sb.WriteString(r.AdditionalNotes)
		return sb.String(), nil

	case Summarizing:
		var r summaryReply
		if err := decode(raw, &r); err != nil {
			return "", err
		}
		summary, err := indent(r.TestSummary, "{}")
		if err != nil {
			return "", err
		}
		return friendly(r.FriendlyMessage) + "\n\nSummary:\n" + summary, nil

	case TestResults:
		var r resultsReply
		if err := decode(raw, &r); err != nil {
			return "", err
		}
		var sb strings.Builder
		sb.WriteString(friendly(r.FriendlyMessage))
		sb.WriteString("\n\nResults Table:\n")
		for i, row := range r.ResultsTable {
			if row.Area == nil || row.KeyFindings == nil || row.EffortIssue == nil || row.Quality == nil {
				return "", fmt.Errorf("%w: results row %d", ErrIncompleteReply, i)
			}
			fmt.Fprintf(&sb, "Area: %s\n  - Key Findings: %s\n  - Effort Issue: %s\n  - Quality: %s\n\n",
				*row.Area, *row.KeyFindings, *row.EffortIssue, *row.Quality)
		}
		sb.WriteString("Additional Notes: ")
		sb.WriteString(r.AdditionalNotes)
		return sb.String(), nil

	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
}

func decode(raw string, v any) error {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", ErrInvalidReply)
	}
	return nil
}

func friendly(msg *string) string {
	if msg == nil {
		return noFriendlyMessage
	}
	return *msg
}

// indent pretty-prints raw with two-space indentation, keeping key order.
func indent(raw json.RawMessage, missing string) (string, error) {
	if len(raw) == 0 {
		return missing, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return buf.String(), nil
}
