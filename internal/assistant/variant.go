// Package assistant holds the four fixed assistant profiles: their system
// prompts, response schemas, developer contexts and reply formatters.
package assistant

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownVariant = errors.New("unknown assistant")

type Variant int

const (
	ExploratoryTesting Variant = iota + 1
	InterviewPreparation
	Summarizing
	TestResults
)

// Variants lists every assistant in menu order.
func Variants() []Variant {
	return []Variant{ExploratoryTesting, InterviewPreparation, Summarizing, TestResults}
}

// String returns the display name.
func (v Variant) String() string {
	switch v {
	case ExploratoryTesting:
		return "Exploratory Testing"
	case InterviewPreparation:
		return "Interview preparation"
	case Summarizing:
		return "Summarizing"
	case TestResults:
		return "Test results"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ID returns the kebab-case identifier used on the command line and as the
// embedded file stem.
func (v Variant) ID() string {
	switch v {
	case ExploratoryTesting:
		return "exploratory-testing"
	case InterviewPreparation:
		return "interview-preparation"
	case Summarizing:
		return "summarizing"
	case TestResults:
		return "test-results"
	default:
		return ""
	}
}

func (v Variant) Valid() bool {
	return v.ID() != ""
}

// ParseVariant accepts a display name or an ID, case-insensitively.
func ParseVariant(s string) (Variant, error) {
	s = strings.TrimSpace(s)
	for _, v := range Variants() {
		if strings.EqualFold(s, v.String()) || strings.EqualFold(s, v.ID()) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}
