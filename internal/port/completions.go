package port

import (
	"context"
	"encoding/json"
)

// Completions sends one turn to a responses-style completions API.
type Completions interface {
	Create(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

type CompletionRequest struct {
	Model              string          `json:"model"`
	Input              []InputMessage  `json:"input"`
	Text               json.RawMessage `json:"text,omitempty"`
	PreviousResponseID string          `json:"previous_response_id,omitempty"`
}

// InputMessage carries either a plain string or a list of content parts.
type InputMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type CompletionResponse struct {
	ID   string
	Text string
}
