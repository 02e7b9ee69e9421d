package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"ragdesk/internal/adapter/completions"
	"ragdesk/internal/assistant"
	"ragdesk/internal/port"
)

// DefaultChatModel is the completions model used when none is configured.
const DefaultChatModel = "gpt-4o"

// ChatRequest is one user turn.
type ChatRequest struct {
	Prompt             string
	Variant            assistant.Variant
	PreviousResponseID string
	ImagePaths         []string
}

// ChatReply is the display text of a turn and the id that chains the next
// turn. ResponseID is empty whenever Text describes a failure.
type ChatReply struct {
	Text       string
	ResponseID string
}

// ChatUseCase sends prompts to the assistants.
type ChatUseCase struct {
	client    port.Completions
	retriever *RetrieveUseCase
	model     string
	k         int
	logger    *zap.Logger
}

// NewChatUseCase creates a new chat use case. retriever supplies context for
// the assistants that need it and may be nil.
func NewChatUseCase(client port.Completions, retriever *RetrieveUseCase, model string, k int, logger *zap.Logger) *ChatUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if model == "" {
		model = DefaultChatModel
	}
	if k <= 0 {
		k = DefaultContextResults
	}
	return &ChatUseCase{
		client:    client,
		retriever: retriever,
		model:     model,
		k:         k,
		logger:    logger,
	}
}

// Send runs one turn. It never fails: errors become the reply text.
func (u *ChatUseCase) Send(ctx context.Context, req ChatRequest) ChatReply {
	profile, err := assistant.ProfileFor(req.Variant)
	if err != nil {
		u.logger.Error("unknown assistant", zap.Int("variant", int(req.Variant)))
		return ChatReply{Text: "Unknown assistant."}
	}
	developer, err := assistant.DeveloperContext(req.Variant)
	if err != nil {
		u.logger.Error("failed to load developer context", zap.Error(err))
		return ChatReply{Text: fmt.Sprintf("Error: %v", err)}
	}

	input := req.Prompt
	if profile.RequiresContext && u.retriever != nil {
		if retrieved := u.retriever.Context(ctx, req.Prompt, u.k); retrieved != "" {
			input = retrieved + "\n\n" + req.Prompt
		}
	}

	content := []port.ContentPart{{Type: "input_text", Text: input}}
	for _, path := range req.ImagePaths {
		data, err := os.ReadFile(path)
		if err != nil {
			u.logger.Warn("failed to read image", zap.String("path", path), zap.Error(err))
			return ChatReply{Text: fmt.Sprintf("Error reading image %s: %v", path, err)}
		}
		content = append(content, port.ContentPart{
			Type:     "input_image",
			ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data),
		})
	}

	resp, err := u.client.Create(ctx, port.CompletionRequest{
		Model: u.model,
		Input: []port.InputMessage{
			{Role: "system", Content: profile.System},
			{Role: "developer", Content: developer},
			{Role: "user", Content: content},
		},
		Text:               profile.Format,
		PreviousResponseID: req.PreviousResponseID,
	})
	if err != nil {
		return ChatReply{Text: u.describeError(err)}
	}

	text, err := assistant.FormatReply(req.Variant, resp.Text)
	switch {
	case errors.Is(err, assistant.ErrInvalidReply):
		u.logger.Warn("error parsing the JSON response", zap.Error(err))
		return ChatReply{Text: "Error parsing the JSON response."}
	case err != nil:
		u.logger.Warn("error extracting the assistant response", zap.Error(err))
		return ChatReply{Text: "Error extracting the assistant response."}
	}
	return ChatReply{Text: text, ResponseID: resp.ID}
}

func (u *ChatUseCase) describeError(err error) string {
	var apiErr *completions.APIError
	switch {
	case errors.As(err, &apiErr):
		u.logger.Warn("completions request rejected", zap.Int("status", apiErr.StatusCode), zap.String("body", apiErr.Body))
		return fmt.Sprintf("Error: %d - %s", apiErr.StatusCode, apiErr.Body)
	case errors.Is(err, completions.ErrMalformedResponse):
		u.logger.Warn("error extracting the assistant response", zap.Error(err))
		return "Error extracting the assistant response."
	default:
		u.logger.Error("completions request failed", zap.Error(err))
		return fmt.Sprintf("Error: %v", err)
	}
}
