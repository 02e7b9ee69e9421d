package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ragdesk/internal/adapter/completions"
	"ragdesk/internal/assistant"
	"ragdesk/internal/usecase"
)

var (
	chatAssistant   string
	chatPrompt      string
	chatPreviousID  string
	chatImages      []string
	chatTable       string
	chatInteractive bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send a prompt to a QA assistant",
	Long: `Send a prompt to one of the QA assistants and print its formatted reply
followed by the response id. Pass the id back with --previous-response-id to
continue the conversation, or use --interactive to chain turns automatically.

Assistants: exploratory-testing, interview-preparation, summarizing, test-results

Examples:
  ragdesk chat -a exploratory-testing -p "Plan a session for the login page"
  ragdesk chat -a test-results -p "Summarize these failures" --image shot.jpg
  ragdesk chat -a interview-preparation --interactive`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatAssistant, "assistant", "a", "", "assistant to talk to (required)")
	chatCmd.Flags().StringVarP(&chatPrompt, "prompt", "p", "", "prompt text")
	chatCmd.Flags().StringVar(&chatPreviousID, "previous-response-id", "", "response id of the previous turn")
	chatCmd.Flags().StringSliceVar(&chatImages, "image", nil, "image file to attach (repeatable)")
	chatCmd.Flags().StringVar(&chatTable, "table", "", "table used for retrieved context (default from config)")
	chatCmd.Flags().BoolVarP(&chatInteractive, "interactive", "i", false, "keep reading prompts from stdin")
	chatCmd.MarkFlagRequired("assistant")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger()

	variant, err := assistant.ParseVariant(chatAssistant)
	if err != nil {
		return err
	}
	if !chatInteractive && strings.TrimSpace(chatPrompt) == "" {
		return fmt.Errorf("--prompt is required unless --interactive is set")
	}

	apiKey := os.Getenv(cfg.Assistant.APIKeyEnv)
	if apiKey == "" {
		return fmt.Errorf("environment variable %s is not set", cfg.Assistant.APIKeyEnv)
	}

	b, err := openBackend(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer b.Close()

	client := completions.NewClient(apiKey, cfg.Assistant.BaseURL, time.Duration(cfg.Assistant.TimeoutSecs)*time.Second, log)
	retriever := usecase.NewRetrieveUseCase(b.store, tableOrDefault(chatTable), log)
	chat := usecase.NewChatUseCase(client, retriever, cfg.Assistant.Model, cfg.Assistant.ContextResults, log)

	req := usecase.ChatRequest{
		Prompt:             chatPrompt,
		Variant:            variant,
		PreviousResponseID: chatPreviousID,
		ImagePaths:         chatImages,
	}

	if !chatInteractive {
		printReply(cmd.OutOrStdout(), chat.Send(cmd.Context(), req))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chatting with %s. Type \"exit\" to quit.\n", variant)
	if strings.TrimSpace(req.Prompt) != "" {
		reply := chat.Send(cmd.Context(), req)
		printReply(cmd.OutOrStdout(), reply)
		if reply.ResponseID != "" {
			req.PreviousResponseID = reply.ResponseID
		}
		req.ImagePaths = nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		req.Prompt = line
		reply := chat.Send(cmd.Context(), req)
		printReply(cmd.OutOrStdout(), reply)
		// A failed turn keeps the last good id so the thread survives.
		if reply.ResponseID != "" {
			req.PreviousResponseID = reply.ResponseID
		}
		req.ImagePaths = nil
		if cmd.Context().Err() != nil {
			break
		}
	}
	return scanner.Err()
}

func printReply(w io.Writer, reply usecase.ChatReply) {
	fmt.Fprintln(w, reply.Text)
	fmt.Fprintf(w, "\nresponse_id: %s\n", reply.ResponseID)
}
