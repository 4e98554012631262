package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"paperchat/internal/usecase"
)

var (
	promptPaperID     string
	promptQuery       string
	promptContextFile string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Render the answer prompt without calling the model",
	Long: `Render the prompt that 'ask' would send to the chat model.

With --paper the context is retrieved from the index. With --context-file the
file contents are used verbatim as the context instead.

Examples:
  paperchat prompt -p <paper-id> -q "What is the main result?"
  paperchat prompt --context-file notes.txt -q "Summarize"`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptPaperID, "paper", "p", "", "paper id to retrieve context from")
	promptCmd.Flags().StringVarP(&promptQuery, "query", "q", "", "question (required)")
	promptCmd.Flags().StringVar(&promptContextFile, "context-file", "", "use this file as the context")
	promptCmd.MarkFlagRequired("query")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	if (promptPaperID == "") == (promptContextFile == "") {
		return fmt.Errorf("must specify exactly one of --paper or --context-file")
	}

	var contextText string
	if promptContextFile != "" {
		data, err := os.ReadFile(promptContextFile)
		if err != nil {
			return fmt.Errorf("failed to read context file: %w", err)
		}
		contextText = string(data)
	} else {
		ctx := cmd.Context()
		cfg := GetConfig()
		if err := requireIndex(); err != nil {
			return err
		}
		a, err := openApp(ctx, cfg, GetRootDir())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.retrieveUseCase().Retrieve(ctx, promptQuery, promptPaperID, cfg.Retrieve.TopK, cfg.Retrieve.Threshold)
		if err != nil {
			return fmt.Errorf("retrieval failed: %w", err)
		}
		if !res.Found {
			fmt.Fprintln(os.Stderr, "No relevant passages found; 'ask' would not call the model.")
			return nil
		}
		contextText = res.Context
	}

	prompt, err := usecase.RenderPrompt(promptQuery, contextText)
	if err != nil {
		return err
	}
	fmt.Println(prompt)
	return nil
}
