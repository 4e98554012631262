package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askPaperID string
	askText    string
	askModel   string
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from a paper",
	Long: `Retrieve relevant passages of a paper and ask the chat model to answer from them.
When nothing relevant is found the model is not called.

Examples:
  paperchat ask -p <paper-id> -q "What problem does the paper solve?"
  paperchat ask -p <paper-id> -q "Which datasets?" --model gpt-4o --sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askPaperID, "paper", "p", "", "paper id (required)")
	askCmd.Flags().StringVarP(&askText, "query", "q", "", "question (required)")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "chat model (default from config)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the passages used as context")
	askCmd.MarkFlagRequired("paper")
	askCmd.MarkFlagRequired("query")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := requireIndex(); err != nil {
		return err
	}

	a, err := openApp(ctx, GetConfig(), GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.chatSession(askPaperID, askModel)
	if err != nil {
		return err
	}

	reply, err := session.Ask(ctx, askText)
	if err != nil {
		return err
	}

	fmt.Println(reply.Text)

	if askSources && reply.Result.Found {
		fmt.Printf("\nSources:\n")
		for _, c := range reply.Result.Chunks {
			fmt.Printf("  - chunk %d (score: %.4f)\n", c.Chunk.Index, c.Score)
		}
	}
	return nil
}
