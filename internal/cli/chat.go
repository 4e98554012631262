package cli

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"paperchat/internal/tui"
)

var chatModel string

var chatCmd = &cobra.Command{
	Use:   "chat <paper-id>",
	Short: "Chat interactively with a paper",
	Long: `Open an interactive chat about one paper. The conversation is kept in memory
for the session only.

Commands inside the chat:
  /model <id>   switch the chat model
  /models       list configured models
  /reset        clear the conversation
  /quit         leave`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatModel, "model", "m", "", "chat model (default from config)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := GetConfig()

	if err := requireIndex(); err != nil {
		return err
	}

	// The alt screen owns the terminal; log lines would corrupt it.
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := openApp(ctx, cfg, GetRootDir())
	if err != nil {
		return err
	}
	defer a.Close()

	paper, err := a.papers.GetPaper(args[0])
	if err != nil {
		return err
	}
	session, err := a.chatSession(paper.ID, chatModel)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s (%s)", paper.OriginalFilename, paper.ID)
	p := tea.NewProgram(tui.New(ctx, session, title, cfg.Chat.Models), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
