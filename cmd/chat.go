package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var chatCmd = &cobra.Command{
	Use:   "chat <hash>",
	Short: "Show a stored match's chat transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	chat, err := db.GetChat(hash)
	if err != nil {
		return fmt.Errorf("load chat: %w", err)
	}
	report.PrintChatTable(os.Stdout, chat)
	return nil
}
