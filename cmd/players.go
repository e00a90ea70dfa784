package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var playersCmd = &cobra.Command{
	Use:   "players <hash>",
	Short: "Show a stored match's player scoreboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlayers,
}

func runPlayers(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	stats, err := db.GetPlayerStats(hash)
	if err != nil {
		return fmt.Errorf("load player stats: %w", err)
	}
	report.PrintPlayerTable(os.Stdout, stats)
	return nil
}
