package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var roundsCmd = &cobra.Command{
	Use:   "rounds <hash>",
	Short: "Show a stored match's round index",
	Args:  cobra.ExactArgs(1),
	RunE:  runRounds,
}

func runRounds(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	spans, err := db.GetRoundSpans(hash)
	if err != nil {
		return fmt.Errorf("load round spans: %w", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	report.PrintRoundTable(os.Stdout, spans, cfg.TicksPerSecond)
	return nil
}
