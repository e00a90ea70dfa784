package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var showHitGroups bool

var showCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "Show a stored match's scoreboard",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showHitGroups, "hitgroups", false, "include per-player hit group breakdowns")
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	if err := showByHash(db, hash); err != nil {
		return err
	}

	if showHitGroups {
		stats, err := db.GetPlayerStats(hash)
		if err != nil {
			return fmt.Errorf("load player stats: %w", err)
		}
		for _, s := range stats {
			fmt.Fprintf(os.Stdout, "\n%s\n", s.Name)
			report.PrintHitGroups(os.Stdout, s)
		}
	}
	return nil
}
