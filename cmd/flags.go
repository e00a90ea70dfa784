package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var flagsCmd = &cobra.Command{
	Use:   "flags <hash>",
	Short: "Show a stored match's integrity flags",
	Args:  cobra.ExactArgs(1),
	RunE:  runFlags,
}

func runFlags(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	flags, err := db.GetFlags(hash)
	if err != nil {
		return fmt.Errorf("load flags: %w", err)
	}
	report.PrintFlagTable(os.Stdout, flags)
	return nil
}
