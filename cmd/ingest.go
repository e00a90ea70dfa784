package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/pipeline"
	"github.com/pable/go-cs-ingest/internal/report"
	"github.com/pable/go-cs-ingest/internal/storage"
)

var ingestForce bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <payload.json>",
	Short: "Ingest a telemetry payload and store the repaired match",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest even when the payload is already stored")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	if !ingestForce {
		exists, err := db.MatchExists(hash)
		if err != nil {
			return fmt.Errorf("check match: %w", err)
		}
		if exists {
			fmt.Fprintf(os.Stdout, "Payload %s already stored - showing cached results.\n", hash[:12])
			return showByHash(db, hash)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := pipeline.New(cfg, newLogger()).Run(cmd.Context(), payload, path)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if err := db.InsertMatch(m); err != nil {
		return fmt.Errorf("store match: %w", err)
	}
	return showByHash(db, m.PayloadHash())
}

func showByHash(db *storage.DB, hash string) error {
	summary, err := db.GetSummary(hash)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}
	stats, err := db.GetPlayerStats(hash)
	if err != nil {
		return fmt.Errorf("load player stats: %w", err)
	}
	teams, err := db.GetTeamStats(hash)
	if err != nil {
		return fmt.Errorf("load team stats: %w", err)
	}

	report.PrintMatchSummary(os.Stdout, summary)
	report.PrintPlayerTable(os.Stdout, stats)
	if len(teams) > 0 {
		fmt.Fprintln(os.Stdout)
		report.PrintTeamTable(os.Stdout, teams)
	}
	return nil
}
