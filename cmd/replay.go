package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/report"
)

var (
	replayRound int
	replayFrom  int
	replayLimit int
)

var replayCmd = &cobra.Command{
	Use:   "replay <hash>",
	Short: "Step through a stored match's timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&replayRound, "round", 1, "round number to replay")
	replayCmd.Flags().IntVar(&replayFrom, "from-tick", 0, "start at the first event at or after this tick")
	replayCmd.Flags().IntVar(&replayLimit, "limit", 0, "cap the number of events shown (0 = all)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	timeline, err := db.GetTimeline(hash)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	events := timeline.EventsFrom(replayRound, replayFrom, replayLimit)
	if len(events) == 0 {
		fmt.Fprintf(os.Stdout, "no events in round %d from tick %d\n", replayRound, replayFrom)
		return nil
	}
	players, err := db.GetPlayers(hash)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	report.PrintTimeline(os.Stdout, events, players)
	return nil
}
