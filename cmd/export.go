package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pable/go-cs-ingest/internal/model"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <hash>",
	Short: "Export a stored match as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
}

// exportedMatch is the stable JSON shape downstream tooling consumes.
type exportedMatch struct {
	RunID       string                    `json:"run_id"`
	PayloadHash string                    `json:"payload_hash"`
	Source      string                    `json:"source"`
	Schema      string                    `json:"schema"`
	IngestDate  string                    `json:"ingest_date"`
	MapName     string                    `json:"map_name"`
	CTScore     int                       `json:"ct_score"`
	TScore      int                       `json:"t_score"`
	Degraded    bool                      `json:"degraded"`
	Players     []exportedPlayer          `json:"players"`
	Rounds      []model.RoundSpan         `json:"rounds"`
	PlayerStats []model.PlayerStats       `json:"player_stats"`
	TeamStats   []model.TeamStats         `json:"team_stats"`
	Chat        []model.ChatMessage       `json:"chat,omitempty"`
	Flags       []model.IntegrityFlag     `json:"integrity_flags,omitempty"`
	Unprocessed []model.UnprocessedRecord `json:"unprocessed,omitempty"`
	Timeline    []exportedRound           `json:"timeline"`
}

type exportedPlayer struct {
	SteamID64 uint64 `json:"steam_id64"`
	Name      string `json:"name"`
	Team      string `json:"team"`
}

type exportedRound struct {
	Round  int                    `json:"round"`
	Label  string                 `json:"label"`
	Events []model.CanonicalEvent `json:"events"`
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	hash, err := resolveHash(db, args[0])
	if err != nil {
		return err
	}
	m, err := db.LoadModel(hash)
	if err != nil {
		return fmt.Errorf("load match: %w", err)
	}

	ct, t := m.Scoreboard()
	doc := exportedMatch{
		RunID:       m.RunID(),
		PayloadHash: m.PayloadHash(),
		Source:      m.Source(),
		Schema:      m.Schema().String(),
		IngestDate:  m.IngestDate(),
		MapName:     m.MapName(),
		CTScore:     ct,
		TScore:      t,
		Degraded:    m.Degraded(),
		Rounds:      m.Rounds(),
		PlayerStats: m.Stats(),
		TeamStats:   m.TeamTotals(),
		Chat:        m.Chat(),
		Flags:       m.Flags(),
		Unprocessed: m.Unprocessed(),
	}
	for _, p := range m.Players() {
		doc.Players = append(doc.Players, exportedPlayer{
			SteamID64: p.SteamID64,
			Name:      p.Name,
			Team:      p.Team.String(),
		})
	}
	sort.Slice(doc.Players, func(i, j int) bool {
		return doc.Players[i].SteamID64 < doc.Players[j].SteamID64
	})
	for _, span := range m.Timeline().Rounds() {
		events, _ := m.Timeline().Round(span.Number)
		doc.Timeline = append(doc.Timeline, exportedRound{
			Round:  span.Number,
			Label:  span.Label,
			Events: events,
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode match: %w", err)
	}
	out = append(out, '\n')

	if exportOut == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(exportOut, out, 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(os.Stdout, "exported %s to %s\n", hash[:12], exportOut)
	return nil
}
