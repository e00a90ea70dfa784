// Package pipeline orchestrates one ingestion run: detect, normalize,
// repair, index, reconstruct, aggregate. Structural parse failure is the
// only fatal outcome; every other defect degrades the match into flags,
// exclusions and estimates but still yields a usable model.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pable/go-cs-ingest/internal/config"
	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/fallback"
	"github.com/pable/go-cs-ingest/internal/model"
	"github.com/pable/go-cs-ingest/internal/normalize"
	"github.com/pable/go-cs-ingest/internal/replay"
	"github.com/pable/go-cs-ingest/internal/rounds"
	"github.com/pable/go-cs-ingest/internal/sanitize"
	"github.com/pable/go-cs-ingest/internal/schema"
	"github.com/pable/go-cs-ingest/internal/stats"
)

// Pipeline runs ingestions. Safe for concurrent use: each run owns its own
// diagnostics sink and intermediate state.
type Pipeline struct {
	cfg *config.Config
	log zerolog.Logger
}

// New returns a Pipeline with the given policy and base logger.
func New(cfg *config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, log: log}
}

// Result pairs a finished model with its error for the async API.
type Result struct {
	Model *model.MatchModel
	Err   error
}

// Run ingests one payload. source is a provenance note (usually the input
// path). The returned model is nil only on structural parse failure or
// cancellation.
func (p *Pipeline) Run(ctx context.Context, payload []byte, source string) (*model.MatchModel, error) {
	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	runID := uuid.NewString()

	log := p.log.With().Str("run_id", runID).Str("source", source).Logger()
	sink := diag.New(log)

	version, root, err := schema.Detect(payload)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", source, err)
	}
	log.Info().Str("schema", version.String()).Int("bytes", len(payload)).Msg("payload detected")

	params := model.MatchModelParams{
		RunID:       runID,
		PayloadHash: hash,
		Source:      source,
		Schema:      version,
		IngestDate:  time.Now().UTC().Format(time.RFC3339),
	}

	if version == model.SchemaUnknown {
		return p.estimateOnly(payload, params, sink), nil
	}

	norm, err := normalize.Normalize(version, root, sink)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repaired := sanitize.Run(p.cfg, norm.Events, norm.Players, sink)
	unprocessed := mergeUnprocessed(norm.Unprocessed, repaired.Unprocessed)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans := rounds.Index(p.cfg, repaired.Events, norm.DeclaredRounds, unprocessed, norm.Players, sink)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeline := replay.Reconstruct(repaired.Events, spans)
	scoreboard, teams := stats.Aggregate(hash, repaired.Events, spans, norm.Players)

	if version == model.SchemaLegacy {
		// Log-dump lines are regex-scraped; nothing derived from them is
		// authoritative. The numbers survive as estimates and the replay
		// timeline stays empty.
		sink.Flag(model.FlagEstimated, "log-dump statistics are regex-derived estimates")
		for i := range scoreboard {
			scoreboard[i].Estimated = true
		}
		timeline = model.NewTimeline(nil)
	}

	if len(unprocessed) > 0 {
		est := fallback.EstimateRecords(unprocessed, sink)
		scoreboard = stats.Merge(scoreboard, est.Stats)
		stampHash(scoreboard, hash)
	}

	params.MapName = norm.MapName
	params.Players = freezePlayers(norm.Players)
	params.Rounds = spans
	params.Timeline = timeline
	params.PlayerStats = scoreboard
	params.TeamStats = teams
	params.Chat = transcript(repaired.Events, norm.Players)
	params.Unprocessed = unprocessed
	params.Flags = sink.Flags()

	m := model.NewMatchModel(params)
	ct, t := m.Scoreboard()
	log.Info().
		Int("rounds", len(spans)).
		Int("events", timeline.Len()).
		Int("flags", len(params.Flags)).
		Str("score", fmt.Sprintf("%d:%d", ct, t)).
		Bool("degraded", m.Degraded()).
		Msg("ingestion complete")
	return m, nil
}

// RunAsync runs the ingestion on its own goroutine and delivers the result
// on the returned channel. The channel is buffered; the result is never
// lost to a slow receiver.
func (p *Pipeline) RunAsync(ctx context.Context, payload []byte, source string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		m, err := p.Run(ctx, payload, source)
		ch <- Result{Model: m, Err: err}
	}()
	return ch
}

// estimateOnly is the path for well-formed payloads of no recognizable
// generation: an estimated scoreboard, no timeline, no rounds.
func (p *Pipeline) estimateOnly(payload []byte, params model.MatchModelParams, sink *diag.Sink) *model.MatchModel {
	sink.Flag(model.FlagSchemaUnrecognized, "no known generation signature matched")
	est := fallback.EstimateMatch(payload, sink)
	stampHash(est.Stats, params.PayloadHash)

	params.Players = freezePlayers(est.Players)
	params.PlayerStats = est.Stats
	params.Flags = sink.Flags()
	return model.NewMatchModel(params)
}

func stampHash(rows []model.PlayerStats, hash string) {
	for i := range rows {
		rows[i].PayloadHash = hash
	}
}

func freezePlayers(players map[uint64]*model.PlayerIdentity) map[uint64]model.PlayerIdentity {
	out := make(map[uint64]model.PlayerIdentity, len(players))
	for id, p := range players {
		out[id] = *p
	}
	return out
}

// transcript pulls the chat lines out of the indexed stream.
func transcript(events []model.CanonicalEvent, players map[uint64]*model.PlayerIdentity) []model.ChatMessage {
	var chat []model.ChatMessage
	for _, ev := range events {
		if ev.Kind != model.KindChat {
			continue
		}
		msg := model.ChatMessage{
			Tick:      ev.Tick,
			Round:     ev.Round,
			SteamID64: ev.Actor,
			Message:   ev.Message,
			TeamChat:  ev.TeamChat,
		}
		if p, ok := players[ev.Actor]; ok {
			msg.Name = p.Name
		}
		chat = append(chat, msg)
	}
	return chat
}

func mergeUnprocessed(a, b []model.UnprocessedRecord) []model.UnprocessedRecord {
	out := append(append([]model.UnprocessedRecord{}, a...), b...)
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
