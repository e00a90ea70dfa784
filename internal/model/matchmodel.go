package model

// MatchModel is the aggregate root handed to presentation collaborators once
// ingestion completes. It exposes read accessors only; corrections require a
// new ingestion run, which produces a new MatchModel.
type MatchModel struct {
	runID       string
	payloadHash string
	source      string
	schema      SchemaVersion
	mapName     string
	ingestDate  string

	players     map[uint64]PlayerIdentity
	rounds      []RoundSpan
	timeline    *Timeline
	playerStats []PlayerStats
	teamStats   []TeamStats
	chat        []ChatMessage
	flags       []IntegrityFlag
	unprocessed []UnprocessedRecord
}

// MatchModelParams carries everything the pipeline assembled. The struct is
// consumed by NewMatchModel; callers must not retain or mutate its slices
// afterwards.
type MatchModelParams struct {
	RunID       string
	PayloadHash string
	Source      string
	Schema      SchemaVersion
	MapName     string
	IngestDate  string

	Players     map[uint64]PlayerIdentity
	Rounds      []RoundSpan
	Timeline    *Timeline
	PlayerStats []PlayerStats
	TeamStats   []TeamStats
	Chat        []ChatMessage
	Flags       []IntegrityFlag
	Unprocessed []UnprocessedRecord
}

// NewMatchModel seals pipeline output into an immutable model. A nil
// Timeline becomes an empty one so accessors never see nil.
func NewMatchModel(p MatchModelParams) *MatchModel {
	if p.Timeline == nil {
		p.Timeline = NewTimeline(nil)
	}
	if p.Players == nil {
		p.Players = map[uint64]PlayerIdentity{}
	}
	return &MatchModel{
		runID:       p.RunID,
		payloadHash: p.PayloadHash,
		source:      p.Source,
		schema:      p.Schema,
		mapName:     p.MapName,
		ingestDate:  p.IngestDate,
		players:     p.Players,
		rounds:      p.Rounds,
		timeline:    p.Timeline,
		playerStats: p.PlayerStats,
		teamStats:   p.TeamStats,
		chat:        p.Chat,
		flags:       p.Flags,
		unprocessed: p.Unprocessed,
	}
}

func (m *MatchModel) RunID() string         { return m.runID }
func (m *MatchModel) PayloadHash() string   { return m.payloadHash }
func (m *MatchModel) Source() string        { return m.source }
func (m *MatchModel) Schema() SchemaVersion { return m.schema }
func (m *MatchModel) MapName() string       { return m.mapName }
func (m *MatchModel) IngestDate() string    { return m.ingestDate }

// Player resolves a SteamID64 to its identity.
func (m *MatchModel) Player(id uint64) (PlayerIdentity, bool) {
	p, ok := m.players[id]
	return p, ok
}

// Players returns all known identities keyed by SteamID64.
func (m *MatchModel) Players() map[uint64]PlayerIdentity {
	out := make(map[uint64]PlayerIdentity, len(m.players))
	for id, p := range m.players {
		out[id] = p
	}
	return out
}

// Rounds returns all round spans (pseudo spans included) in order.
func (m *MatchModel) Rounds() []RoundSpan { return copySlice(m.rounds) }

// Timeline returns the replay timeline. Empty for estimated-only matches.
func (m *MatchModel) Timeline() *Timeline { return m.timeline }

// TimelineSlice returns up to limit timeline events of a round starting at
// fromTick.
func (m *MatchModel) TimelineSlice(round, fromTick, limit int) []CanonicalEvent {
	return m.timeline.EventsFrom(round, fromTick, limit)
}

// Stats returns per-player summary statistics, deterministically ordered.
func (m *MatchModel) Stats() []PlayerStats { return copySlice(m.playerStats) }

// TeamTotals returns per-team aggregates.
func (m *MatchModel) TeamTotals() []TeamStats { return copySlice(m.teamStats) }

// Chat returns the chat transcript in emission order.
func (m *MatchModel) Chat() []ChatMessage { return copySlice(m.chat) }

// Flags returns every integrity flag recorded during ingestion.
func (m *MatchModel) Flags() []IntegrityFlag { return copySlice(m.flags) }

// HasFlag reports whether any flag with the given code was recorded.
func (m *MatchModel) HasFlag(code FlagCode) bool {
	for _, f := range m.flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Degraded reports whether any statistic in the model is estimated or any
// round is marked degraded.
func (m *MatchModel) Degraded() bool {
	if m.HasFlag(FlagEstimated) || m.HasFlag(FlagSchemaUnrecognized) {
		return true
	}
	for _, r := range m.rounds {
		if r.Degraded {
			return true
		}
	}
	return false
}

// Unprocessed returns the side list of irreparable records, for audit.
func (m *MatchModel) Unprocessed() []UnprocessedRecord { return copySlice(m.unprocessed) }

// copySlice keeps every slice accessor safe to hand out: mutating the
// returned slice never reaches back into the model.
func copySlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Scoreboard derives the final CT/T score from round outcomes.
func (m *MatchModel) Scoreboard() (ctScore, tScore int) {
	for _, r := range m.rounds {
		if r.Pseudo {
			continue
		}
		switch r.Winner {
		case TeamCT:
			ctScore++
		case TeamT:
			tScore++
		}
	}
	return
}
