package model

// PlayerStats holds per-player counters accumulated over the sanitized
// stream, or estimated by the fallback path for degraded regions.
type PlayerStats struct {
	PayloadHash string
	SteamID64   uint64
	Name        string
	Team        Team

	Kills      int
	Assists    int
	Deaths     int
	Headshots  int
	Damage     int
	UtilityDmg int
	ShotsFired int
	Hits       int

	RoundsPlayed int

	// HitGroups counts damage events per hit group name ("head", "chest", ...).
	HitGroups map[string]int

	// Estimated marks rows whose counters are wholly or partly derived by
	// the fallback estimator rather than the sanitized stream. Collaborators
	// must never present estimated rows as authoritative.
	Estimated bool
}

func (s *PlayerStats) KDRatio() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

func (s *PlayerStats) HSPercent() float64 {
	if s.Kills == 0 {
		return 0
	}
	return float64(s.Headshots) / float64(s.Kills) * 100
}

func (s *PlayerStats) ADR() float64 {
	if s.RoundsPlayed == 0 {
		return 0
	}
	return float64(s.Damage) / float64(s.RoundsPlayed)
}

func (s *PlayerStats) Accuracy() float64 {
	if s.ShotsFired == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.ShotsFired) * 100
}

// TeamStats aggregates one side's counters across all gameplay rounds.
type TeamStats struct {
	Team      Team
	RoundsWon int
	Kills     int
	Deaths    int
	Damage    int
}

// MatchSummary is a lightweight record for list/show commands.
type MatchSummary struct {
	PayloadHash string
	RunID       string
	Source      string
	Schema      SchemaVersion
	IngestDate  string
	MapName     string
	CTScore     int
	TScore      int
	Rounds      int
	Events      int
	Degraded    bool
}
