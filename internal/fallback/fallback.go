// Package fallback estimates match statistics from payloads the structured
// pipeline cannot carry: unrecognized schemas, and irreparable fragments of
// otherwise healthy matches. It scans raw text with the log-line patterns
// and accumulates whatever binds. Everything it produces is marked
// estimated; collaborators must never present it as authoritative.
package fallback

import (
	"sort"

	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/logline"
	"github.com/pable/go-cs-ingest/internal/model"
)

// Estimate is the fallback path's best-effort view of a payload.
type Estimate struct {
	Players map[uint64]*model.PlayerIdentity
	Stats   []model.PlayerStats
}

// EstimateMatch scans an entire raw payload. Used when schema detection
// finds nothing recognizable but the payload is still well-formed.
func EstimateMatch(raw []byte, sink *diag.Sink) *Estimate {
	est := estimateText(string(raw))
	sink.Flag(model.FlagEstimated,
		"statistics estimated by raw text scan, not a sanitized stream")
	return est
}

// EstimateRecords scans the irreparable records set aside during repair.
// The result supplements, never replaces, the aggregated statistics for
// degraded rounds.
func EstimateRecords(records []model.UnprocessedRecord, sink *diag.Sink) *Estimate {
	var text string
	for _, rec := range records {
		text += rec.Raw + "\n"
	}
	est := estimateText(text)
	if len(est.Stats) > 0 {
		sink.Flag(model.FlagEstimated,
			"statistics supplemented from irreparable records")
	}
	return est
}

func estimateText(text string) *Estimate {
	est := &Estimate{Players: make(map[uint64]*model.PlayerIdentity)}

	for _, info := range logline.AllInfos(text) {
		if _, ok := est.Players[info.SteamID64]; !ok {
			est.Players[info.SteamID64] = &model.PlayerIdentity{
				SteamID64: info.SteamID64,
				Name:      info.Name,
			}
		}
	}

	counters := make(map[uint64]*model.PlayerStats)
	at := func(id uint64) *model.PlayerStats {
		if id == 0 {
			return nil
		}
		s, ok := counters[id]
		if !ok {
			s = &model.PlayerStats{
				SteamID64: id,
				HitGroups: make(map[string]int),
				Estimated: true,
			}
			if p, known := est.Players[id]; known {
				s.Name = p.Name
			}
			counters[id] = s
		}
		return s
	}

	for _, fire := range logline.AllFires(text) {
		if s := at(fire.Shooter); s != nil {
			s.ShotsFired++
		}
	}
	for _, hurt := range logline.AllHurts(text) {
		if s := at(hurt.Actor); s != nil {
			s.Hits++
			s.Damage += hurt.Damage
			s.HitGroups[model.HitGroupName(hurt.HitGroup)]++
			if hurt.HitGroup == 1 {
				s.Headshots++
			}
		}
		if s := at(hurt.Target); s != nil {
			s.Deaths++
		}
	}

	est.Stats = make([]model.PlayerStats, 0, len(counters))
	for _, s := range counters {
		est.Stats = append(est.Stats, *s)
	}
	sort.Slice(est.Stats, func(i, j int) bool {
		return est.Stats[i].SteamID64 < est.Stats[j].SteamID64
	})
	return est
}
