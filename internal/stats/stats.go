// Package stats aggregates per-player and per-team counters over the
// sanitized stream. Aggregation is deterministic: the same stream always
// yields the same rows in the same order.
package stats

import (
	"sort"
	"strings"

	"github.com/pable/go-cs-ingest/internal/model"
)

// utilityWeapons are the damage sources counted as utility damage.
var utilityWeapons = map[string]bool{
	"hegrenade":  true,
	"molotov":    true,
	"incendiary": true,
	"inferno":    true,
	"decoy":      true,
	"flashbang":  true,
}

// Aggregate builds the scoreboard from indexed events. Events excluded from
// replay still count when they carry a competitive round: a kill is a kill
// even when its tick was unreliable. Events with an unresolved participant
// contribute only the counters of the participants they do have.
func Aggregate(payloadHash string, events []model.CanonicalEvent, spans []model.RoundSpan, players map[uint64]*model.PlayerIdentity) ([]model.PlayerStats, []model.TeamStats) {
	rows := make(map[uint64]*model.PlayerStats)
	at := func(id uint64) *model.PlayerStats {
		if id == 0 {
			return nil
		}
		s, ok := rows[id]
		if !ok {
			s = &model.PlayerStats{
				PayloadHash: payloadHash,
				SteamID64:   id,
				HitGroups:   make(map[string]int),
			}
			rows[id] = s
		}
		return s
	}
	for id := range players {
		at(id)
	}

	teams := map[model.Team]*model.TeamStats{
		model.TeamT:  {Team: model.TeamT},
		model.TeamCT: {Team: model.TeamCT},
	}
	side := func(id uint64, round int, fallback model.Team) model.Team {
		if p, ok := players[id]; ok {
			if team, ok := p.TeamByRound[round]; ok {
				return team
			}
		}
		return fallback
	}
	teamAdd := func(team model.Team, f func(*model.TeamStats)) {
		if t, ok := teams[team]; ok {
			f(t)
		}
	}

	for _, ev := range events {
		if ev.Round <= 0 {
			continue
		}
		switch ev.Kind {
		case model.KindKill:
			if s := at(ev.Actor); s != nil {
				s.Kills++
				if ev.Headshot {
					s.Headshots++
				}
				teamAdd(side(ev.Actor, ev.Round, ev.ActorTeam), func(t *model.TeamStats) { t.Kills++ })
			}
			if s := at(ev.Target); s != nil {
				s.Deaths++
				teamAdd(side(ev.Target, ev.Round, ev.TargetTeam), func(t *model.TeamStats) { t.Deaths++ })
			}
			if s := at(ev.Assister); s != nil {
				s.Assists++
			}
		case model.KindDamage:
			if s := at(ev.Actor); s != nil {
				s.Damage += ev.Damage
				s.Hits++
				if ev.HitGroup != "" {
					s.HitGroups[ev.HitGroup]++
				}
				if isUtility(ev.Weapon) {
					s.UtilityDmg += ev.Damage
				}
				teamAdd(side(ev.Actor, ev.Round, ev.ActorTeam), func(t *model.TeamStats) { t.Damage += ev.Damage })
			}
		case model.KindWeaponFire:
			if s := at(ev.Actor); s != nil {
				s.ShotsFired++
			}
		}
	}

	played := 0
	for _, span := range spans {
		if span.Pseudo || span.Number <= 0 {
			continue
		}
		played++
		teamAdd(span.Winner, func(t *model.TeamStats) { t.RoundsWon++ })
	}

	out := make([]model.PlayerStats, 0, len(rows))
	for id, s := range rows {
		s.RoundsPlayed = played
		if p, ok := players[id]; ok {
			s.Name = p.Name
			s.Team = dominantTeam(p)
		}
		out = append(out, *s)
	}
	Sort(out)

	return out, []model.TeamStats{*teams[model.TeamCT], *teams[model.TeamT]}
}

// Sort orders rows by kills descending, SteamID64 ascending on ties.
func Sort(rows []model.PlayerStats) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Kills != rows[j].Kills {
			return rows[i].Kills > rows[j].Kills
		}
		return rows[i].SteamID64 < rows[j].SteamID64
	})
}

// Merge folds estimated rows into an aggregated scoreboard. Counters add
// up; any row touched by an estimate is itself marked estimated. Rows for
// players the aggregation never saw are appended.
func Merge(base, estimated []model.PlayerStats) []model.PlayerStats {
	index := make(map[uint64]int, len(base))
	for i, s := range base {
		index[s.SteamID64] = i
	}
	for _, est := range estimated {
		i, ok := index[est.SteamID64]
		if !ok {
			est.Estimated = true
			base = append(base, est)
			index[est.SteamID64] = len(base) - 1
			continue
		}
		s := &base[i]
		s.Kills += est.Kills
		s.Assists += est.Assists
		s.Deaths += est.Deaths
		s.Headshots += est.Headshots
		s.Damage += est.Damage
		s.UtilityDmg += est.UtilityDmg
		s.ShotsFired += est.ShotsFired
		s.Hits += est.Hits
		for hg, n := range est.HitGroups {
			if s.HitGroups == nil {
				s.HitGroups = make(map[string]int)
			}
			s.HitGroups[hg] += n
		}
		if s.Name == "" {
			s.Name = est.Name
		}
		s.Estimated = true
	}
	Sort(base)
	return base
}

// dominantTeam picks the side a player spent most rounds on; ties go to the
// roster-declared side.
func dominantTeam(p *model.PlayerIdentity) model.Team {
	counts := make(map[model.Team]int)
	for _, team := range p.TeamByRound {
		counts[team]++
	}
	best, bestN := p.Team, 0
	for _, team := range []model.Team{model.TeamCT, model.TeamT, model.TeamSpectators} {
		if counts[team] > bestN {
			best, bestN = team, counts[team]
		}
	}
	return best
}

func isUtility(weapon string) bool {
	return utilityWeapons[strings.TrimPrefix(weapon, "weapon_")]
}
