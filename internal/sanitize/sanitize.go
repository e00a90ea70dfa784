// Package sanitize repairs the canonical event stream before indexing:
// out-of-range values are clamped, missing identities are inferred where a
// single candidate exists, and ordering violations are either locally
// re-sorted or excluded. Every intervention leaves an integrity flag; the
// stream that leaves this stage is sorted by (tick, seq) and safe for the
// round indexer.
package sanitize

import (
	"fmt"
	"sort"

	"github.com/pable/go-cs-ingest/internal/config"
	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
)

// Outcome is the repaired stream plus the records repair gave up on.
type Outcome struct {
	Events      []model.CanonicalEvent
	Unprocessed []model.UnprocessedRecord
}

// Run repairs events in place and returns the sorted, filtered stream.
// players is consulted (not modified) when inferring identities.
func Run(cfg *config.Config, events []model.CanonicalEvent, players map[uint64]*model.PlayerIdentity, sink *diag.Sink) Outcome {
	for i := range events {
		repairValues(cfg, &events[i], sink)
	}

	markOrderViolations(cfg, events, sink)

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Tick != events[j].Tick {
			return events[i].Tick < events[j].Tick
		}
		return events[i].Seq < events[j].Seq
	})

	inferIdentities(cfg, events, players, sink)

	return dropIrreparable(events, sink)
}

// repairValues clamps out-of-range fields on one event.
func repairValues(cfg *config.Config, ev *model.CanonicalEvent, sink *diag.Sink) {
	if ev.Tick < 0 {
		sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, ev.Seq,
			fmt.Sprintf("negative tick %d clamped to 0", ev.Tick))
		ev.Tick = 0
	}
	if ev.Damage < 0 {
		sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, ev.Seq,
			fmt.Sprintf("negative damage %d clamped to 0", ev.Damage))
		ev.Damage = 0
	}
	if ev.Damage > cfg.MaxDamagePerHit {
		sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, ev.Seq,
			fmt.Sprintf("damage %d clamped to %d", ev.Damage, cfg.MaxDamagePerHit))
		ev.Damage = cfg.MaxDamagePerHit
	}
	if p := ev.Pos; p != nil {
		if abs(p.X) > cfg.MaxWorldCoord || abs(p.Y) > cfg.MaxWorldCoord || abs(p.Z) > cfg.MaxWorldCoord {
			sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, ev.Seq,
				fmt.Sprintf("position (%.0f,%.0f,%.0f) outside world bounds, dropped", p.X, p.Y, p.Z))
			ev.Pos = nil
		}
	}
}

// markOrderViolations walks events in emission order against a high-water
// tick. A regression within the skew window is tolerated (the later sort
// repairs it); a regression beyond it is excluded from replay but retained
// for statistics.
func markOrderViolations(cfg *config.Config, events []model.CanonicalEvent, sink *diag.Sink) {
	maxTick := 0
	for i := range events {
		ev := &events[i]
		if ev.Tick >= maxTick {
			maxTick = ev.Tick
			continue
		}
		gap := maxTick - ev.Tick
		if gap <= cfg.TickSkewTicks {
			sink.FlagEvent(model.FlagTickInconsistent, model.RoundPending, ev.Seq,
				fmt.Sprintf("tick %d regressed %d behind stream, reordered", ev.Tick, gap))
			continue
		}
		ev.Excluded = true
		ev.ExcludeReason = "tick-inconsistent"
		sink.FlagEvent(model.FlagTickInconsistent, model.RoundPending, ev.Seq,
			fmt.Sprintf("tick %d regressed %d behind stream, beyond skew window", ev.Tick, gap))
	}
}

// inferIdentities fills a damage event's missing attacker when exactly one
// roster player fired a matching weapon within the skew window. Ambiguity
// leaves the event unresolved. Events must already be tick-sorted.
func inferIdentities(cfg *config.Config, events []model.CanonicalEvent, players map[uint64]*model.PlayerIdentity, sink *diag.Sink) {
	for i := range events {
		ev := &events[i]
		if ev.Kind != model.KindDamage || ev.Actor != 0 {
			continue
		}
		if id := uniqueShooter(cfg, events, players, i); id != 0 {
			ev.Actor = id
			sink.FlagEvent(model.FlagIdentityInferred, model.RoundPending, ev.Seq,
				fmt.Sprintf("attacker inferred as %d from adjacent weapon fire", id))
		}
	}
}

func uniqueShooter(cfg *config.Config, events []model.CanonicalEvent, players map[uint64]*model.PlayerIdentity, i int) uint64 {
	ev := events[i]
	lo := sort.Search(len(events), func(j int) bool {
		return events[j].Tick >= ev.Tick-cfg.TickSkewTicks
	})
	var cand uint64
	for j := lo; j < len(events) && events[j].Tick <= ev.Tick+cfg.TickSkewTicks; j++ {
		o := events[j]
		if o.Kind != model.KindWeaponFire || o.Actor == 0 || o.Actor == ev.Target {
			continue
		}
		if _, known := players[o.Actor]; !known {
			continue
		}
		if ev.Weapon != "" && o.Weapon != "" && ev.Weapon != o.Weapon {
			continue
		}
		if cand != 0 && cand != o.Actor {
			return 0
		}
		cand = o.Actor
	}
	return cand
}

// dropIrreparable moves events repair cannot make usable onto the audit
// list and flags the rest of the unresolved identities.
func dropIrreparable(events []model.CanonicalEvent, sink *diag.Sink) Outcome {
	out := Outcome{Events: events[:0]}
	for _, ev := range events {
		if ev.Kind == model.KindKill && ev.Actor == 0 && ev.Target == 0 {
			sink.FlagEvent(model.FlagIdentityUnresolved, model.RoundPending, ev.Seq,
				"kill with no resolvable participant, moved to unprocessed")
			out.Unprocessed = append(out.Unprocessed, model.UnprocessedRecord{
				Seq:     ev.Seq,
				RawType: ev.RawType,
				Raw:     fmt.Sprintf("kind=%s tick=%d weapon=%q", ev.Kind, ev.Tick, ev.Weapon),
				Tick:    ev.Tick,
				Reason:  "kill without any participant",
			})
			continue
		}
		flagUnresolved(ev, sink)
		out.Events = append(out.Events, ev)
	}
	return out
}

func flagUnresolved(ev model.CanonicalEvent, sink *diag.Sink) {
	switch ev.Kind {
	case model.KindKill:
		if ev.Actor == 0 {
			sink.FlagEvent(model.FlagIdentityUnresolved, model.RoundPending, ev.Seq, "kill attacker unresolved")
		}
		if ev.Target == 0 {
			sink.FlagEvent(model.FlagIdentityUnresolved, model.RoundPending, ev.Seq, "kill victim unresolved")
		}
	case model.KindDamage:
		if ev.Actor == 0 {
			sink.FlagEvent(model.FlagIdentityUnresolved, model.RoundPending, ev.Seq, "damage attacker unresolved")
		}
	case model.KindWeaponFire, model.KindPlant, model.KindDefuse:
		if ev.Actor == 0 {
			sink.FlagEvent(model.FlagIdentityUnresolved, model.RoundPending, ev.Seq,
				fmt.Sprintf("%s actor unresolved", ev.Kind))
		}
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
