// Package rounds builds the authoritative round index from a sanitized
// event stream. Boundary events are the preferred source; a payload-declared
// rounds block is the fallback; when neither exists, boundaries are inferred
// from tick gaps. Every event receives its round assignment here, including
// the pre/post-match pseudo rounds.
package rounds

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pable/go-cs-ingest/internal/config"
	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
)

// Regulation is played as two twelve-round halves; overtime in blocks of
// six.
const (
	halfRounds     = 12
	overtimeRounds = 6
)

// Index derives the round spans, assigns every event its round number, and
// marks spans containing irreparable records as degraded. events must be
// sorted by (tick, seq). players receives per-round team assignments.
func Index(cfg *config.Config, events []model.CanonicalEvent, declared []model.RoundSpan, unprocessed []model.UnprocessedRecord, players map[uint64]*model.PlayerIdentity, sink *diag.Sink) []model.RoundSpan {
	spans := fromBoundaries(events, sink)
	if len(spans) == 0 && len(declared) > 0 {
		spans = fromDeclared(declared, sink)
	}
	if len(spans) == 0 {
		spans = fromGaps(cfg, events, sink)
	}

	detectKnifeRound(spans, events, sink)
	label(spans)
	spans = addPseudoSpans(spans, events)

	assign(spans, events)
	markDegraded(spans, unprocessed, sink)
	recordTeams(events, players)
	return spans
}

// fromBoundaries pairs round_start/round_end events. The earliest start
// wins: a second start before any end is discarded. An end without a start
// opens at the previous span's edge.
func fromBoundaries(events []model.CanonicalEvent, sink *diag.Sink) []model.RoundSpan {
	var spans []model.RoundSpan
	openStart := -1
	for _, ev := range events {
		if ev.Excluded {
			continue
		}
		switch ev.Kind {
		case model.KindRoundStart:
			if openStart >= 0 {
				sink.FlagEvent(model.FlagRoundAmbiguous, len(spans)+1, ev.Seq,
					fmt.Sprintf("duplicate round start at tick %d discarded", ev.Tick))
				continue
			}
			openStart = ev.Tick
		case model.KindRoundEnd:
			start := openStart
			if start < 0 {
				start = prevEdge(spans, events)
				sink.FlagEvent(model.FlagRoundAmbiguous, len(spans)+1, ev.Seq,
					fmt.Sprintf("round end at tick %d without a start, opened at %d", ev.Tick, start))
			}
			spans = append(spans, model.RoundSpan{
				Number:    len(spans) + 1,
				StartTick: start,
				EndTick:   ev.Tick,
				Winner:    ev.Winner,
				Reason:    ev.Reason,
			})
			openStart = -1
		}
	}
	if openStart >= 0 {
		// The recording cut off mid-round.
		n := len(spans) + 1
		spans = append(spans, model.RoundSpan{
			Number:    n,
			StartTick: openStart,
			EndTick:   lastTick(events),
			Degraded:  true,
		})
		sink.FlagRound(model.FlagPartialRound, n, "final round has no end event")
	}
	return spans
}

func prevEdge(spans []model.RoundSpan, events []model.CanonicalEvent) int {
	if len(spans) > 0 {
		return spans[len(spans)-1].EndTick + 1
	}
	for _, ev := range events {
		if !ev.Excluded {
			return ev.Tick
		}
	}
	return 0
}

func lastTick(events []model.CanonicalEvent) int {
	max := 0
	for _, ev := range events {
		if !ev.Excluded && ev.Tick > max {
			max = ev.Tick
		}
	}
	return max
}

// fromDeclared validates a payload-declared rounds block: spans are sorted,
// overlaps trimmed, and the numbering rewritten to be sequential.
func fromDeclared(declared []model.RoundSpan, sink *diag.Sink) []model.RoundSpan {
	spans := make([]model.RoundSpan, len(declared))
	copy(spans, declared)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].StartTick < spans[j].StartTick })

	for i := range spans {
		spans[i].Number = i + 1
		if i == 0 {
			continue
		}
		if prev := spans[i-1]; spans[i].StartTick <= prev.EndTick {
			sink.FlagRound(model.FlagRoundAmbiguous, i+1,
				fmt.Sprintf("declared span overlaps previous, start %d trimmed to %d",
					spans[i].StartTick, prev.EndTick+1))
			spans[i].StartTick = prev.EndTick + 1
		}
		if spans[i].EndTick < spans[i].StartTick {
			spans[i].EndTick = spans[i].StartTick
			spans[i].Degraded = true
		}
	}
	return spans
}

// fromGaps segments the stream wherever consecutive gameplay ticks are more
// than RoundGapTicks apart. Purely inferred spans; flagged as such.
func fromGaps(cfg *config.Config, events []model.CanonicalEvent, sink *diag.Sink) []model.RoundSpan {
	var spans []model.RoundSpan
	start, last := -1, 0
	flush := func(endTick int) {
		if start < 0 {
			return
		}
		n := len(spans) + 1
		spans = append(spans, model.RoundSpan{
			Number:    n,
			StartTick: start,
			EndTick:   endTick,
			Inferred:  true,
		})
		sink.FlagRound(model.FlagRoundAmbiguous, n,
			fmt.Sprintf("boundaries inferred from tick gap, span [%d,%d]", start, endTick))
		start = -1
	}
	for _, ev := range events {
		if ev.Excluded {
			continue
		}
		if start < 0 {
			start, last = ev.Tick, ev.Tick
			continue
		}
		if ev.Tick-last > cfg.RoundGapTicks {
			flush(last)
			start = ev.Tick
		}
		last = ev.Tick
	}
	flush(last)
	return spans
}

// detectKnifeRound demotes the first span to a pseudo round when every kill
// inside it was a knife kill. Real numbering then begins at the next span.
func detectKnifeRound(spans []model.RoundSpan, events []model.CanonicalEvent, sink *diag.Sink) {
	if len(spans) < 2 {
		return
	}
	first := &spans[0]
	kills, knife := 0, 0
	for _, ev := range events {
		if ev.Kind != model.KindKill || !first.Contains(ev.Tick) {
			continue
		}
		kills++
		if strings.Contains(ev.Weapon, "knife") {
			knife++
		}
	}
	if kills == 0 || knife != kills {
		return
	}
	first.Pseudo = true
	first.Label = "knife"
	first.Number = model.RoundKnife
	for i := 1; i < len(spans); i++ {
		spans[i].Number = i
	}
	sink.Logger().Info().Int("kills", kills).Msg("knife round detected, demoted from scoring")
}

// label names each competitive span by half: "1H-03", "2H-01", "OT1-R2".
func label(spans []model.RoundSpan) {
	for i := range spans {
		s := &spans[i]
		if s.Pseudo || s.Number <= 0 {
			continue
		}
		switch n := s.Number; {
		case n <= halfRounds:
			s.Label = fmt.Sprintf("1H-%02d", n)
		case n <= 2*halfRounds:
			s.Label = fmt.Sprintf("2H-%02d", n-halfRounds)
		default:
			ot := (n - 2*halfRounds - 1) / overtimeRounds
			r := (n - 2*halfRounds - 1) % overtimeRounds
			s.Label = fmt.Sprintf("OT%d-R%d", ot+1, r+1)
		}
	}
}

// addPseudoSpans wraps the match in pre/post spans when events fall outside
// the competitive range.
func addPseudoSpans(spans []model.RoundSpan, events []model.CanonicalEvent) []model.RoundSpan {
	if len(spans) == 0 || len(events) == 0 {
		return spans
	}
	first, last := spans[0], spans[len(spans)-1]
	if t := firstEventTick(events); t < first.StartTick {
		pre := model.RoundSpan{
			Number:    model.RoundPreMatch,
			Label:     "pre-match",
			StartTick: t,
			EndTick:   first.StartTick - 1,
			Pseudo:    true,
		}
		spans = append([]model.RoundSpan{pre}, spans...)
	}
	if t := lastTick(events); t > last.EndTick {
		spans = append(spans, model.RoundSpan{
			Number:    model.RoundPostMatch,
			Label:     "post-match",
			StartTick: last.EndTick + 1,
			EndTick:   t,
			Pseudo:    true,
		})
	}
	return spans
}

func firstEventTick(events []model.CanonicalEvent) int {
	for _, ev := range events {
		if !ev.Excluded {
			return ev.Tick
		}
	}
	return 0
}

// assign stamps every event with its containing span's number. Events in
// gaps between spans are excluded from replay as unassignable.
func assign(spans []model.RoundSpan, events []model.CanonicalEvent) {
	for i := range events {
		ev := &events[i]
		if n, ok := spanFor(spans, ev.Tick); ok {
			ev.Round = n
			continue
		}
		ev.Round = model.RoundPending
		if !ev.Excluded {
			ev.Excluded = true
			ev.ExcludeReason = "round-unassigned"
		}
	}
}

// spanFor finds the span containing tick. Spans are sorted by StartTick.
func spanFor(spans []model.RoundSpan, tick int) (int, bool) {
	i := sort.Search(len(spans), func(j int) bool { return spans[j].StartTick > tick })
	if i == 0 {
		return 0, false
	}
	if s := spans[i-1]; s.Contains(tick) {
		return s.Number, true
	}
	return 0, false
}

// markDegraded flags spans that contain irreparable records.
func markDegraded(spans []model.RoundSpan, unprocessed []model.UnprocessedRecord, sink *diag.Sink) {
	for _, rec := range unprocessed {
		if rec.Tick <= 0 {
			continue
		}
		for i := range spans {
			s := &spans[i]
			if !s.Contains(rec.Tick) || s.Pseudo {
				continue
			}
			if !s.Degraded {
				s.Degraded = true
				sink.FlagRound(model.FlagPartialRound, s.Number, "irreparable records inside round")
			}
			break
		}
	}
}

// recordTeams fills per-round team assignments on the roster from the sides
// observed on events.
func recordTeams(events []model.CanonicalEvent, players map[uint64]*model.PlayerIdentity) {
	note := func(id uint64, round int, team model.Team) {
		if id == 0 || round <= 0 || team == model.TeamUnknown {
			return
		}
		p, ok := players[id]
		if !ok {
			return
		}
		if p.TeamByRound == nil {
			p.TeamByRound = make(map[int]model.Team)
		}
		if _, seen := p.TeamByRound[round]; !seen {
			p.TeamByRound[round] = team
		}
	}
	for _, ev := range events {
		note(ev.Actor, ev.Round, ev.ActorTeam)
		note(ev.Target, ev.Round, ev.TargetTeam)
	}
}
