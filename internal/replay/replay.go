// Package replay reconstructs the seekable timeline from the indexed event
// stream. Only bound events enter the timeline: excluded events and
// anything outside a competitive round stay behind in the raw stream and
// the audit lists.
package replay

import (
	"sort"

	"github.com/pable/go-cs-ingest/internal/model"
)

// Reconstruct groups the replayable events by round. events must already be
// sorted by (tick, seq); spans must be sorted by start tick. The returned
// Timeline is immutable.
func Reconstruct(events []model.CanonicalEvent, spans []model.RoundSpan) *model.Timeline {
	byRound := make(map[int][]model.CanonicalEvent)
	for _, ev := range events {
		if ev.Excluded || ev.Round <= 0 {
			continue
		}
		byRound[ev.Round] = append(byRound[ev.Round], ev)
	}

	var rounds []model.TimelineRound
	for _, span := range spans {
		if span.Pseudo || span.Number <= 0 {
			continue
		}
		rounds = append(rounds, model.TimelineRound{
			Span:   span,
			Events: byRound[span.Number],
		})
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].Span.Number < rounds[j].Span.Number
	})
	return model.NewTimeline(rounds)
}
