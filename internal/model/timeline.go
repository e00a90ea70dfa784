package model

import "sort"

// Timeline is the ordered, seekable sequence of bound events grouped by
// round. Built once per successfully indexed match by the replay
// reconstructor and immutable thereafter; re-ingestion produces a new
// Timeline, never an edit to this one.
type Timeline struct {
	rounds []TimelineRound
	total  int
}

// TimelineRound is one round's slice of the timeline. Events are sorted by
// (Tick, Seq) so replay is deterministic even when ticks collide.
type TimelineRound struct {
	Span   RoundSpan
	Events []CanonicalEvent
}

// NewTimeline assembles a Timeline from per-round groups. The reconstructor
// guarantees groups arrive ordered by round number with events sorted by
// (Tick, Seq); NewTimeline trusts that and only counts.
func NewTimeline(rounds []TimelineRound) *Timeline {
	t := &Timeline{rounds: rounds}
	for _, r := range rounds {
		t.total += len(r.Events)
	}
	return t
}

// Len returns the total number of replayable events.
func (t *Timeline) Len() int { return t.total }

// Rounds returns the spans that have timeline slices, in order.
func (t *Timeline) Rounds() []RoundSpan {
	spans := make([]RoundSpan, len(t.rounds))
	for i, r := range t.rounds {
		spans[i] = r.Span
	}
	return spans
}

// Round returns the event slice for a round number.
func (t *Timeline) Round(number int) ([]CanonicalEvent, bool) {
	i := t.roundIndex(number)
	if i < 0 {
		return nil, false
	}
	return t.rounds[i].Events, true
}

// Seek returns the index within the round's slice of the first event at or
// after tick. Binary search: logarithmic in round size.
func (t *Timeline) Seek(round, tick int) (int, bool) {
	i := t.roundIndex(round)
	if i < 0 {
		return 0, false
	}
	evs := t.rounds[i].Events
	idx := sort.Search(len(evs), func(j int) bool { return evs[j].Tick >= tick })
	if idx == len(evs) {
		return 0, false
	}
	return idx, true
}

// EventsFrom returns up to limit events of round starting at the first event
// whose tick is >= tick. limit <= 0 means no limit.
func (t *Timeline) EventsFrom(round, tick, limit int) []CanonicalEvent {
	idx, ok := t.Seek(round, tick)
	if !ok {
		return nil
	}
	evs, _ := t.Round(round)
	out := evs[idx:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t *Timeline) roundIndex(number int) int {
	idx := sort.Search(len(t.rounds), func(j int) bool { return t.rounds[j].Span.Number >= number })
	if idx == len(t.rounds) || t.rounds[idx].Span.Number != number {
		return -1
	}
	return idx
}
