package rounds

import (
	"testing"

	"github.com/pable/go-cs-ingest/internal/config"
	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
)

const (
	alice = uint64(76561198000000001)
	bob   = uint64(76561198000000002)
)

func boundary(seq, tick int, kind model.EventKind) model.CanonicalEvent {
	return model.CanonicalEvent{Seq: seq, Kind: kind, Tick: tick}
}

func checkNoOverlap(t *testing.T, spans []model.RoundSpan) {
	t.Helper()
	for i := 1; i < len(spans); i++ {
		if spans[i].StartTick <= spans[i-1].EndTick {
			t.Errorf("span %d [%d,%d] overlaps previous [%d,%d]",
				i, spans[i].StartTick, spans[i].EndTick,
				spans[i-1].StartTick, spans[i-1].EndTick)
		}
	}
}

func TestIndexFromBoundaries(t *testing.T) {
	events := []model.CanonicalEvent{
		boundary(0, 1000, model.KindRoundStart),
		{Seq: 1, Kind: model.KindKill, Tick: 1500, Actor: alice, Target: bob, Weapon: "ak47"},
		boundary(2, 2000, model.KindRoundEnd),
		boundary(3, 3000, model.KindRoundStart),
		boundary(4, 4000, model.KindRoundEnd),
	}
	events[2].Winner = model.TeamCT
	events[2].Reason = "elimination"

	sink := diag.Nop()
	spans := Index(config.Default(), events, nil, nil, nil, sink)

	if len(spans) != 2 {
		t.Fatalf("want 2 spans, got %d: %+v", len(spans), spans)
	}
	checkNoOverlap(t, spans)
	if spans[0].Winner != model.TeamCT || spans[0].Reason != "elimination" {
		t.Errorf("round 1 outcome = %v/%q", spans[0].Winner, spans[0].Reason)
	}
	if events[1].Round != 1 {
		t.Errorf("kill assigned to round %d, want 1", events[1].Round)
	}
	if spans[0].Label != "1H-01" || spans[1].Label != "1H-02" {
		t.Errorf("labels = %q, %q", spans[0].Label, spans[1].Label)
	}
}

func TestIndexDuplicateStartDiscarded(t *testing.T) {
	events := []model.CanonicalEvent{
		boundary(0, 1000, model.KindRoundStart),
		boundary(1, 1100, model.KindRoundStart), // duplicate
		boundary(2, 2000, model.KindRoundEnd),
	}
	sink := diag.Nop()
	spans := Index(config.Default(), events, nil, nil, nil, sink)

	if len(spans) != 1 {
		t.Fatalf("want 1 span, got %d", len(spans))
	}
	if spans[0].StartTick != 1000 {
		t.Errorf("earliest start must win, got %d", spans[0].StartTick)
	}
	if sink.Count(model.FlagRoundAmbiguous) != 1 {
		t.Errorf("duplicate start must be flagged, got %v", sink.Flags())
	}
}

func TestIndexFinalRoundWithoutEnd(t *testing.T) {
	events := []model.CanonicalEvent{
		boundary(0, 1000, model.KindRoundStart),
		boundary(1, 2000, model.KindRoundEnd),
		boundary(2, 3000, model.KindRoundStart),
		{Seq: 3, Kind: model.KindKill, Tick: 3500, Actor: alice, Target: bob},
	}
	sink := diag.Nop()
	spans := Index(config.Default(), events, nil, nil, nil, sink)

	if len(spans) != 2 {
		t.Fatalf("want 2 spans, got %d", len(spans))
	}
	last := spans[len(spans)-1]
	if !last.Degraded || last.EndTick != 3500 {
		t.Errorf("cut-off round = %+v", last)
	}
	if sink.Count(model.FlagPartialRound) != 1 {
		t.Errorf("want partial-round flag, got %v", sink.Flags())
	}
}

func TestIndexDeclaredFallback(t *testing.T) {
	events := []model.CanonicalEvent{
		{Seq: 0, Kind: model.KindKill, Tick: 1200, Actor: alice, Target: bob},
		{Seq: 1, Kind: model.KindKill, Tick: 2500, Actor: bob, Target: alice},
	}
	declared := []model.RoundSpan{
		{Number: 1, StartTick: 1000, EndTick: 2100, Winner: model.TeamCT},
		{Number: 2, StartTick: 2000, EndTick: 3000, Winner: model.TeamT}, // overlaps
	}
	sink := diag.Nop()
	spans := Index(config.Default(), events, declared, nil, nil, sink)

	real := competitive(spans)
	if len(real) != 2 {
		t.Fatalf("want 2 competitive spans, got %+v", spans)
	}
	checkNoOverlap(t, real)
	if real[1].StartTick != 2101 {
		t.Errorf("overlap not trimmed: start = %d", real[1].StartTick)
	}
	if sink.Count(model.FlagRoundAmbiguous) != 1 {
		t.Errorf("overlap must be flagged, got %v", sink.Flags())
	}
	if events[0].Round != 1 || events[1].Round != 2 {
		t.Errorf("assignments = %d, %d", events[0].Round, events[1].Round)
	}
}

func TestIndexGapInference(t *testing.T) {
	cfg := config.Default()
	events := []model.CanonicalEvent{
		{Seq: 0, Kind: model.KindKill, Tick: 1000, Actor: alice, Target: bob},
		{Seq: 1, Kind: model.KindKill, Tick: 2000, Actor: alice, Target: bob},
		{Seq: 2, Kind: model.KindKill, Tick: 2000 + cfg.RoundGapTicks + 1, Actor: bob, Target: alice},
	}
	sink := diag.Nop()
	spans := Index(cfg, events, nil, nil, nil, sink)

	real := competitive(spans)
	if len(real) != 2 {
		t.Fatalf("want 2 inferred spans, got %+v", spans)
	}
	for _, s := range real {
		if !s.Inferred {
			t.Errorf("span %d not marked inferred", s.Number)
		}
	}
	if sink.Count(model.FlagRoundAmbiguous) != 2 {
		t.Errorf("inferred spans must be flagged, got %v", sink.Flags())
	}
}

func TestIndexKnifeRound(t *testing.T) {
	events := []model.CanonicalEvent{
		boundary(0, 100, model.KindRoundStart),
		{Seq: 1, Kind: model.KindKill, Tick: 200, Actor: alice, Target: bob, Weapon: "knife_t"},
		boundary(2, 300, model.KindRoundEnd),
		boundary(3, 1000, model.KindRoundStart),
		{Seq: 4, Kind: model.KindKill, Tick: 1500, Actor: alice, Target: bob, Weapon: "ak47"},
		boundary(5, 2000, model.KindRoundEnd),
	}
	sink := diag.Nop()
	spans := Index(config.Default(), events, nil, nil, nil, sink)

	if !spans[0].Pseudo || spans[0].Label != "knife" {
		t.Fatalf("first span must be the knife round, got %+v", spans[0])
	}
	real := competitive(spans)
	if len(real) != 1 || real[0].Number != 1 || real[0].Label != "1H-01" {
		t.Errorf("live rounds must renumber from 1, got %+v", real)
	}
	if events[4].Round != 1 {
		t.Errorf("live kill assigned to round %d, want 1", events[4].Round)
	}
	if events[1].Round != model.RoundKnife {
		t.Errorf("knife kill assigned to round %d, want %d", events[1].Round, model.RoundKnife)
	}
}

func TestIndexLabels(t *testing.T) {
	for _, tc := range []struct {
		number int
		want   string
	}{
		{1, "1H-01"},
		{12, "1H-12"},
		{13, "2H-01"},
		{24, "2H-12"},
		{25, "OT1-R1"},
		{30, "OT1-R6"},
		{31, "OT2-R1"},
	} {
		spans := []model.RoundSpan{{Number: tc.number}}
		label(spans)
		if spans[0].Label != tc.want {
			t.Errorf("round %d: label = %q, want %q", tc.number, spans[0].Label, tc.want)
		}
	}
}

func TestIndexPseudoSpansAndGapEvents(t *testing.T) {
	events := []model.CanonicalEvent{
		{Seq: 0, Kind: model.KindChat, Tick: 100, Message: "glhf"}, // warmup
		boundary(1, 1000, model.KindRoundStart),
		boundary(2, 2000, model.KindRoundEnd),
		{Seq: 3, Kind: model.KindChat, Tick: 2500, Message: "nice"}, // between rounds
		boundary(4, 3000, model.KindRoundStart),
		boundary(5, 4000, model.KindRoundEnd),
		{Seq: 6, Kind: model.KindChat, Tick: 4500, Message: "gg"}, // after match
	}
	spans := Index(config.Default(), events, nil, nil, nil, diag.Nop())

	if spans[0].Number != model.RoundPreMatch || !spans[0].Pseudo {
		t.Errorf("first span = %+v, want pre-match", spans[0])
	}
	if last := spans[len(spans)-1]; last.Number != model.RoundPostMatch || !last.Pseudo {
		t.Errorf("last span = %+v, want post-match", last)
	}
	if events[0].Round != model.RoundPreMatch {
		t.Errorf("warmup chat round = %d", events[0].Round)
	}
	if events[6].Round != model.RoundPostMatch {
		t.Errorf("post-match chat round = %d", events[6].Round)
	}
	gap := events[3]
	if !gap.Excluded || gap.ExcludeReason != "round-unassigned" {
		t.Errorf("inter-round event = %+v, want excluded round-unassigned", gap)
	}
}

func TestIndexMarksDegradedSpans(t *testing.T) {
	events := []model.CanonicalEvent{
		boundary(0, 1000, model.KindRoundStart),
		boundary(1, 2000, model.KindRoundEnd),
	}
	unprocessed := []model.UnprocessedRecord{{Seq: 9, Tick: 1500, Reason: "unbindable"}}
	sink := diag.Nop()
	spans := Index(config.Default(), events, nil, unprocessed, nil, sink)

	if !spans[0].Degraded {
		t.Errorf("span containing irreparable record must be degraded: %+v", spans[0])
	}
	if sink.Count(model.FlagPartialRound) != 1 {
		t.Errorf("want partial-round flag, got %v", sink.Flags())
	}
}

func TestIndexRecordsTeamsByRound(t *testing.T) {
	players := map[uint64]*model.PlayerIdentity{
		alice: {SteamID64: alice},
		bob:   {SteamID64: bob},
	}
	events := []model.CanonicalEvent{
		boundary(0, 1000, model.KindRoundStart),
		{Seq: 1, Kind: model.KindKill, Tick: 1500, Actor: alice, ActorTeam: model.TeamCT,
			Target: bob, TargetTeam: model.TeamT},
		boundary(2, 2000, model.KindRoundEnd),
	}
	Index(config.Default(), events, nil, nil, players, diag.Nop())

	if players[alice].TeamByRound[1] != model.TeamCT {
		t.Errorf("alice round 1 team = %v", players[alice].TeamByRound[1])
	}
	if players[bob].TeamByRound[1] != model.TeamT {
		t.Errorf("bob round 1 team = %v", players[bob].TeamByRound[1])
	}
}

func competitive(spans []model.RoundSpan) []model.RoundSpan {
	var out []model.RoundSpan
	for _, s := range spans {
		if !s.Pseudo && s.Number > 0 {
			out = append(out, s)
		}
	}
	return out
}
