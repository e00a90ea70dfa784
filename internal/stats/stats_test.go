package stats

import (
	"reflect"
	"testing"

	"github.com/pable/go-cs-ingest/internal/model"
)

const (
	alice = uint64(76561198000000001)
	bob   = uint64(76561198000000002)
	carol = uint64(76561198000000003)
)

func roster() map[uint64]*model.PlayerIdentity {
	return map[uint64]*model.PlayerIdentity{
		alice: {SteamID64: alice, Name: "alice", Team: model.TeamCT,
			TeamByRound: map[int]model.Team{1: model.TeamCT, 2: model.TeamCT}},
		bob: {SteamID64: bob, Name: "bob", Team: model.TeamT,
			TeamByRound: map[int]model.Team{1: model.TeamT, 2: model.TeamT}},
	}
}

func fixture() ([]model.CanonicalEvent, []model.RoundSpan) {
	events := []model.CanonicalEvent{
		{Seq: 0, Kind: model.KindWeaponFire, Tick: 1100, Round: 1, Actor: alice, Weapon: "ak47"},
		{Seq: 1, Kind: model.KindDamage, Tick: 1150, Round: 1, Actor: alice, Target: bob,
			Damage: 27, HitGroup: "head", Weapon: "ak47"},
		{Seq: 2, Kind: model.KindKill, Tick: 1160, Round: 1, Actor: alice, Target: bob,
			Weapon: "ak47", Headshot: true},
		{Seq: 3, Kind: model.KindDamage, Tick: 3100, Round: 2, Actor: bob, Target: alice,
			Damage: 45, HitGroup: "chest", Weapon: "hegrenade"},
		// Tick-unreliable kill: excluded from replay, still counted here.
		{Seq: 4, Kind: model.KindKill, Tick: 3200, Round: 2, Actor: bob, Target: alice,
			Excluded: true, ExcludeReason: "tick-inconsistent"},
		// Warmup kill never counts.
		{Seq: 5, Kind: model.KindKill, Tick: 100, Round: model.RoundPreMatch, Actor: bob, Target: alice},
	}
	spans := []model.RoundSpan{
		{Number: model.RoundPreMatch, StartTick: 0, EndTick: 999, Pseudo: true},
		{Number: 1, StartTick: 1000, EndTick: 2000, Winner: model.TeamCT},
		{Number: 2, StartTick: 3000, EndTick: 4000, Winner: model.TeamT},
	}
	return events, spans
}

func TestAggregateCounters(t *testing.T) {
	events, spans := fixture()
	rows, teams := Aggregate("hash", events, spans, roster())

	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	byID := make(map[uint64]model.PlayerStats)
	for _, r := range rows {
		byID[r.SteamID64] = r
	}

	a := byID[alice]
	if a.Kills != 1 || a.Deaths != 1 || a.Headshots != 1 || a.Damage != 27 || a.ShotsFired != 1 || a.Hits != 1 {
		t.Errorf("alice = %+v", a)
	}
	if a.HitGroups["head"] != 1 {
		t.Errorf("alice hit groups = %v", a.HitGroups)
	}
	if a.RoundsPlayed != 2 {
		t.Errorf("alice rounds played = %d, want 2", a.RoundsPlayed)
	}

	b := byID[bob]
	if b.Kills != 1 {
		t.Errorf("excluded-but-assigned kill must count: bob = %+v", b)
	}
	if b.Deaths != 1 {
		t.Errorf("warmup kill must not count: bob deaths = %d", b.Deaths)
	}
	if b.UtilityDmg != 45 {
		t.Errorf("bob utility damage = %d, want 45", b.UtilityDmg)
	}

	if teams[0].Team != model.TeamCT || teams[0].RoundsWon != 1 {
		t.Errorf("CT team stats = %+v", teams[0])
	}
	if teams[1].Team != model.TeamT || teams[1].RoundsWon != 1 || teams[1].Kills != 1 {
		t.Errorf("T team stats = %+v", teams[1])
	}
}

func TestAggregateUnresolvedParticipants(t *testing.T) {
	events := []model.CanonicalEvent{
		// Victim unresolved: killer still gets the kill, nobody gets a death.
		{Seq: 0, Kind: model.KindKill, Tick: 1100, Round: 1, Actor: alice, Target: 0},
		// Attacker unresolved: damage attributed to nobody.
		{Seq: 1, Kind: model.KindDamage, Tick: 1200, Round: 1, Actor: 0, Target: alice, Damage: 50},
	}
	spans := []model.RoundSpan{{Number: 1, StartTick: 1000, EndTick: 2000, Winner: model.TeamCT}}
	rows, _ := Aggregate("hash", events, spans, roster())

	byID := make(map[uint64]model.PlayerStats)
	total := 0
	for _, r := range rows {
		byID[r.SteamID64] = r
		total += r.Deaths
	}
	if byID[alice].Kills != 1 {
		t.Errorf("alice kills = %d, want 1", byID[alice].Kills)
	}
	if total != 0 {
		t.Errorf("unresolved victim must not create a death, got %d", total)
	}
	if byID[alice].Damage != 0 {
		t.Errorf("unattributed damage leaked: %+v", byID[alice])
	}
}

func TestAggregateDeterministic(t *testing.T) {
	events, spans := fixture()
	r1, t1 := Aggregate("hash", events, spans, roster())
	r2, t2 := Aggregate("hash", events, spans, roster())
	if !reflect.DeepEqual(r1, r2) || !reflect.DeepEqual(t1, t2) {
		t.Error("aggregation is not deterministic")
	}
}

func TestSortOrder(t *testing.T) {
	rows := []model.PlayerStats{
		{SteamID64: carol, Kills: 5},
		{SteamID64: bob, Kills: 9},
		{SteamID64: alice, Kills: 5},
	}
	Sort(rows)
	if rows[0].SteamID64 != bob || rows[1].SteamID64 != alice || rows[2].SteamID64 != carol {
		t.Errorf("order = %v", []uint64{rows[0].SteamID64, rows[1].SteamID64, rows[2].SteamID64})
	}
}

func TestMergeEstimates(t *testing.T) {
	base := []model.PlayerStats{
		{SteamID64: alice, Name: "alice", Kills: 10, Damage: 900, HitGroups: map[string]int{"head": 3}},
	}
	estimated := []model.PlayerStats{
		{SteamID64: alice, Damage: 40, Hits: 2, HitGroups: map[string]int{"chest": 2}, Estimated: true},
		{SteamID64: carol, Name: "carol", ShotsFired: 7, Estimated: true},
	}
	merged := Merge(base, estimated)

	if len(merged) != 2 {
		t.Fatalf("want 2 rows, got %d", len(merged))
	}
	byID := make(map[uint64]model.PlayerStats)
	for _, r := range merged {
		byID[r.SteamID64] = r
	}
	a := byID[alice]
	if a.Damage != 940 || a.Hits != 2 || a.Kills != 10 {
		t.Errorf("merged alice = %+v", a)
	}
	if a.HitGroups["head"] != 3 || a.HitGroups["chest"] != 2 {
		t.Errorf("merged hit groups = %v", a.HitGroups)
	}
	if !a.Estimated {
		t.Error("touched row must be marked estimated")
	}
	c := byID[carol]
	if !c.Estimated || c.ShotsFired != 7 {
		t.Errorf("appended row = %+v", c)
	}
}
