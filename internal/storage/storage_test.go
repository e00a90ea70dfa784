package storage

import (
	"testing"

	"github.com/pable/go-cs-ingest/internal/model"
)

func openMemDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

const (
	alice = uint64(76561198000000001)
	bob   = uint64(76561198000000002)
)

func testModel(t *testing.T) *model.MatchModel {
	t.Helper()
	span := model.RoundSpan{
		Number: 1, Label: "1H-01", StartTick: 1000, EndTick: 2000,
		Winner: model.TeamCT, Reason: "elimination",
	}
	events := []model.CanonicalEvent{
		{Seq: 0, Kind: model.KindWeaponFire, Tick: 1100, Round: 1, Actor: alice,
			ActorTeam: model.TeamCT, Weapon: "ak47", Pos: &model.Vec3{X: 10, Y: -20, Z: 3}},
		{Seq: 1, Kind: model.KindKill, Tick: 1160, Round: 1, Actor: alice, Target: bob,
			ActorTeam: model.TeamCT, TargetTeam: model.TeamT, Weapon: "ak47", Headshot: true},
		{Seq: 2, Kind: model.KindRoundEnd, Tick: 2000, Round: 1, Winner: model.TeamCT,
			Reason: "elimination"},
	}
	return model.NewMatchModel(model.MatchModelParams{
		RunID:       "run-1",
		PayloadHash: "cafe1234deadbeef",
		Source:      "match.json",
		Schema:      model.SchemaCurrent,
		MapName:     "de_mirage",
		IngestDate:  "2026-08-26T10:00:00Z",
		Players: map[uint64]model.PlayerIdentity{
			alice: {SteamID64: alice, Name: "alice", Team: model.TeamCT},
			bob:   {SteamID64: bob, Name: "bob", Team: model.TeamT},
		},
		Rounds:   []model.RoundSpan{span},
		Timeline: model.NewTimeline([]model.TimelineRound{{Span: span, Events: events}}),
		PlayerStats: []model.PlayerStats{
			{PayloadHash: "cafe1234deadbeef", SteamID64: alice, Name: "alice",
				Team: model.TeamCT, Kills: 1, Headshots: 1, Damage: 100,
				RoundsPlayed: 1, HitGroups: map[string]int{"head": 1}},
			{PayloadHash: "cafe1234deadbeef", SteamID64: bob, Name: "bob",
				Team: model.TeamT, Deaths: 1, RoundsPlayed: 1,
				HitGroups: map[string]int{}},
		},
		TeamStats: []model.TeamStats{
			{Team: model.TeamCT, RoundsWon: 1, Kills: 1, Damage: 100},
			{Team: model.TeamT, Deaths: 1},
		},
		Chat: []model.ChatMessage{
			{Tick: 1200, Round: 1, SteamID64: bob, Name: "bob", Message: "nice shot"},
		},
		Flags: []model.IntegrityFlag{
			{Code: model.FlagFieldCoercion, Round: model.RoundPending, Seq: 5, Detail: "coerced tick"},
		},
		Unprocessed: []model.UnprocessedRecord{
			{Seq: 9, RawType: "events.Mystery", Raw: `{"type":"events.Mystery"}`, Tick: 1500, Reason: "unknown kind"},
		},
	})
}

func TestInsertAndExists(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)

	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}
	exists, err := db.MatchExists(m.PayloadHash())
	if err != nil {
		t.Fatalf("MatchExists: %v", err)
	}
	if !exists {
		t.Error("expected match to exist after insert")
	}
	if exists, _ := db.MatchExists("nope"); exists {
		t.Error("expected missing hash to not exist")
	}
}

func TestInsertIsIdempotent(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)

	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("second insert: %v", err)
	}

	list, err := db.ListMatches()
	if err != nil {
		t.Fatalf("ListMatches: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("want 1 match after re-insert, got %d", len(list))
	}
	stats, _ := db.GetPlayerStats(m.PayloadHash())
	if len(stats) != 2 {
		t.Errorf("want 2 stat rows after re-insert, got %d", len(stats))
	}
	flags, _ := db.GetFlags(m.PayloadHash())
	if len(flags) != 1 {
		t.Errorf("want 1 flag after re-insert, got %d", len(flags))
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}

	s, err := db.GetSummary(m.PayloadHash())
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if s.MapName != "de_mirage" || s.Schema != model.SchemaCurrent {
		t.Errorf("summary = %+v", s)
	}
	if s.CTScore != 1 || s.TScore != 0 || s.Rounds != 1 || s.Events != 3 {
		t.Errorf("summary counters = %+v", s)
	}
	if s.Degraded {
		t.Error("clean match stored as degraded")
	}
}

func TestPlayerStatsRoundTrip(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}

	stats, err := db.GetPlayerStats(m.PayloadHash())
	if err != nil {
		t.Fatalf("GetPlayerStats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("want 2 rows, got %d", len(stats))
	}
	top := stats[0]
	if top.SteamID64 != alice || top.Kills != 1 || top.Team != model.TeamCT {
		t.Errorf("top row = %+v", top)
	}
	if top.HitGroups["head"] != 1 {
		t.Errorf("hit groups = %v", top.HitGroups)
	}
}

func TestTimelineRoundTrip(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}

	tl, err := db.GetTimeline(m.PayloadHash())
	if err != nil {
		t.Fatalf("GetTimeline: %v", err)
	}
	if tl.Len() != 3 {
		t.Fatalf("timeline length = %d, want 3", tl.Len())
	}
	events, ok := tl.Round(1)
	if !ok {
		t.Fatal("round 1 missing from loaded timeline")
	}
	kill := events[1]
	if kill.Kind != model.KindKill || kill.Actor != alice || kill.Target != bob || !kill.Headshot {
		t.Errorf("kill = %+v", kill)
	}
	fire := events[0]
	if fire.Pos == nil || fire.Pos.X != 10 || fire.Pos.Y != -20 {
		t.Errorf("position lost: %+v", fire.Pos)
	}
	if kill.Pos != nil {
		t.Errorf("absent position must load as nil, got %+v", kill.Pos)
	}
}

func TestLoadModel(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}

	loaded, err := db.LoadModel(m.PayloadHash())
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if loaded.RunID() != m.RunID() || loaded.MapName() != m.MapName() {
		t.Errorf("loaded header = %q/%q", loaded.RunID(), loaded.MapName())
	}
	if loaded.Timeline().Len() != m.Timeline().Len() {
		t.Errorf("timeline length = %d, want %d", loaded.Timeline().Len(), m.Timeline().Len())
	}
	if len(loaded.Chat()) != 1 || loaded.Chat()[0].Message != "nice shot" {
		t.Errorf("chat = %+v", loaded.Chat())
	}
	if len(loaded.Unprocessed()) != 1 || loaded.Unprocessed()[0].Reason != "unknown kind" {
		t.Errorf("unprocessed = %+v", loaded.Unprocessed())
	}
	if !loaded.HasFlag(model.FlagFieldCoercion) {
		t.Error("flags lost on reload")
	}
	if p, ok := loaded.Player(bob); !ok || p.Name != "bob" {
		t.Errorf("roster lost: %+v/%v", p, ok)
	}
	ct, tt := loaded.Scoreboard()
	if ct != 1 || tt != 0 {
		t.Errorf("score = %d:%d", ct, tt)
	}
}

func TestFindHashByPrefix(t *testing.T) {
	db := openMemDB(t)
	m := testModel(t)
	if err := db.InsertMatch(m); err != nil {
		t.Fatalf("InsertMatch: %v", err)
	}

	hash, err := db.FindHashByPrefix("cafe")
	if err != nil {
		t.Fatalf("FindHashByPrefix: %v", err)
	}
	if hash != m.PayloadHash() {
		t.Errorf("resolved %q", hash)
	}
	if _, err := db.FindHashByPrefix("ffff"); err == nil {
		t.Error("unknown prefix must error")
	}
}
