package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pable/go-cs-ingest/internal/config"
	"github.com/pable/go-cs-ingest/internal/model"
)

func newPipeline() *Pipeline {
	return New(config.Default(), zerolog.Nop())
}

const currentPayload = `{
	"parser_version": "v3",
	"map_name": "de_inferno",
	"events": [
		{"type":"events.RoundStart","tick":1000,"data":{}},
		{"type":"events.WeaponFire","tick":1100,"data":{
			"user":{"steam_id64":"76561198000000001","name":"alice","team":"CT"},"weapon":"ak47"}},
		{"type":"events.PlayerHurt","tick":1150,"data":{
			"attacker":{"steam_id64":"76561198000000001","name":"alice","team":"CT"},
			"victim":{"steam_id64":"76561198000000002","name":"bob","team":"T"},
			"dmg_health":27,"hitgroup":1,"weapon":"ak47"}},
		{"type":"events.PlayerDeath","tick":1160,"data":{
			"attacker":{"steam_id64":"76561198000000001","name":"alice","team":"CT"},
			"victim":{"steam_id64":"76561198000000002","name":"bob","team":"T"},
			"weapon":"ak47","headshot":true}},
		{"type":"events.ChatMessage","tick":1200,"data":{
			"player":{"steam_id64":"76561198000000002","name":"bob","team":"T"},
			"message":"nice shot","is_team_chat":false}},
		{"type":"events.RoundEnd","tick":2000,"data":{"winner":"CT","reason":"elimination"}}
	]
}`

func TestRunCurrentPayloadEndToEnd(t *testing.T) {
	m, err := newPipeline().Run(context.Background(), []byte(currentPayload), "match.json")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if m.Schema() != model.SchemaCurrent {
		t.Errorf("schema = %v", m.Schema())
	}
	if m.MapName() != "de_inferno" {
		t.Errorf("map = %q", m.MapName())
	}
	if m.RunID() == "" || m.PayloadHash() == "" {
		t.Error("run id and payload hash must be set")
	}
	if m.Degraded() {
		t.Errorf("clean payload must not be degraded, flags: %v", m.Flags())
	}

	if got := len(m.Rounds()); got != 1 {
		t.Fatalf("rounds = %d, want 1", got)
	}
	if ct, tt := m.Scoreboard(); ct != 1 || tt != 0 {
		t.Errorf("score = %d:%d, want 1:0", ct, tt)
	}

	if m.Timeline().Len() != 6 {
		t.Errorf("timeline length = %d, want 6", m.Timeline().Len())
	}
	evs := m.TimelineSlice(1, 1150, 2)
	if len(evs) != 2 || evs[0].Kind != model.KindDamage || evs[1].Kind != model.KindKill {
		t.Errorf("timeline slice = %+v", evs)
	}

	rows := m.Stats()
	if len(rows) != 2 {
		t.Fatalf("stat rows = %d, want 2", len(rows))
	}
	top := rows[0]
	if top.SteamID64 != 76561198000000001 || top.Kills != 1 || top.Headshots != 1 {
		t.Errorf("top row = %+v", top)
	}
	if top.Estimated {
		t.Error("clean aggregation must not be estimated")
	}

	chat := m.Chat()
	if len(chat) != 1 || chat[0].Name != "bob" || chat[0].Message != "nice shot" || chat[0].Round != 1 {
		t.Errorf("chat = %+v", chat)
	}

	if p, ok := m.Player(76561198000000002); !ok || p.Name != "bob" {
		t.Errorf("player lookup = %+v/%v", p, ok)
	}
}

func TestRunLegacyPayloadIsEstimateOnly(t *testing.T) {
	payload := []byte(`{
		"events": [
			{"type":"events.PlayerInfo","tick":0,"details":{"string":"XUID:0x110000104F74ACE Name:\"alice\""}},
			{"type":"events.GenericGameEvent","tick":1000,"details":{"string":"Name:\"round_start\""}},
			{"type":"events.GenericGameEvent","tick":1200,"details":{"string":"Name:\"weapon_fire\" {\"userid\":\"alice (76561198043581134)\" \"weapon\":\"weapon_ak47\"}"}},
			{"type":"events.GenericGameEvent","tick":1400,"details":{"string":"Name:\"player_hurt\" \"attacker\":(76561198043581134) \"dmg_health\":(21) \"hitgroup\":(3)"}},
			{"type":"events.GenericGameEvent","tick":2000,"details":{"string":"Name:\"round_end\" \"winner\":(2)"}}
		]
	}`)
	m, err := newPipeline().Run(context.Background(), payload, "console.json")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if m.Schema() != model.SchemaLegacy {
		t.Fatalf("schema = %v", m.Schema())
	}
	if m.Timeline().Len() != 0 {
		t.Errorf("log-dump model must have an empty timeline, got %d", m.Timeline().Len())
	}
	if !m.HasFlag(model.FlagEstimated) {
		t.Errorf("log-dump model must carry the estimated flag, got %v", m.Flags())
	}
	if !m.Degraded() {
		t.Error("log-dump model must be degraded")
	}
	rows := m.Stats()
	if len(rows) == 0 {
		t.Fatal("regex-bound lines should still yield stat rows")
	}
	for _, s := range rows {
		if !s.Estimated {
			t.Errorf("row %d must be estimated: %+v", s.SteamID64, s)
		}
	}
	if p, ok := m.Player(76561198043581134); !ok || p.Name != "alice" {
		t.Errorf("roster lookup = %+v/%v", p, ok)
	}
}

func TestRunUnknownSchemaDegrades(t *testing.T) {
	payload := []byte(`{"totally":"different","blob":[1,2,3]}`)
	m, err := newPipeline().Run(context.Background(), payload, "odd.json")
	if err != nil {
		t.Fatalf("unknown schema must still produce a model: %v", err)
	}
	if m.Schema() != model.SchemaUnknown {
		t.Errorf("schema = %v", m.Schema())
	}
	if !m.Degraded() {
		t.Error("estimate-only model must be degraded")
	}
	if !m.HasFlag(model.FlagSchemaUnrecognized) || !m.HasFlag(model.FlagEstimated) {
		t.Errorf("flags = %v", m.Flags())
	}
	if m.Timeline().Len() != 0 {
		t.Errorf("estimate-only model must have an empty timeline, got %d", m.Timeline().Len())
	}
}

func TestRunStructuralFailureIsFatal(t *testing.T) {
	for _, payload := range []string{`{broken`, `"a string"`, `17`} {
		m, err := newPipeline().Run(context.Background(), []byte(payload), "bad.json")
		if !errors.Is(err, model.ErrStructuralParse) {
			t.Errorf("payload %q: err = %v, want ErrStructuralParse", payload, err)
		}
		if m != nil {
			t.Errorf("payload %q: model must be nil on structural failure", payload)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline().Run(ctx, []byte(currentPayload), "match.json")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRunAsyncDeliversResult(t *testing.T) {
	res := <-newPipeline().RunAsync(context.Background(), []byte(currentPayload), "match.json")
	if res.Err != nil {
		t.Fatalf("async run: %v", res.Err)
	}
	if res.Model == nil || res.Model.Timeline().Len() == 0 {
		t.Error("async run must deliver the finished model")
	}
}
