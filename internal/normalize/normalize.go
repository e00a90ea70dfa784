// Package normalize maps each recognized schema generation onto the
// canonical in-memory representation. One mapping function per generation;
// each version's field table is explicit and exhaustive over the kinds it
// claims to support. Unknown event kinds pass through as unclassified
// rather than being dropped.
package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
	"github.com/pable/go-cs-ingest/internal/steam"
)

// Result is the normalizer's output: canonical events in emission order,
// the identities discovered along the way, and whatever round metadata the
// payload declared. DeclaredRounds are unvalidated; the round indexer is
// authoritative.
type Result struct {
	MapName        string
	Events         []model.CanonicalEvent
	Players        map[uint64]*model.PlayerIdentity
	DeclaredRounds []model.RoundSpan
	Unprocessed    []model.UnprocessedRecord
}

// Normalize dispatches to the mapping branch for the detected generation.
// Unknown payloads have no branch; they route to the fallback estimator
// instead.
func Normalize(version model.SchemaVersion, root gjson.Result, sink *diag.Sink) (*Result, error) {
	switch version {
	case model.SchemaCurrent:
		return normalizeCurrent(root, sink), nil
	case model.SchemaPrior:
		return normalizePrior(root, sink), nil
	case model.SchemaLegacy:
		return normalizeLegacy(root, sink), nil
	default:
		return nil, fmt.Errorf("normalize: no mapping for schema %v", version)
	}
}

func newResult() *Result {
	return &Result{Players: make(map[uint64]*model.PlayerIdentity)}
}

// addPlayer records an identity, keeping the first non-empty name seen.
func (r *Result) addPlayer(id uint64, name string, team model.Team) {
	if id == 0 {
		return
	}
	p, ok := r.Players[id]
	if !ok {
		p = &model.PlayerIdentity{SteamID64: id, TeamByRound: make(map[int]model.Team)}
		r.Players[id] = p
	}
	if p.Name == "" && name != "" {
		p.Name = name
	}
	if p.Team == model.TeamUnknown && team != model.TeamUnknown {
		p.Team = team
	}
}

// requireInt reads an integer field that the claimed kind needs. A missing
// or mistyped value is defaulted/coerced and recorded as a field coercion.
func requireInt(ev gjson.Result, path string, def int64, seq int, sink *diag.Sink) int64 {
	v := ev.Get(path)
	if !v.Exists() {
		sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
			fmt.Sprintf("missing %q, defaulted to %d", path, def))
		return def
	}
	if v.Type != gjson.Number {
		sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
			fmt.Sprintf("coerced %q from %s", path, v.Type))
	}
	return v.Int()
}

// optInt reads an optional integer; absence is not a defect.
func optInt(ev gjson.Result, path string, def int64) int64 {
	if v := ev.Get(path); v.Exists() {
		return v.Int()
	}
	return def
}

// firstField returns the first existing field among paths.
func firstField(ev gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := ev.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// steamID parses any identifier form to a SteamID64; 0 means unresolved.
func steamID(v gjson.Result) uint64 {
	if !v.Exists() {
		return 0
	}
	if v.Type == gjson.Number {
		id := v.Uint()
		if id == 0 {
			return 0
		}
		return id
	}
	id, err := steam.ParseID(v.String())
	if err != nil {
		return 0
	}
	return id
}

// teamOf maps the generations' team encodings — numeric 2/3 or the string
// forms — onto the canonical Team.
func teamOf(v gjson.Result) model.Team {
	if !v.Exists() {
		return model.TeamUnknown
	}
	if v.Type == gjson.Number {
		return teamFromCode(int(v.Int()))
	}
	switch v.String() {
	case "T", "t", "TERRORIST", "Terrorist":
		return model.TeamT
	case "CT", "ct", "Counter-Terrorist":
		return model.TeamCT
	case "SPEC", "Spectator":
		return model.TeamSpectators
	default:
		return model.TeamUnknown
	}
}

// teamFromCode maps the engine's numeric team codes.
func teamFromCode(n int) model.Team {
	switch n {
	case 1:
		return model.TeamSpectators
	case 2:
		return model.TeamT
	case 3:
		return model.TeamCT
	default:
		return model.TeamUnknown
	}
}

// posOf reads a {x,y,z} object into a Vec3, nil when absent.
func posOf(v gjson.Result) *model.Vec3 {
	if !v.IsObject() {
		return nil
	}
	return &model.Vec3{
		X: v.Get("x").Float(),
		Y: v.Get("y").Float(),
		Z: v.Get("z").Float(),
	}
}

// hitGroupOf accepts either the numeric or the named hit group form.
func hitGroupOf(v gjson.Result) string {
	if !v.Exists() {
		return ""
	}
	if v.Type == gjson.Number {
		return model.HitGroupName(int(v.Int()))
	}
	return v.String()
}

// declaredRound reads one entry of a payload's rounds block.
func declaredRound(v gjson.Result) model.RoundSpan {
	return model.RoundSpan{
		Number:    int(v.Get("number").Int()),
		StartTick: int(v.Get("start_tick").Int()),
		EndTick:   int(v.Get("end_tick").Int()),
		Winner:    teamOf(v.Get("winner")),
		Reason:    v.Get("reason").String(),
	}
}

// unprocessedRaw truncates a payload fragment for the audit side list.
func unprocessedRaw(ev gjson.Result) string {
	const maxRaw = 512
	raw := ev.Raw
	if len(raw) > maxRaw {
		raw = raw[:maxRaw]
	}
	return raw
}
