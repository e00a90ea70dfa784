// Package schema classifies raw payloads into one of the known parser
// output generations. Detection is signature-based: a small set of
// version-discriminating fields is probed in priority order and the first
// match wins. Pure classification; no side effects.
package schema

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/pable/go-cs-ingest/internal/model"
)

// probeSample caps how many events detection inspects. Signatures are
// expected within the first few records of any real payload.
const probeSample = 16

// Detect classifies payload and returns the parsed root for the normalizer
// so the payload is only parsed once. A payload that is not valid JSON, or
// whose top level is neither an object nor an array, is a structural parse
// failure and returns model.ErrStructuralParse.
func Detect(payload []byte) (model.SchemaVersion, gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return model.SchemaUnknown, gjson.Result{}, fmt.Errorf("detect: invalid JSON: %w", model.ErrStructuralParse)
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() && !root.IsArray() {
		return model.SchemaUnknown, gjson.Result{}, fmt.Errorf("detect: top level is %s: %w", root.Type, model.ErrStructuralParse)
	}

	events := EventsArray(root)

	switch {
	case isCurrent(root, events):
		return model.SchemaCurrent, root, nil
	case isPrior(root, events):
		return model.SchemaPrior, root, nil
	case isLegacy(events):
		return model.SchemaLegacy, root, nil
	}
	return model.SchemaUnknown, root, nil
}

// EventsArray locates the event list regardless of generation: an "events"
// or "Events" key, or the payload itself when the top level is an array.
func EventsArray(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, key := range []string{"events", "Events"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// isCurrent matches the "v3" generation: a parser_version with the v3
// prefix, or namespaced event types carrying nested data objects.
func isCurrent(root gjson.Result, events []gjson.Result) bool {
	if strings.HasPrefix(root.Get("parser_version").String(), "v3") {
		return true
	}
	nested := 0
	for i, ev := range events {
		if i >= probeSample {
			break
		}
		typ := ev.Get("type").String()
		if strings.HasPrefix(typ, "events.") && !isLogLineType(typ) && ev.Get("data").IsObject() {
			nested++
		}
	}
	return nested > 0
}

// isPrior matches the flat summary generation: a playerstats/stats block,
// or bare lowercase event types with flat identity fields.
func isPrior(root gjson.Result, events []gjson.Result) bool {
	for _, key := range []string{"playerstats", "stats"} {
		if root.Get(key).IsArray() {
			return true
		}
	}
	for i, ev := range events {
		if i >= probeSample {
			break
		}
		switch ev.Get("type").String() {
		case "player_death", "player_hurt", "weapon_fire",
			"round_start", "round_end", "chat_message", "say":
			return true
		}
		if ev.Get("attacker_steamid").Exists() || ev.Get("victim_steamid").Exists() {
			return true
		}
	}
	return false
}

// isLegacy matches log-line dumps: most events are GenericGameEvent or
// PlayerInfo records whose only payload is a details.string log line.
func isLegacy(events []gjson.Result) bool {
	if len(events) == 0 {
		return false
	}
	sampled, logLines := 0, 0
	for i, ev := range events {
		if i >= probeSample {
			break
		}
		sampled++
		if isLogLineType(ev.Get("type").String()) && ev.Get("details.string").Exists() {
			logLines++
		}
	}
	return logLines*2 >= sampled
}

func isLogLineType(typ string) bool {
	return typ == "events.GenericGameEvent" || typ == "events.PlayerInfo"
}
