package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
	"github.com/pable/go-cs-ingest/internal/schema"
)

// currentKinds maps the v3 generation's namespaced type strings onto
// canonical kinds.
var currentKinds = map[string]model.EventKind{
	"events.PlayerDeath":   model.KindKill,
	"events.Kill":          model.KindKill,
	"events.PlayerHurt":    model.KindDamage,
	"events.WeaponFire":    model.KindWeaponFire,
	"events.PlayerFlashed": model.KindFlash,
	"events.RoundStart":    model.KindRoundStart,
	"events.RoundEnd":      model.KindRoundEnd,
	"events.BombPlanted":   model.KindPlant,
	"events.BombDefused":   model.KindDefuse,
	"events.ChatMessage":   model.KindChat,
	"events.SayText":       model.KindChat,
}

// normalizeCurrent maps the v3 nested-event format. Each event carries a
// namespaced type and a data object holding player sub-objects.
func normalizeCurrent(root gjson.Result, sink *diag.Sink) *Result {
	res := newResult()
	res.MapName = firstField(root, "map_name", "map").String()

	for _, ps := range root.Get("playerStats").Array() {
		id := steamID(firstField(ps, "steam_id64", "steamid"))
		res.addPlayer(id, ps.Get("name").String(), teamOf(ps.Get("team")))
	}
	for _, rd := range root.Get("rounds").Array() {
		res.DeclaredRounds = append(res.DeclaredRounds, declaredRound(rd))
	}

	for seq, raw := range schema.EventsArray(root) {
		typ := raw.Get("type").String()
		kind, ok := currentKinds[typ]
		if !ok {
			res.appendUnknown(raw, typ, seq, sink)
			continue
		}

		data := raw.Get("data")
		ev := model.CanonicalEvent{
			Seq:     seq,
			Kind:    kind,
			Tick:    int(requireInt(raw, "tick", 0, seq, sink)),
			Round:   model.RoundPending,
			RawType: typ,
		}

		switch kind {
		case model.KindKill:
			ev.Actor, ev.ActorTeam = res.playerRef(firstField(data, "attacker", "killer"))
			ev.Target, ev.TargetTeam = res.playerRef(firstField(data, "victim", "user"))
			ev.Assister, _ = res.playerRef(data.Get("assister"))
			ev.Weapon = data.Get("weapon").String()
			ev.Headshot = data.Get("headshot").Bool()
			ev.Pos = posOf(firstField(data, "victim_position", "position"))
			if !data.Get("weapon").Exists() {
				sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
					`missing "weapon" on kill, defaulted to ""`)
			}
		case model.KindDamage:
			ev.Actor, ev.ActorTeam = res.playerRef(data.Get("attacker"))
			ev.Target, ev.TargetTeam = res.playerRef(firstField(data, "victim", "player", "user"))
			ev.Damage = int(requireInt(data, "dmg_health", 0, seq, sink))
			ev.HitGroup = hitGroupOf(data.Get("hitgroup"))
			ev.Weapon = data.Get("weapon").String()
			ev.Pos = posOf(firstField(data, "victim_position", "position"))
		case model.KindWeaponFire:
			ev.Actor, ev.ActorTeam = res.playerRef(firstField(data, "user", "player", "shooter"))
			ev.Weapon = data.Get("weapon").String()
			ev.Pos = posOf(data.Get("position"))
		case model.KindFlash:
			ev.Actor, ev.ActorTeam = res.playerRef(data.Get("attacker"))
			ev.Target, ev.TargetTeam = res.playerRef(firstField(data, "player", "victim"))
		case model.KindRoundStart:
			// Round numbers in the payload are hints; the indexer assigns
			// the authoritative numbering from boundary order.
		case model.KindRoundEnd:
			ev.Winner = teamOf(data.Get("winner"))
			ev.Reason = data.Get("reason").String()
			if ev.Winner == model.TeamUnknown {
				sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
					fmt.Sprintf("unrecognized round winner %q", data.Get("winner").String()))
			}
		case model.KindPlant, model.KindDefuse:
			ev.Actor, ev.ActorTeam = res.playerRef(firstField(data, "player", "user"))
			ev.Pos = posOf(data.Get("position"))
		case model.KindChat:
			ev.Actor, ev.ActorTeam = res.playerRef(firstField(data, "player", "sender"))
			if ev.Actor == 0 {
				ev.Actor = steamID(firstField(data, "steam_id", "steam_id64"))
			}
			ev.Message = firstField(data, "message", "text").String()
			ev.TeamChat = data.Get("is_team_chat").Bool()
			if name := data.Get("player_name").String(); name != "" {
				res.addPlayer(ev.Actor, name, ev.ActorTeam)
			}
		}

		res.Events = append(res.Events, ev)
	}
	return res
}

// playerRef reads a v3 player sub-object, registering the identity as a
// side effect. Returns 0 for absent or unparseable references.
func (r *Result) playerRef(obj gjson.Result) (uint64, model.Team) {
	if !obj.IsObject() {
		return 0, model.TeamUnknown
	}
	id := steamID(firstField(obj, "steam_id64", "steamid", "xuid"))
	team := teamOf(obj.Get("team"))
	r.addPlayer(id, obj.Get("name").String(), team)
	return id, team
}

// appendUnknown keeps an unrecognized event type in the stream when it has
// a usable tick, otherwise routes it to the unprocessed side list.
func (r *Result) appendUnknown(raw gjson.Result, typ string, seq int, sink *diag.Sink) {
	tick := raw.Get("tick")
	if !tick.Exists() || tick.Type != gjson.Number {
		r.Unprocessed = append(r.Unprocessed, model.UnprocessedRecord{
			Seq:     seq,
			RawType: typ,
			Raw:     unprocessedRaw(raw),
			Reason:  "unknown kind without tick",
		})
		return
	}
	sink.FlagEvent(model.FlagUnclassifiedKind, model.RoundPending, seq,
		fmt.Sprintf("unrecognized event type %q retained as unclassified", typ))
	r.Events = append(r.Events, model.CanonicalEvent{
		Seq:     seq,
		Kind:    model.KindUnclassified,
		Tick:    int(tick.Int()),
		Round:   model.RoundPending,
		RawType: typ,
	})
}
