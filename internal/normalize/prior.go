package normalize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/model"
	"github.com/pable/go-cs-ingest/internal/schema"
)

// priorKinds maps the flat summary generation's bare type strings onto
// canonical kinds.
var priorKinds = map[string]model.EventKind{
	"player_death": model.KindKill,
	"kill":         model.KindKill,
	"player_hurt":  model.KindDamage,
	"weapon_fire":  model.KindWeaponFire,
	"flash":        model.KindFlash,
	"round_start":  model.KindRoundStart,
	"round_end":    model.KindRoundEnd,
	"bomb_planted": model.KindPlant,
	"bomb_defused": model.KindDefuse,
	"chat_message": model.KindChat,
	"say":          model.KindChat,
}

// normalizePrior maps the flat summary format: all event fields live at the
// event's top level and identities come as *_steamid strings.
func normalizePrior(root gjson.Result, sink *diag.Sink) *Result {
	res := newResult()
	res.MapName = firstField(root, "map_name", "map").String()

	for _, key := range []string{"playerstats", "stats"} {
		for _, ps := range root.Get(key).Array() {
			id := steamID(firstField(ps, "steamid", "steam_id64"))
			res.addPlayer(id, firstField(ps, "name", "player_name").String(), teamOf(ps.Get("team")))
		}
	}
	for _, rd := range root.Get("rounds").Array() {
		res.DeclaredRounds = append(res.DeclaredRounds, declaredRound(rd))
	}

	for seq, raw := range schema.EventsArray(root) {
		typ := raw.Get("type").String()
		kind, ok := priorKinds[typ]
		if !ok {
			res.appendUnknown(raw, typ, seq, sink)
			continue
		}

		ev := model.CanonicalEvent{
			Seq:     seq,
			Kind:    kind,
			Tick:    int(requireInt(raw, "tick", 0, seq, sink)),
			Round:   model.RoundPending,
			RawType: typ,
		}

		switch kind {
		case model.KindKill:
			ev.Actor = res.flatRef(raw, "attacker")
			ev.Target = res.flatRef(raw, "victim")
			ev.Assister = res.flatRef(raw, "assister")
			ev.Weapon = raw.Get("weapon").String()
			ev.Headshot = raw.Get("headshot").Bool()
			if !raw.Get("weapon").Exists() {
				sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
					`missing "weapon" on kill, defaulted to ""`)
			}
		case model.KindDamage:
			ev.Actor = res.flatRef(raw, "attacker")
			ev.Target = res.flatRef(raw, "victim")
			ev.Damage = int(requireInt(raw, "dmg_health", 0, seq, sink))
			ev.HitGroup = hitGroupOf(raw.Get("hitgroup"))
			ev.Weapon = raw.Get("weapon").String()
		case model.KindWeaponFire:
			ev.Actor = res.flatRef(raw, "player")
			if ev.Actor == 0 {
				ev.Actor = res.flatRef(raw, "user")
			}
			ev.Weapon = raw.Get("weapon").String()
		case model.KindFlash:
			ev.Actor = res.flatRef(raw, "attacker")
			ev.Target = res.flatRef(raw, "player")
		case model.KindRoundStart:
		case model.KindRoundEnd:
			ev.Winner = teamOf(raw.Get("winner"))
			ev.Reason = raw.Get("reason").String()
			if ev.Winner == model.TeamUnknown {
				sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
					fmt.Sprintf("unrecognized round winner %q", raw.Get("winner").String()))
			}
		case model.KindPlant, model.KindDefuse:
			ev.Actor = res.flatRef(raw, "player")
		case model.KindChat:
			ev.Actor = res.flatRef(raw, "player")
			ev.Message = firstField(raw, "message", "text").String()
			ev.TeamChat = raw.Get("is_team_chat").Bool()
		}

		res.Events = append(res.Events, ev)
	}
	return res
}

// flatRef resolves a flat identity reference: "<role>_steamid" first, then
// the bare role key. Names arrive as "<role>_name" when present.
func (r *Result) flatRef(raw gjson.Result, role string) uint64 {
	id := steamID(firstField(raw, role+"_steamid", role+"_steam_id", role))
	if id == 0 {
		return 0
	}
	r.addPlayer(id, raw.Get(role+"_name").String(), teamOf(raw.Get(role+"_team")))
	return id
}
