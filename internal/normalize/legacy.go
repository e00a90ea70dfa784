package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/pable/go-cs-ingest/internal/diag"
	"github.com/pable/go-cs-ingest/internal/logline"
	"github.com/pable/go-cs-ingest/internal/model"
	"github.com/pable/go-cs-ingest/internal/schema"
)

// normalizeLegacy handles dumps of the external parser's console log: every
// record is a GenericGameEvent or PlayerInfo whose only payload is a
// details.string line. PlayerInfo lines seed identities; fire/hurt/boundary
// lines become events; lines the patterns cannot bind stay unclassified.
func normalizeLegacy(root gjson.Result, sink *diag.Sink) *Result {
	res := newResult()
	res.MapName = firstField(root, "map_name", "map").String()

	events := schema.EventsArray(root)

	// Identity pass first so hurt lines resolve hex XUIDs against a
	// complete roster.
	for _, raw := range events {
		if raw.Get("type").String() != "events.PlayerInfo" {
			continue
		}
		if info, ok := logline.ParseInfo(raw.Get("details.string").String()); ok {
			res.addPlayer(info.SteamID64, info.Name, model.TeamUnknown)
		}
	}

	for seq, raw := range events {
		typ := raw.Get("type").String()
		if typ == "events.PlayerInfo" {
			continue
		}
		line := raw.Get("details.string").String()
		if line == "" {
			res.Unprocessed = append(res.Unprocessed, model.UnprocessedRecord{
				Seq:     seq,
				RawType: typ,
				Raw:     unprocessedRaw(raw),
				Tick:    int(optInt(raw, "tick", 0)),
				Reason:  "log record without details.string",
			})
			continue
		}

		ev := model.CanonicalEvent{
			Seq:     seq,
			Kind:    model.KindUnclassified,
			Tick:    int(requireInt(raw, "tick", 0, seq, sink)),
			Round:   model.RoundPending,
			RawType: typ,
		}

		if fire, ok := logline.ParseFire(line); ok {
			ev.Kind = model.KindWeaponFire
			ev.Actor = fire.Shooter
			ev.Weapon = fire.Weapon
			if ev.Actor == 0 {
				sink.FlagEvent(model.FlagFieldCoercion, model.RoundPending, seq,
					"weapon_fire userid is not a platform id")
			}
		} else if hurt, ok := logline.ParseHurt(line); ok {
			ev.Kind = model.KindDamage
			ev.Actor = hurt.Actor
			ev.Target = hurt.Target
			ev.Damage = hurt.Damage
			ev.HitGroup = model.HitGroupName(hurt.HitGroup)
		} else if logline.IsRoundStart(line) {
			ev.Kind = model.KindRoundStart
		} else if winner, ok := logline.ParseRoundEnd(line); ok {
			ev.Kind = model.KindRoundEnd
			ev.Winner = teamFromCode(winner)
		}

		res.Events = append(res.Events, ev)
	}
	return res
}
