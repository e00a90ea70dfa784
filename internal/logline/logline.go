// Package logline extracts structured facts from the external parser's
// console log lines. Both the legacy-generation normalizer and the fallback
// estimator bind lines through these patterns, so the two stages cannot
// drift apart on what a line means.
package logline

import (
	"regexp"
	"strconv"

	"github.com/pable/go-cs-ingest/internal/steam"
)

var (
	// Key names tolerate an optional backslash before each quote so the
	// same patterns bind both decoded log lines and raw, still-escaped
	// JSON text.
	fireRE = regexp.MustCompile(`(?i)Name:\\?"?weapon_fire\\?"?.*?\\?"userid\\?":[^(]*\((\d+)\).*?\\?"weapon\\?":\W*(\w+)`)

	hurtRE = regexp.MustCompile(`(?i)PlayerHurt.*?Player:[^(]*\((0x[0-9a-fA-F]+)\).*?Attacker:[^(]*\((0x[0-9a-fA-F]+)\).*?HealthDamage:(\d+).*?HitGroup:(0x[0-9a-fA-F]+|\d+)`)

	genericHurtRE = regexp.MustCompile(`(?i)Name:\\?"?player_hurt\\?"?.*?\\?"attacker\\?":[^(]*\((\d+)\).*?\\?"dmg_health\\?":[^(]*\((\d+)\).*?\\?"hitgroup\\?":[^(]*\((\d+)\)`)

	infoRE = regexp.MustCompile(`(?i)XUID:(0x[0-9a-fA-F]+).*?Name:\\?"?([^"\\]+)`)

	roundStartRE = regexp.MustCompile(`(?i)Name:\\?"?round_start\\?"?`)
	roundEndRE   = regexp.MustCompile(`(?i)Name:\\?"?round_end\\?"?(?:.*?\\?"winner\\?":[^(]*\((\d+)\))?`)
)

// Fire is one bound weapon_fire line.
type Fire struct {
	Shooter uint64 // 0 when the userid is an engine-local id
	Weapon  string
}

// Hurt is one bound damage line, from either the hex-XUID or the generic
// form. Zero ids mean the line did not carry that participant.
type Hurt struct {
	Actor    uint64
	Target   uint64
	Damage   int
	HitGroup int
}

// Info is one player-roster line.
type Info struct {
	SteamID64 uint64
	Name      string
}

// ParseFire binds a weapon_fire line.
func ParseFire(line string) (Fire, bool) {
	m := fireRE.FindStringSubmatch(line)
	if m == nil {
		return Fire{}, false
	}
	return Fire{Shooter: platformID(m[1]), Weapon: m[2]}, true
}

// ParseHurt binds a damage line. The hex PlayerHurt form is tried first
// since it carries both participants.
func ParseHurt(line string) (Hurt, bool) {
	if m := hurtRE.FindStringSubmatch(line); m != nil {
		return Hurt{
			Target:   hexID(m[1]),
			Actor:    hexID(m[2]),
			Damage:   atoi(m[3]),
			HitGroup: hitGroup(m[4]),
		}, true
	}
	if m := genericHurtRE.FindStringSubmatch(line); m != nil {
		return Hurt{
			Actor:    platformID(m[1]),
			Damage:   atoi(m[2]),
			HitGroup: atoi(m[3]),
		}, true
	}
	return Hurt{}, false
}

// ParseInfo binds a roster line.
func ParseInfo(line string) (Info, bool) {
	m := infoRE.FindStringSubmatch(line)
	if m == nil {
		return Info{}, false
	}
	id, err := steam.ParseID(m[1])
	if err != nil {
		return Info{}, false
	}
	return Info{SteamID64: id, Name: m[2]}, true
}

// IsRoundStart reports whether line is a round_start marker.
func IsRoundStart(line string) bool { return roundStartRE.MatchString(line) }

// ParseRoundEnd binds a round_end marker, returning the numeric winner code
// (0 when absent).
func ParseRoundEnd(line string) (int, bool) {
	m := roundEndRE.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return atoi(m[1]), true
}

// AllFires binds every weapon_fire line in a raw text blob.
func AllFires(text string) []Fire {
	var out []Fire
	for _, m := range fireRE.FindAllStringSubmatch(text, -1) {
		out = append(out, Fire{Shooter: platformID(m[1]), Weapon: m[2]})
	}
	return out
}

// AllHurts binds every damage line in a raw text blob, both forms.
func AllHurts(text string) []Hurt {
	var out []Hurt
	for _, m := range hurtRE.FindAllStringSubmatch(text, -1) {
		out = append(out, Hurt{
			Target:   hexID(m[1]),
			Actor:    hexID(m[2]),
			Damage:   atoi(m[3]),
			HitGroup: hitGroup(m[4]),
		})
	}
	for _, m := range genericHurtRE.FindAllStringSubmatch(text, -1) {
		out = append(out, Hurt{
			Actor:    platformID(m[1]),
			Damage:   atoi(m[2]),
			HitGroup: atoi(m[3]),
		})
	}
	return out
}

// AllInfos binds every roster line in a raw text blob.
func AllInfos(text string) []Info {
	var out []Info
	for _, m := range infoRE.FindAllStringSubmatch(text, -1) {
		if id, err := steam.ParseID(m[1]); err == nil {
			out = append(out, Info{SteamID64: id, Name: m[2]})
		}
	}
	return out
}

// platformID accepts a decimal id only when it is a real SteamID64;
// engine-local user ids map to 0.
func platformID(s string) uint64 {
	id, err := steam.ParseID(s)
	if err != nil || !steam.IsID64(id) {
		return 0
	}
	return id
}

func hexID(s string) uint64 {
	id, err := steam.ParseID(s)
	if err != nil {
		return 0
	}
	return id
}

// hitGroup accepts the 0x-prefixed or decimal form.
func hitGroup(s string) int {
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0
	}
	return int(n)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
