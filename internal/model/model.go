package model

// Team represents which side a player is on.
type Team int

const (
	TeamUnknown    Team = 0
	TeamSpectators Team = 1
	TeamT          Team = 2
	TeamCT         Team = 3
)

func (t Team) String() string {
	switch t {
	case TeamT:
		return "T"
	case TeamCT:
		return "CT"
	case TeamSpectators:
		return "SPEC"
	default:
		return "?"
	}
}

// ParseTeam is the inverse of Team.String.
func ParseTeam(s string) Team {
	switch s {
	case "T":
		return TeamT
	case "CT":
		return TeamCT
	case "SPEC":
		return TeamSpectators
	default:
		return TeamUnknown
	}
}

// SchemaVersion identifies which generation of the external parser produced
// a payload. Detected once per ingestion and immutable afterwards.
type SchemaVersion int

const (
	SchemaUnknown SchemaVersion = iota
	SchemaCurrent               // "v3" nested-event format
	SchemaPrior                 // flat summary format ("playerstats" block)
	SchemaLegacy                // raw log-line dump (GenericGameEvent strings)
)

func (v SchemaVersion) String() string {
	switch v {
	case SchemaCurrent:
		return "current"
	case SchemaPrior:
		return "prior"
	case SchemaLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseSchemaVersion is the inverse of SchemaVersion.String.
func ParseSchemaVersion(s string) SchemaVersion {
	switch s {
	case "current":
		return SchemaCurrent
	case "prior":
		return SchemaPrior
	case "legacy":
		return SchemaLegacy
	default:
		return SchemaUnknown
	}
}

// EventKind classifies a canonical event.
type EventKind int

const (
	KindUnclassified EventKind = iota
	KindKill
	KindDamage
	KindWeaponFire
	KindFlash
	KindRoundStart
	KindRoundEnd
	KindPlant
	KindDefuse
	KindChat
)

func (k EventKind) String() string {
	switch k {
	case KindKill:
		return "kill"
	case KindDamage:
		return "damage"
	case KindWeaponFire:
		return "weapon_fire"
	case KindFlash:
		return "flash"
	case KindRoundStart:
		return "round_start"
	case KindRoundEnd:
		return "round_end"
	case KindPlant:
		return "plant"
	case KindDefuse:
		return "defuse"
	case KindChat:
		return "chat"
	default:
		return "unclassified"
	}
}

// Vec3 is a 3D world-space position in Hammer units.
type Vec3 struct{ X, Y, Z float64 }

// Pseudo-round numbers for events outside any real round span.
const (
	RoundPending   = 0  // not yet assigned by the indexer
	RoundPreMatch  = -1 // before the first round start
	RoundPostMatch = -2 // after the last round end
	RoundKnife     = -3 // knife round preceding the live match
)

// CanonicalEvent is the single normalized event shape every stage after the
// Normalizer consumes. Events are mutable only during the sanitizer's repair
// pass; once the round indexer has run they are frozen.
type CanonicalEvent struct {
	// Seq is the zero-based position of the event in the original payload.
	// It is the stable secondary sort key for events sharing a tick.
	Seq  int
	Kind EventKind
	Tick int

	// Round is RoundPending until the indexer assigns it.
	Round int

	// Actor and Target are SteamID64s; 0 means unresolved.
	Actor    uint64
	Target   uint64
	Assister uint64 // kills only, 0 if none

	ActorTeam  Team
	TargetTeam Team

	Pos *Vec3 // world position where known

	// Kind-specific fields. Zero values mean "not applicable".
	Weapon   string
	Damage   int
	HitGroup string
	Headshot bool
	Winner   Team   // round_end
	Reason   string // round_end
	Message  string // chat
	TeamChat bool   // chat

	// RawType preserves the payload's original type string for
	// unclassified events.
	RawType string

	// Excluded events stay in storage and (where meaningful) in stats but
	// never enter the replay timeline. ExcludeReason is a reason code such
	// as "tick-inconsistent" or "round-unassigned".
	Excluded      bool
	ExcludeReason string
}

// PlayerIdentity binds a stable platform identity to display data. SteamID64
// is the sole join key across events, stats and external profile lookups.
type PlayerIdentity struct {
	SteamID64 uint64
	Name      string

	// Team is the dominant side across the match; TeamByRound records
	// per-round sides since teams swap at halftime.
	Team        Team
	TeamByRound map[int]Team
}

// RoundSpan is one indexed round: a region of ticks, its outcome, and any
// degradation markers attached during sanitizing/indexing.
type RoundSpan struct {
	Number    int
	Label     string // e.g. "1H-03", "OT1-R2", "pre-match"
	StartTick int
	EndTick   int
	Winner    Team
	Reason    string

	// Pseudo spans (pre-match, post-match, knife round) are retained for
	// audit but excluded from gameplay statistics and replay.
	Pseudo bool

	// Inferred spans had no explicit boundary events; their ticks come
	// from gap analysis and are best-effort.
	Inferred bool

	// Degraded is set when irreparable records fell inside this span.
	Degraded bool
}

// Contains reports whether tick falls inside the span (inclusive bounds).
func (r RoundSpan) Contains(tick int) bool {
	return tick >= r.StartTick && tick <= r.EndTick
}

// UnprocessedRecord is a payload record that could not be repaired into a
// usable CanonicalEvent. Kept on a side list for audit; never enters the
// timeline.
type UnprocessedRecord struct {
	Seq     int
	RawType string
	Raw     string // original payload fragment, verbatim
	Tick    int    // best-effort, 0 if unknown
	Reason  string
}

// ChatMessage is one chat line extracted during normalization.
type ChatMessage struct {
	Tick      int
	Round     int
	SteamID64 uint64
	Name      string
	Message   string
	TeamChat  bool
}
