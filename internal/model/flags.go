package model

import "fmt"

// FlagCode enumerates the degradation markers a pipeline stage may attach to
// a match. Stages only ever add flags; nothing removes them.
type FlagCode string

const (
	FlagFieldCoercion      FlagCode = "field-coercion"
	FlagIdentityUnresolved FlagCode = "identity-unresolved"
	FlagIdentityInferred   FlagCode = "identity-inferred"
	FlagTickInconsistent   FlagCode = "tick-inconsistent"
	FlagRoundAmbiguous     FlagCode = "round-boundary-ambiguous"
	FlagSchemaUnrecognized FlagCode = "schema-unrecognized"
	FlagEstimated          FlagCode = "fallback-estimated"
	FlagPartialRound       FlagCode = "partial-round"
	FlagUnclassifiedKind   FlagCode = "unclassified-kind"
)

// IntegrityFlag is one structured degradation marker. Round is RoundPending
// for match-scoped flags; Seq is -1 when the flag is not tied to one event.
type IntegrityFlag struct {
	Code   FlagCode
	Round  int
	Seq    int
	Detail string
}

func (f IntegrityFlag) String() string {
	if f.Round > 0 {
		return fmt.Sprintf("%s-%d: %s", f.Code, f.Round, f.Detail)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}
