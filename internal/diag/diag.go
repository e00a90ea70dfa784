// Package diag is the diagnostics sink threaded through every pipeline
// stage. Instead of writing to a process-wide log, stages record structured
// integrity flags here; the accumulated flags become part of the MatchModel.
// A zerolog logger mirrors each flag for operator visibility.
package diag

import (
	"github.com/rs/zerolog"

	"github.com/pable/go-cs-ingest/internal/model"
)

// Sink accumulates integrity flags for one ingestion run. It is owned by a
// single pipeline run and is not safe for concurrent use; parallelism is
// restricted to independent matches, each with its own Sink.
type Sink struct {
	log   zerolog.Logger
	flags []model.IntegrityFlag
}

// New returns a Sink mirroring flags to the given logger.
func New(log zerolog.Logger) *Sink {
	return &Sink{log: log}
}

// Nop returns a Sink that accumulates flags without logging, for tests.
func Nop() *Sink {
	return &Sink{log: zerolog.Nop()}
}

// Flag records a match-scoped flag.
func (s *Sink) Flag(code model.FlagCode, detail string) {
	s.add(model.IntegrityFlag{Code: code, Round: model.RoundPending, Seq: -1, Detail: detail})
}

// FlagRound records a round-scoped flag.
func (s *Sink) FlagRound(code model.FlagCode, round int, detail string) {
	s.add(model.IntegrityFlag{Code: code, Round: round, Seq: -1, Detail: detail})
}

// FlagEvent records a flag tied to one event by its emission sequence.
func (s *Sink) FlagEvent(code model.FlagCode, round, seq int, detail string) {
	s.add(model.IntegrityFlag{Code: code, Round: round, Seq: seq, Detail: detail})
}

func (s *Sink) add(f model.IntegrityFlag) {
	s.flags = append(s.flags, f)
	ev := s.log.Warn().Str("code", string(f.Code))
	if f.Round != model.RoundPending {
		ev = ev.Int("round", f.Round)
	}
	if f.Seq >= 0 {
		ev = ev.Int("seq", f.Seq)
	}
	ev.Msg(f.Detail)
}

// Logger exposes the underlying logger for stage-level progress messages
// that are not integrity flags.
func (s *Sink) Logger() *zerolog.Logger { return &s.log }

// Flags returns everything recorded so far, in recording order.
func (s *Sink) Flags() []model.IntegrityFlag { return s.flags }

// Count returns how many flags with the given code were recorded.
func (s *Sink) Count(code model.FlagCode) int {
	n := 0
	for _, f := range s.flags {
		if f.Code == code {
			n++
		}
	}
	return n
}
