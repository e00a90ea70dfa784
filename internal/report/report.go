// Package report renders stored matches for the terminal. Estimated rows
// are marked with "~" so degraded numbers are never mistaken for
// authoritative ones.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/go-cs-ingest/internal/model"
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignRight},
		},
		Header: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignCenter},
		},
	}))
}

// PrintMatchSummary prints a one-line header for the match.
func PrintMatchSummary(w io.Writer, s model.MatchSummary) {
	degraded := ""
	if s.Degraded {
		degraded = "  |  DEGRADED"
	}
	fmt.Fprintf(w, "\nMap: %s  |  Ingested: %s  |  Schema: %s  |  Score: CT %d - T %d  |  Hash: %s%s\n\n",
		s.MapName, s.IngestDate, s.Schema, s.CTScore, s.TScore, shortHash(s.PayloadHash), degraded)
}

// PrintMatchList prints the stored-match index.
func PrintMatchList(w io.Writer, list []model.MatchSummary) {
	table := newTable(w)
	table.Header("HASH", "MAP", "SCHEMA", "INGESTED", "SCORE", "ROUNDS", "EVENTS", "SOURCE", "STATE")
	for _, s := range list {
		state := "ok"
		if s.Degraded {
			state = "degraded"
		}
		table.Append(
			shortHash(s.PayloadHash),
			s.MapName,
			s.Schema.String(),
			s.IngestDate,
			fmt.Sprintf("%d:%d", s.CTScore, s.TScore),
			strconv.Itoa(s.Rounds),
			strconv.Itoa(s.Events),
			s.Source,
			state,
		)
	}
	table.Render()
}

// PrintPlayerTable prints the scoreboard. Estimated rows carry a "~" marker.
func PrintPlayerTable(w io.Writer, stats []model.PlayerStats) {
	table := newTable(w)
	table.Header(" ", "NAME", "TEAM", "K", "A", "D", "K/D", "HS%", "ADR", "ACC%", "UTIL_DMG", "ROUNDS")
	for i := range stats {
		s := &stats[i]
		marker := " "
		if s.Estimated {
			marker = "~"
		}
		table.Append(
			marker,
			s.Name,
			s.Team.String(),
			strconv.Itoa(s.Kills),
			strconv.Itoa(s.Assists),
			strconv.Itoa(s.Deaths),
			fmt.Sprintf("%.2f", s.KDRatio()),
			fmt.Sprintf("%.0f%%", s.HSPercent()),
			fmt.Sprintf("%.1f", s.ADR()),
			fmt.Sprintf("%.0f%%", s.Accuracy()),
			strconv.Itoa(s.UtilityDmg),
			strconv.Itoa(s.RoundsPlayed),
		)
	}
	table.Render()
}

// PrintTeamTable prints per-side totals.
func PrintTeamTable(w io.Writer, teams []model.TeamStats) {
	table := newTable(w)
	table.Header("TEAM", "ROUNDS_WON", "K", "D", "DMG")
	for _, t := range teams {
		table.Append(
			t.Team.String(),
			strconv.Itoa(t.RoundsWon),
			strconv.Itoa(t.Kills),
			strconv.Itoa(t.Deaths),
			strconv.Itoa(t.Damage),
		)
	}
	table.Render()
}

// PrintRoundTable prints every span, pseudo rounds included. ticksPerSecond
// converts span length to wall-clock; <= 0 leaves the column blank.
func PrintRoundTable(w io.Writer, spans []model.RoundSpan, ticksPerSecond float64) {
	table := newTable(w)
	table.Header("ROUND", "LABEL", "START", "END", "DURATION", "WINNER", "REASON", "NOTES")
	for _, s := range spans {
		number := strconv.Itoa(s.Number)
		if s.Number <= 0 {
			number = "-"
		}
		duration := ""
		if ticksPerSecond > 0 {
			duration = fmt.Sprintf("%.0fs", float64(s.EndTick-s.StartTick)/ticksPerSecond)
		}
		table.Append(
			number,
			s.Label,
			strconv.Itoa(s.StartTick),
			strconv.Itoa(s.EndTick),
			duration,
			s.Winner.String(),
			s.Reason,
			spanNotes(s),
		)
	}
	table.Render()
}

func spanNotes(s model.RoundSpan) string {
	notes := ""
	add := func(n string) {
		if notes != "" {
			notes += ","
		}
		notes += n
	}
	if s.Pseudo {
		add("pseudo")
	}
	if s.Inferred {
		add("inferred")
	}
	if s.Degraded {
		add("degraded")
	}
	return notes
}

// PrintTimeline prints a slice of replay events.
func PrintTimeline(w io.Writer, events []model.CanonicalEvent, players map[uint64]model.PlayerIdentity) {
	table := newTable(w)
	table.Header("TICK", "KIND", "ACTOR", "TARGET", "DETAIL")
	name := func(id uint64) string {
		if id == 0 {
			return "-"
		}
		if p, ok := players[id]; ok && p.Name != "" {
			return p.Name
		}
		return strconv.FormatUint(id, 10)
	}
	for _, ev := range events {
		table.Append(
			strconv.Itoa(ev.Tick),
			ev.Kind.String(),
			name(ev.Actor),
			name(ev.Target),
			eventDetail(ev),
		)
	}
	table.Render()
}

func eventDetail(ev model.CanonicalEvent) string {
	switch ev.Kind {
	case model.KindKill:
		detail := ev.Weapon
		if ev.Headshot {
			detail += " (HS)"
		}
		return detail
	case model.KindDamage:
		detail := fmt.Sprintf("%d dmg", ev.Damage)
		if ev.HitGroup != "" {
			detail += " " + ev.HitGroup
		}
		return detail
	case model.KindWeaponFire:
		return ev.Weapon
	case model.KindRoundEnd:
		return fmt.Sprintf("%s wins (%s)", ev.Winner, ev.Reason)
	case model.KindChat:
		return fmt.Sprintf("%q", ev.Message)
	default:
		if ev.RawType != "" {
			return ev.RawType
		}
		return ""
	}
}

// PrintFlagTable prints the integrity flags recorded during ingestion.
func PrintFlagTable(w io.Writer, flags []model.IntegrityFlag) {
	if len(flags) == 0 {
		fmt.Fprintln(w, "no integrity flags")
		return
	}
	table := newTable(w)
	table.Header("CODE", "ROUND", "SEQ", "DETAIL")
	for _, f := range flags {
		round := "-"
		if f.Round != model.RoundPending {
			round = strconv.Itoa(f.Round)
		}
		seq := "-"
		if f.Seq >= 0 {
			seq = strconv.Itoa(f.Seq)
		}
		table.Append(string(f.Code), round, seq, f.Detail)
	}
	table.Render()
}

// PrintChatTable prints the chat transcript.
func PrintChatTable(w io.Writer, chat []model.ChatMessage) {
	if len(chat) == 0 {
		fmt.Fprintln(w, "no chat messages")
		return
	}
	table := newTable(w)
	table.Header("ROUND", "TICK", "NAME", "SCOPE", "MESSAGE")
	for _, c := range chat {
		scope := "all"
		if c.TeamChat {
			scope = "team"
		}
		round := "-"
		if c.Round > 0 {
			round = strconv.Itoa(c.Round)
		}
		table.Append(round, strconv.Itoa(c.Tick), c.Name, scope, c.Message)
	}
	table.Render()
}

// PrintHitGroups prints one player's damage distribution, largest first.
func PrintHitGroups(w io.Writer, s model.PlayerStats) {
	if len(s.HitGroups) == 0 {
		fmt.Fprintln(w, "no hit data")
		return
	}
	type entry struct {
		group string
		count int
	}
	entries := make([]entry, 0, len(s.HitGroups))
	for g, n := range s.HitGroups {
		entries = append(entries, entry{g, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].group < entries[j].group
	})

	table := newTable(w)
	table.Header("HIT_GROUP", "HITS")
	for _, e := range entries {
		table.Append(e.group, strconv.Itoa(e.count))
	}
	table.Render()
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
