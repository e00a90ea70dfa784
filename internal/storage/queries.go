package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pable/go-cs-ingest/internal/model"
)

// MatchExists reports whether a match with the given payload hash is
// already stored.
func (db *DB) MatchExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM matches WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindHashByPrefix resolves a short hash prefix to the full stored hash.
// Ambiguous prefixes are an error.
func (db *DB) FindHashByPrefix(prefix string) (string, error) {
	rows, err := db.conn.Query("SELECT hash FROM matches WHERE hash LIKE ? || '%' LIMIT 2", prefix)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return "", err
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(hashes) {
	case 0:
		return "", fmt.Errorf("no match with hash prefix %q", prefix)
	case 1:
		return hashes[0], nil
	default:
		return "", fmt.Errorf("hash prefix %q is ambiguous", prefix)
	}
}

// InsertMatch persists a complete model in one transaction. Re-inserting
// the same payload hash replaces the previous rows, so re-ingestion is
// idempotent.
func (db *DB) InsertMatch(m *model.MatchModel) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ct, t := m.Scoreboard()
	rounds := competitiveRounds(m.Rounds())
	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO matches(hash, run_id, source, schema, ingest_date, map_name,
			ct_score, t_score, rounds, events, degraded)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		m.PayloadHash(), m.RunID(), m.Source(), m.Schema().String(), m.IngestDate(),
		m.MapName(), ct, t, rounds, m.Timeline().Len(), boolInt(m.Degraded()),
	); err != nil {
		return fmt.Errorf("insert match: %w", err)
	}

	// Child rows have no stable natural keys across ingestions; clear and
	// rewrite them.
	for _, table := range []string{
		"players", "round_spans", "timeline_events", "player_stats",
		"team_stats", "integrity_flags", "chat_messages", "unprocessed_records",
	} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE match_hash = ?", m.PayloadHash()); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err := insertChildren(tx, m); err != nil {
		return err
	}
	return tx.Commit()
}

func insertChildren(tx *sql.Tx, m *model.MatchModel) error {
	hash := m.PayloadHash()

	for id, p := range m.Players() {
		if _, err := tx.Exec(`
			INSERT INTO players(match_hash, steam_id, name, team) VALUES (?,?,?,?)`,
			hash, sid(id), p.Name, p.Team.String(),
		); err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
	}

	for _, span := range m.Rounds() {
		if _, err := tx.Exec(`
			INSERT INTO round_spans(match_hash, number, label, start_tick, end_tick,
				winner, reason, pseudo, inferred, degraded)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			hash, span.Number, span.Label, span.StartTick, span.EndTick,
			span.Winner.String(), span.Reason,
			boolInt(span.Pseudo), boolInt(span.Inferred), boolInt(span.Degraded),
		); err != nil {
			return fmt.Errorf("insert round span: %w", err)
		}
	}

	stmt, err := tx.Prepare(`
		INSERT INTO timeline_events(match_hash, seq, round, kind, tick,
			actor, target, assister, actor_team, target_team,
			pos_x, pos_y, pos_z, weapon, damage, hit_group, headshot,
			winner, reason, message, team_chat, raw_type)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, span := range m.Timeline().Rounds() {
		events, _ := m.Timeline().Round(span.Number)
		for _, ev := range events {
			var px, py, pz any
			if ev.Pos != nil {
				px, py, pz = ev.Pos.X, ev.Pos.Y, ev.Pos.Z
			}
			if _, err := stmt.Exec(
				hash, ev.Seq, ev.Round, ev.Kind.String(), ev.Tick,
				sid(ev.Actor), sid(ev.Target), sid(ev.Assister),
				ev.ActorTeam.String(), ev.TargetTeam.String(),
				px, py, pz, ev.Weapon, ev.Damage, ev.HitGroup, boolInt(ev.Headshot),
				ev.Winner.String(), ev.Reason, ev.Message, boolInt(ev.TeamChat), ev.RawType,
			); err != nil {
				return fmt.Errorf("insert timeline event: %w", err)
			}
		}
	}

	for _, s := range m.Stats() {
		groups, err := json.Marshal(s.HitGroups)
		if err != nil {
			return fmt.Errorf("encode hit groups: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO player_stats(match_hash, steam_id, name, team,
				kills, assists, deaths, headshots, damage, utility_damage,
				shots_fired, hits, rounds_played, hit_groups, estimated)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			hash, sid(s.SteamID64), s.Name, s.Team.String(),
			s.Kills, s.Assists, s.Deaths, s.Headshots, s.Damage, s.UtilityDmg,
			s.ShotsFired, s.Hits, s.RoundsPlayed, string(groups), boolInt(s.Estimated),
		); err != nil {
			return fmt.Errorf("insert player stats: %w", err)
		}
	}

	for _, ts := range m.TeamTotals() {
		if _, err := tx.Exec(`
			INSERT INTO team_stats(match_hash, team, rounds_won, kills, deaths, damage)
			VALUES (?,?,?,?,?,?)`,
			hash, ts.Team.String(), ts.RoundsWon, ts.Kills, ts.Deaths, ts.Damage,
		); err != nil {
			return fmt.Errorf("insert team stats: %w", err)
		}
	}

	for _, f := range m.Flags() {
		if _, err := tx.Exec(`
			INSERT INTO integrity_flags(match_hash, code, round, seq, detail)
			VALUES (?,?,?,?,?)`,
			hash, string(f.Code), f.Round, f.Seq, f.Detail,
		); err != nil {
			return fmt.Errorf("insert flag: %w", err)
		}
	}

	for i, c := range m.Chat() {
		if _, err := tx.Exec(`
			INSERT INTO chat_messages(match_hash, idx, tick, round, steam_id, name, message, team_chat)
			VALUES (?,?,?,?,?,?,?,?)`,
			hash, i, c.Tick, c.Round, sid(c.SteamID64), c.Name, c.Message, boolInt(c.TeamChat),
		); err != nil {
			return fmt.Errorf("insert chat: %w", err)
		}
	}

	for _, rec := range m.Unprocessed() {
		if _, err := tx.Exec(`
			INSERT INTO unprocessed_records(match_hash, seq, raw_type, raw, tick, reason)
			VALUES (?,?,?,?,?,?)`,
			hash, rec.Seq, rec.RawType, rec.Raw, rec.Tick, rec.Reason,
		); err != nil {
			return fmt.Errorf("insert unprocessed record: %w", err)
		}
	}
	return nil
}

// ListMatches returns summaries of all stored matches, newest first.
func (db *DB) ListMatches() ([]model.MatchSummary, error) {
	rows, err := db.conn.Query(`
		SELECT hash, run_id, source, schema, ingest_date, map_name,
			ct_score, t_score, rounds, events, degraded
		FROM matches ORDER BY ingest_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MatchSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSummary returns one match's summary row.
func (db *DB) GetSummary(hash string) (model.MatchSummary, error) {
	row := db.conn.QueryRow(`
		SELECT hash, run_id, source, schema, ingest_date, map_name,
			ct_score, t_score, rounds, events, degraded
		FROM matches WHERE hash = ?`, hash)
	return scanSummary(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (model.MatchSummary, error) {
	var s model.MatchSummary
	var schemaName string
	var degraded int
	err := row.Scan(&s.PayloadHash, &s.RunID, &s.Source, &schemaName, &s.IngestDate,
		&s.MapName, &s.CTScore, &s.TScore, &s.Rounds, &s.Events, &degraded)
	if err != nil {
		return s, err
	}
	s.Schema = model.ParseSchemaVersion(schemaName)
	s.Degraded = degraded != 0
	return s, nil
}

// GetPlayerStats returns a match's scoreboard in stored (ranked) order.
func (db *DB) GetPlayerStats(hash string) ([]model.PlayerStats, error) {
	rows, err := db.conn.Query(`
		SELECT steam_id, name, team, kills, assists, deaths, headshots,
			damage, utility_damage, shots_fired, hits, rounds_played,
			hit_groups, estimated
		FROM player_stats WHERE match_hash = ?
		ORDER BY kills DESC, steam_id ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerStats
	for rows.Next() {
		s := model.PlayerStats{PayloadHash: hash}
		var id, team, groups string
		var estimated int
		if err := rows.Scan(&id, &s.Name, &team, &s.Kills, &s.Assists, &s.Deaths,
			&s.Headshots, &s.Damage, &s.UtilityDmg, &s.ShotsFired, &s.Hits,
			&s.RoundsPlayed, &groups, &estimated); err != nil {
			return nil, err
		}
		s.SteamID64 = parseSID(id)
		s.Team = model.ParseTeam(team)
		s.Estimated = estimated != 0
		if groups != "" {
			if err := json.Unmarshal([]byte(groups), &s.HitGroups); err != nil {
				return nil, fmt.Errorf("decode hit groups: %w", err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetTeamStats returns a match's per-team totals, CT first.
func (db *DB) GetTeamStats(hash string) ([]model.TeamStats, error) {
	rows, err := db.conn.Query(`
		SELECT team, rounds_won, kills, deaths, damage
		FROM team_stats WHERE match_hash = ? ORDER BY team ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TeamStats
	for rows.Next() {
		var ts model.TeamStats
		var team string
		if err := rows.Scan(&team, &ts.RoundsWon, &ts.Kills, &ts.Deaths, &ts.Damage); err != nil {
			return nil, err
		}
		ts.Team = model.ParseTeam(team)
		out = append(out, ts)
	}
	return out, rows.Err()
}

// GetRoundSpans returns a match's spans ordered by start tick.
func (db *DB) GetRoundSpans(hash string) ([]model.RoundSpan, error) {
	rows, err := db.conn.Query(`
		SELECT number, label, start_tick, end_tick, winner, reason,
			pseudo, inferred, degraded
		FROM round_spans WHERE match_hash = ? ORDER BY start_tick ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RoundSpan
	for rows.Next() {
		var s model.RoundSpan
		var winner string
		var pseudo, inferred, degraded int
		if err := rows.Scan(&s.Number, &s.Label, &s.StartTick, &s.EndTick,
			&winner, &s.Reason, &pseudo, &inferred, &degraded); err != nil {
			return nil, err
		}
		s.Winner = model.ParseTeam(winner)
		s.Pseudo = pseudo != 0
		s.Inferred = inferred != 0
		s.Degraded = degraded != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetTimelineRound returns one round's events in replay order.
func (db *DB) GetTimelineRound(hash string, round int) ([]model.CanonicalEvent, error) {
	rows, err := db.conn.Query(`
		SELECT seq, round, kind, tick, actor, target, assister,
			actor_team, target_team, pos_x, pos_y, pos_z,
			weapon, damage, hit_group, headshot, winner, reason,
			message, team_chat, raw_type
		FROM timeline_events WHERE match_hash = ? AND round = ?
		ORDER BY tick ASC, seq ASC`, hash, round)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// GetTimeline returns every stored timeline event grouped into rounds.
func (db *DB) GetTimeline(hash string) (*model.Timeline, error) {
	spans, err := db.GetRoundSpans(hash)
	if err != nil {
		return nil, err
	}
	var rounds []model.TimelineRound
	for _, span := range spans {
		if span.Pseudo || span.Number <= 0 {
			continue
		}
		events, err := db.GetTimelineRound(hash, span.Number)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, model.TimelineRound{Span: span, Events: events})
	}
	return model.NewTimeline(rounds), nil
}

func scanEvents(rows *sql.Rows) ([]model.CanonicalEvent, error) {
	var out []model.CanonicalEvent
	for rows.Next() {
		var ev model.CanonicalEvent
		var kind, actor, target, assister, actorTeam, targetTeam, winner string
		var px, py, pz sql.NullFloat64
		var headshot, teamChat int
		if err := rows.Scan(&ev.Seq, &ev.Round, &kind, &ev.Tick,
			&actor, &target, &assister, &actorTeam, &targetTeam,
			&px, &py, &pz, &ev.Weapon, &ev.Damage, &ev.HitGroup, &headshot,
			&winner, &ev.Reason, &ev.Message, &teamChat, &ev.RawType); err != nil {
			return nil, err
		}
		ev.Kind = parseKind(kind)
		ev.Actor = parseSID(actor)
		ev.Target = parseSID(target)
		ev.Assister = parseSID(assister)
		ev.ActorTeam = model.ParseTeam(actorTeam)
		ev.TargetTeam = model.ParseTeam(targetTeam)
		if px.Valid {
			ev.Pos = &model.Vec3{X: px.Float64, Y: py.Float64, Z: pz.Float64}
		}
		ev.Headshot = headshot != 0
		ev.Winner = model.ParseTeam(winner)
		ev.TeamChat = teamChat != 0
		out = append(out, ev)
	}
	return out, rows.Err()
}

// GetFlags returns a match's integrity flags in recording order.
func (db *DB) GetFlags(hash string) ([]model.IntegrityFlag, error) {
	rows, err := db.conn.Query(`
		SELECT code, round, seq, detail FROM integrity_flags
		WHERE match_hash = ? ORDER BY rowid ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IntegrityFlag
	for rows.Next() {
		var f model.IntegrityFlag
		var code string
		if err := rows.Scan(&code, &f.Round, &f.Seq, &f.Detail); err != nil {
			return nil, err
		}
		f.Code = model.FlagCode(code)
		out = append(out, f)
	}
	return out, rows.Err()
}

// GetChat returns a match's chat transcript in emission order.
func (db *DB) GetChat(hash string) ([]model.ChatMessage, error) {
	rows, err := db.conn.Query(`
		SELECT tick, round, steam_id, name, message, team_chat
		FROM chat_messages WHERE match_hash = ? ORDER BY idx ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ChatMessage
	for rows.Next() {
		var c model.ChatMessage
		var id string
		var teamChat int
		if err := rows.Scan(&c.Tick, &c.Round, &id, &c.Name, &c.Message, &teamChat); err != nil {
			return nil, err
		}
		c.SteamID64 = parseSID(id)
		c.TeamChat = teamChat != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetUnprocessed returns a match's irreparable records.
func (db *DB) GetUnprocessed(hash string) ([]model.UnprocessedRecord, error) {
	rows, err := db.conn.Query(`
		SELECT seq, raw_type, raw, tick, reason FROM unprocessed_records
		WHERE match_hash = ? ORDER BY seq ASC`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UnprocessedRecord
	for rows.Next() {
		var rec model.UnprocessedRecord
		if err := rows.Scan(&rec.Seq, &rec.RawType, &rec.Raw, &rec.Tick, &rec.Reason); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetPlayers returns a match's roster.
func (db *DB) GetPlayers(hash string) (map[uint64]model.PlayerIdentity, error) {
	rows, err := db.conn.Query(`
		SELECT steam_id, name, team FROM players WHERE match_hash = ?`, hash)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uint64]model.PlayerIdentity)
	for rows.Next() {
		var id, team string
		var p model.PlayerIdentity
		if err := rows.Scan(&id, &p.Name, &team); err != nil {
			return nil, err
		}
		p.SteamID64 = parseSID(id)
		p.Team = model.ParseTeam(team)
		out[p.SteamID64] = p
	}
	return out, rows.Err()
}

// LoadModel reassembles a stored match into a MatchModel so presentation
// commands can serve from the store without re-ingesting.
func (db *DB) LoadModel(hash string) (*model.MatchModel, error) {
	summary, err := db.GetSummary(hash)
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", hash, err)
	}
	players, err := db.GetPlayers(hash)
	if err != nil {
		return nil, err
	}
	spans, err := db.GetRoundSpans(hash)
	if err != nil {
		return nil, err
	}
	timeline, err := db.GetTimeline(hash)
	if err != nil {
		return nil, err
	}
	playerStats, err := db.GetPlayerStats(hash)
	if err != nil {
		return nil, err
	}
	teamStats, err := db.GetTeamStats(hash)
	if err != nil {
		return nil, err
	}
	chat, err := db.GetChat(hash)
	if err != nil {
		return nil, err
	}
	flags, err := db.GetFlags(hash)
	if err != nil {
		return nil, err
	}
	unprocessed, err := db.GetUnprocessed(hash)
	if err != nil {
		return nil, err
	}

	return model.NewMatchModel(model.MatchModelParams{
		RunID:       summary.RunID,
		PayloadHash: summary.PayloadHash,
		Source:      summary.Source,
		Schema:      summary.Schema,
		MapName:     summary.MapName,
		IngestDate:  summary.IngestDate,
		Players:     players,
		Rounds:      spans,
		Timeline:    timeline,
		PlayerStats: playerStats,
		TeamStats:   teamStats,
		Chat:        chat,
		Flags:       flags,
		Unprocessed: unprocessed,
	}), nil
}

func competitiveRounds(spans []model.RoundSpan) int {
	n := 0
	for _, s := range spans {
		if !s.Pseudo && s.Number > 0 {
			n++
		}
	}
	return n
}

// sid renders a SteamID64 for storage; 0 stores as the empty string.
func sid(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

func parseSID(s string) uint64 {
	if s == "" {
		return 0
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

func parseKind(s string) model.EventKind {
	for _, k := range []model.EventKind{
		model.KindKill, model.KindDamage, model.KindWeaponFire, model.KindFlash,
		model.KindRoundStart, model.KindRoundEnd, model.KindPlant,
		model.KindDefuse, model.KindChat,
	} {
		if k.String() == s {
			return k
		}
	}
	return model.KindUnclassified
}
