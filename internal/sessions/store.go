package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/codr1/courtside/internal/db"
	"github.com/codr1/courtside/internal/standings"
)

// Store is the persistence boundary of the service. ListMatches always
// returns participants and results as slices, empty when there are none.
type Store interface {
	GetSession(ctx context.Context, sessionID string) (standings.Session, error)
	ListMatches(ctx context.Context, sessionID string) ([]standings.RawMatch, error)
	ListPlayers(ctx context.Context, ids []string) ([]standings.Player, error)
	ListSessionIDs(ctx context.Context) ([]string, error)
	// ApplyResultChange replaces or deletes the result of one match in a
	// single transaction.
	ApplyResultChange(ctx context.Context, matchID string, change standings.ResultChange) error
}

type SQLStore struct {
	db *db.DB
}

func NewSQLStore(database *db.DB) (*SQLStore, error) {
	if database == nil {
		return nil, errors.New("session store requires a database")
	}
	return &SQLStore{db: database}, nil
}

const getSessionQuery = `
SELECT gs.id, gs.league_id, l.name AS league_name, gs.created_by, gs.created_at,
       gs.scheduled_at, gs.player_count
FROM game_sessions gs
LEFT JOIN leagues l ON l.id = gs.league_id
WHERE gs.id = ?`

func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (standings.Session, error) {
	var session standings.Session
	err := s.db.GetContext(ctx, &session, s.db.Rebind(getSessionQuery), sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return standings.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return standings.Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return session, nil
}

type matchRow struct {
	ID             string `db:"id"`
	SessionID      string `db:"session_id"`
	CourtNumber    *int   `db:"court_number"`
	ScheduledOrder int    `db:"scheduled_order"`
	Status         string `db:"status"`
}

type participantRow struct {
	MatchID string `db:"match_id"`
	standings.RawParticipant
}

type resultRow struct {
	MatchID string `db:"match_id"`
	standings.RawResult
}

const (
	listMatchesQuery = `
SELECT id, session_id, court_number, scheduled_order, status
FROM matches
WHERE session_id = ?
ORDER BY scheduled_order, id`

	listParticipantsQuery = `
SELECT mp.match_id, mp.player_id, mp.team
FROM match_participants mp
JOIN matches m ON m.id = mp.match_id
WHERE m.session_id = ?
ORDER BY mp.match_id, mp.position, mp.player_id`

	listResultsQuery = `
SELECT mr.match_id, mr.team1_score, mr.team2_score, mr.completed_at
FROM match_results mr
JOIN matches m ON m.id = mr.match_id
WHERE m.session_id = ?
ORDER BY mr.match_id, mr.created_at, mr.id`
)

// ListMatches loads matches with their participants and results, grouped
// per match in query order.
func (s *SQLStore) ListMatches(ctx context.Context, sessionID string) ([]standings.RawMatch, error) {
	var matches []matchRow
	if err := s.db.SelectContext(ctx, &matches, s.db.Rebind(listMatchesQuery), sessionID); err != nil {
		return nil, fmt.Errorf("list matches for session %s: %w", sessionID, err)
	}

	var participants []participantRow
	if err := s.db.SelectContext(ctx, &participants, s.db.Rebind(listParticipantsQuery), sessionID); err != nil {
		return nil, fmt.Errorf("list participants for session %s: %w", sessionID, err)
	}

	var results []resultRow
	if err := s.db.SelectContext(ctx, &results, s.db.Rebind(listResultsQuery), sessionID); err != nil {
		return nil, fmt.Errorf("list results for session %s: %w", sessionID, err)
	}

	participantsByMatch := make(map[string][]standings.RawParticipant)
	for _, p := range participants {
		participantsByMatch[p.MatchID] = append(participantsByMatch[p.MatchID], p.RawParticipant)
	}
	resultsByMatch := make(map[string][]standings.RawResult)
	for _, r := range results {
		resultsByMatch[r.MatchID] = append(resultsByMatch[r.MatchID], r.RawResult)
	}

	rows := make([]standings.RawMatch, 0, len(matches))
	for _, m := range matches {
		row := standings.RawMatch{
			ID:             m.ID,
			SessionID:      m.SessionID,
			CourtNumber:    m.CourtNumber,
			ScheduledOrder: m.ScheduledOrder,
			Status:         m.Status,
			Participants:   participantsByMatch[m.ID],
			Results:        resultsByMatch[m.ID],
		}
		if row.Participants == nil {
			row.Participants = []standings.RawParticipant{}
		}
		if row.Results == nil {
			row.Results = []standings.RawResult{}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *SQLStore) ListPlayers(ctx context.Context, ids []string) ([]standings.Player, error) {
	if len(ids) == 0 {
		return []standings.Player{}, nil
	}

	query, args, err := sqlx.In(`
SELECT id, first_name, last_name, email, skill_rating
FROM players
WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("build player query: %w", err)
	}

	players := []standings.Player{}
	if err := s.db.SelectContext(ctx, &players, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

func (s *SQLStore) ListSessionIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, `SELECT id FROM game_sessions ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list session ids: %w", err)
	}
	return ids, nil
}

func (s *SQLStore) ApplyResultChange(ctx context.Context, matchID string, change standings.ResultChange) error {
	return s.db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		var status string
		err := tx.GetContext(ctx, &status, tx.Rebind(`SELECT status FROM matches WHERE id = ?`), matchID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrMatchNotFound, matchID)
		}
		if err != nil {
			return fmt.Errorf("load match %s: %w", matchID, err)
		}

		// replaces any duplicates along with the current result
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM match_results WHERE match_id = ?`), matchID); err != nil {
			return fmt.Errorf("delete result for match %s: %w", matchID, err)
		}

		nextStatus := standings.MatchScheduled
		switch change.Action {
		case standings.ChangeDelete:
		case standings.ChangeUpsert:
			_, err := tx.ExecContext(ctx, tx.Rebind(`
INSERT INTO match_results (id, match_id, team1_score, team2_score, completed_at)
VALUES (?, ?, ?, ?, ?)`),
				uuid.NewString(), matchID, change.Result.Team1Score, change.Result.Team2Score, change.Result.CompletedAt)
			if err != nil {
				return fmt.Errorf("insert result for match %s: %w", matchID, err)
			}
			nextStatus = standings.MatchCompleted
		default:
			return fmt.Errorf("unknown result change action %q", change.Action)
		}

		if standings.MatchStatus(status) == standings.MatchCanceled {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE matches SET status = ? WHERE id = ?`), string(nextStatus), matchID); err != nil {
			return fmt.Errorf("update status for match %s: %w", matchID, err)
		}
		return nil
	})
}
