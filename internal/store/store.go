// Package store is the persistence gateway: parameterized queries over the
// sessions, entrants, judges and scores tables. It owns no business logic
// beyond what the schema constraints enforce.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type Session struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	Name      string     `json:"name"`
	EndedAt   *time.Time `json:"endedAt"`
}

// ScoreWrite is one (entrant, value) pair of an upsert batch.
type ScoreWrite struct {
	EntrantID string
	Value     int
}

func (s *Store) CreateSession(ctx context.Context, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, name, ended_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.Name, &sess.EndedAt)
	if err == sql.ErrNoRows {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("select session: %w", err)
	}
	return sess, nil
}

func (s *Store) SessionExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select session exists: %w", err)
	}
	return exists, nil
}

// ListEntrantNames returns the session's entrant names in insertion order.
func (s *Store) ListEntrantNames(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM entrants WHERE session_id = $1 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("select entrants: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan entrant: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ApplyEntrantDiff deletes and inserts entrants in one transaction. Scores
// referencing a deleted entrant are removed first so no dangling rows
// survive the commit. Insert order follows toAdd.
func (s *Store) ApplyEntrantDiff(ctx context.Context, sessionID string, toDelete, toAdd []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entrant diff: %w", err)
	}
	defer tx.Rollback()

	if len(toDelete) > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM scores WHERE entrant_id IN (
			     SELECT id FROM entrants WHERE session_id = $1 AND name = ANY($2)
			 )`,
			sessionID, toDelete,
		)
		if err != nil {
			return fmt.Errorf("delete scores for removed entrants: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`DELETE FROM entrants WHERE session_id = $1 AND name = ANY($2)`,
			sessionID, toDelete,
		)
		if err != nil {
			return fmt.Errorf("delete entrants: %w", err)
		}
	}

	if len(toAdd) > 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entrants (session_id, name)
			 SELECT $1::uuid, t.name FROM unnest($2::text[]) WITH ORDINALITY AS t(name, ord)
			 ORDER BY t.ord`,
			sessionID, toAdd,
		)
		if err != nil {
			return fmt.Errorf("insert entrants: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit entrant diff: %w", err)
	}
	return nil
}

func (s *Store) InsertJudge(ctx context.Context, sessionID, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO judges (session_id, name) VALUES ($1, $2) RETURNING id`,
		sessionID, name,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert judge: %w", err)
	}
	return id, nil
}

// JudgeIDByName resolves a judge name within a session. Repeated
// registrations under the same name are allowed to pile up rows; the oldest
// one wins so the resolution stays stable.
func (s *Store) JudgeIDByName(ctx context.Context, sessionID, name string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM judges WHERE session_id = $1 AND name = $2 ORDER BY seq LIMIT 1`,
		sessionID, name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select judge: %w", err)
	}
	return id, nil
}

// EntrantIDsByName resolves entrant names within a session. Names with no
// row are simply absent from the result.
func (s *Store) EntrantIDsByName(ctx context.Context, sessionID string, names []string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name FROM entrants WHERE session_id = $1 AND name = ANY($2)`,
		sessionID, names,
	)
	if err != nil {
		return nil, fmt.Errorf("select entrants by name: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan entrant id: %w", err)
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// UpsertScores writes one row per (judge, entrant) pair in a single
// transaction, replacing the stored value when the pair already exists.
func (s *Store) UpsertScores(ctx context.Context, judgeID string, writes []ScoreWrite) error {
	entrantIDs := make([]string, len(writes))
	values := make([]int, len(writes))
	for i, w := range writes {
		entrantIDs[i] = w.EntrantID
		values[i] = w.Value
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scores (judge_id, entrant_id, score)
		 SELECT $1::uuid, unnest($2::uuid[]), unnest($3::int[])
		 ON CONFLICT (entrant_id, judge_id)
		 DO UPDATE SET score = EXCLUDED.score`,
		judgeID, entrantIDs, values,
	)
	if err != nil {
		return fmt.Errorf("upsert scores: %w", err)
	}
	return nil
}

// ScoresByJudge returns entrant name -> score for one judge's rows in a
// session. Entrants the judge has not scored are absent.
func (s *Store) ScoresByJudge(ctx context.Context, sessionID, judgeName string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.name, s.score
		 FROM scores s
		 JOIN entrants e ON s.entrant_id = e.id
		 JOIN judges j ON s.judge_id = j.id
		 WHERE j.session_id = $1 AND j.name = $2`,
		sessionID, judgeName,
	)
	if err != nil {
		return nil, fmt.Errorf("select scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]int)
	for rows.Next() {
		var name string
		var score int
		if err := rows.Scan(&name, &score); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores[name] = score
	}
	return scores, rows.Err()
}
