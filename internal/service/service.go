// Package service implements the session, entrant and score operations, plus
// the broadcast side effects that keep live connections in sync with the
// durable state.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/zoravur/scorecast/internal/protocol"
	"github.com/zoravur/scorecast/internal/store"
)

// ErrBadInput means a caller-supplied identifier did not resolve: an unknown
// judge name, or a score batch where no entrant name matched the session.
var ErrBadInput = errors.New("bad input")

// DefaultSessionName is the placeholder a new session starts with.
const DefaultSessionName = "Untitled Session"

// Broadcaster is the delivery half the service triggers after successful
// writes. Satisfied by live.Router; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msg any) (delivered, skipped int)
	TellHost(sessionID string, msg any) (delivered, skipped int)
}

type Service struct {
	store  *store.Store
	router Broadcaster
	log    *zap.Logger
}

func New(st *store.Store, router Broadcaster, log *zap.Logger) *Service {
	if log == nil {
		log = zap.L()
	}
	return &Service{store: st, router: router, log: log}
}

func (s *Service) CreateSession(ctx context.Context) (string, error) {
	return s.store.CreateSession(ctx, DefaultSessionName)
}

func (s *Service) GetSession(ctx context.Context, id string) (store.Session, error) {
	return s.store.GetSession(ctx, id)
}

// GetEntrants lists the session's roster in insertion order. A missing
// session is ErrNotFound; an existing session with no entrants is an empty
// list, and the two are never conflated.
func (s *Service) GetEntrants(ctx context.Context, id string) ([]string, error) {
	exists, err := s.store.SessionExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	names, err := s.store.ListEntrantNames(ctx, id)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// SetEntrants diffs the desired roster against the persisted one. Entrants
// no longer wanted are deleted (scores first, same transaction) and
// announced one entrantRemoved each, in current-roster order; new names are
// inserted and announced one entrantAdded each, in request order. Unchanged
// names are left alone. Broadcasts fire only after the commit.
func (s *Service) SetEntrants(ctx context.Context, id string, desired []string) error {
	exists, err := s.store.SessionExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}

	current, err := s.store.ListEntrantNames(ctx, id)
	if err != nil {
		return err
	}

	desiredSet := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		desiredSet[name] = struct{}{}
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, name := range current {
		currentSet[name] = struct{}{}
	}

	var removed []string
	for _, name := range current {
		if _, ok := desiredSet[name]; !ok {
			removed = append(removed, name)
		}
	}

	var added []string
	seen := make(map[string]struct{}, len(desired))
	for _, name := range desired {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if _, ok := currentSet[name]; !ok {
			added = append(added, name)
		}
	}

	if len(removed) > 0 || len(added) > 0 {
		if err := s.store.ApplyEntrantDiff(ctx, id, removed, added); err != nil {
			return err
		}
	}

	for _, name := range removed {
		s.router.BroadcastToSession(id, protocol.NewEntrantRemoved(name))
	}
	for _, name := range added {
		s.router.BroadcastToSession(id, protocol.NewEntrantAdded(name))
	}

	s.log.Info("roster updated",
		zap.String("session_id", id),
		zap.Int("removed", len(removed)),
		zap.Int("added", len(added)),
	)
	return nil
}

// RegisterJudge inserts a judge row unconditionally. Repeat calls for the
// same name each get a fresh row; live-connection uniqueness is the
// registry's job, not the database's.
func (s *Service) RegisterJudge(ctx context.Context, id, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty judge name", ErrBadInput)
	}
	return s.store.InsertJudge(ctx, id, name)
}

// RecordScores upserts one judge's scores. Entrant names that do not resolve
// within the session are dropped from the batch; if none resolve, or the
// judge name is unknown, the call fails with ErrBadInput before any write.
// On success the host is told once, with the full submitted map.
func (s *Service) RecordScores(ctx context.Context, id, judgeName string, scores map[string]int) error {
	if len(scores) == 0 {
		return fmt.Errorf("%w: empty scores", ErrBadInput)
	}

	judgeID, err := s.store.JudgeIDByName(ctx, id, judgeName)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: unknown judge %q", ErrBadInput, judgeName)
	}
	if err != nil {
		return err
	}

	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	entrantIDs, err := s.store.EntrantIDsByName(ctx, id, names)
	if err != nil {
		return err
	}
	if len(entrantIDs) == 0 {
		return fmt.Errorf("%w: no entrant resolved", ErrBadInput)
	}

	writes := make([]store.ScoreWrite, 0, len(entrantIDs))
	for name, entrantID := range entrantIDs {
		writes = append(writes, store.ScoreWrite{EntrantID: entrantID, Value: scores[name]})
	}
	if err := s.store.UpsertScores(ctx, judgeID, writes); err != nil {
		return err
	}

	// The host reconciles totals; judges never see each other's scores.
	s.router.TellHost(id, protocol.NewScoreUpdate(judgeName, scores))

	s.log.Info("scores recorded",
		zap.String("session_id", id),
		zap.String("judge_name", judgeName),
		zap.Int("submitted", len(scores)),
		zap.Int("resolved", len(entrantIDs)),
	)
	return nil
}

// GetScores returns entrant name -> score for one judge; entrants the judge
// has not scored are absent from the map.
func (s *Service) GetScores(ctx context.Context, id, judgeName string) (map[string]int, error) {
	return s.store.ScoresByJudge(ctx, id, judgeName)
}
