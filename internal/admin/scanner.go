package admin

import (
	"context"
	"sort"
	"time"

	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/session"
)

// Scan bounds. A fleet scan reads at most maxScanSessions sessions in the
// requested range and samples the most recent maxEventsPerSession events of
// each, so one scan cannot grow unbounded with session history.
const (
	maxScanSessions     = 1000
	maxEventsPerSession = 500
)

// Scanner ranks sessions in a date range by flagged-content risk.
type Scanner struct {
	repo   *session.Repo
	scorer *policy.Scorer
}

func NewScanner(repo *session.Repo, scorer *policy.Scorer) *Scanner {
	return &Scanner{repo: repo, scorer: scorer}
}

// ScanItem is one ranked worklist entry. Err marks a session whose events
// could not be fetched; such items carry no score and must not be read as
// zero-risk.
type ScanItem struct {
	SessionID      string         `json:"sessionId"`
	CreatedAt      time.Time      `json:"created_at"`
	Score          int            `json:"score"`
	Level          string         `json:"level"`
	Counts         map[string]int `json:"counts"`
	AssignmentID   *string        `json:"assignment_id"`
	AssignmentCode *string        `json:"assignment_code"`
	Err            error          `json:"-"`
	ErrMessage     string         `json:"error,omitempty"`
}

// Scan aggregates risk for every session in range and returns the worklist
// sorted by score descending. Zero-risk sessions are dropped; ties keep
// input order (newest session first); fetch failures surface as items with
// Err set, sorted after all scored items.
func (s *Scanner) Scan(ctx context.Context, from, to *time.Time, assignmentID string) ([]ScanItem, error) {
	sessions, _, err := s.repo.ListSessions(ctx, session.SessionFilter{
		From:         from,
		To:           to,
		AssignmentID: assignmentID,
		Limit:        maxScanSessions,
	})
	if err != nil {
		return nil, err
	}

	var items []ScanItem
	for _, sess := range sessions {
		evs, err := s.repo.ListRecentEvents(ctx, sess.SessionID, maxEventsPerSession)
		if err != nil {
			// One bad session must not abort the scan; the item is
			// marked so the caller can tell "unavailable" from "clean".
			items = append(items, ScanItem{
				SessionID:      sess.SessionID,
				CreatedAt:      sess.CreatedAt,
				AssignmentID:   sess.AssignmentID,
				AssignmentCode: sess.AssignmentCode,
				Err:            err,
				ErrMessage:     err.Error(),
			})
			continue
		}

		texts := make([]string, 0, len(evs))
		for _, e := range evs {
			texts = append(texts, e.Content)
		}
		sum := s.scorer.Summarise(texts)
		if sum.TotalScore == 0 {
			continue
		}

		items = append(items, ScanItem{
			SessionID:      sess.SessionID,
			CreatedAt:      sess.CreatedAt,
			Score:          sum.TotalScore,
			Level:          sum.Level,
			Counts:         sum.Counts,
			AssignmentID:   sess.AssignmentID,
			AssignmentCode: sess.AssignmentCode,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items, nil
}

// EventFlags is one event annotated with its per-event scorer result.
type EventFlags struct {
	Event session.Event `json:"event"`
	Score int           `json:"score"`
	Hits  []string      `json:"hits"`
}

// SessionFlags scores one session in full: the aggregate summary plus a
// per-event breakdown in chronological order.
func (s *Scanner) SessionFlags(ctx context.Context, sessionID string) (policy.Summary, []EventFlags, error) {
	evs, err := s.repo.ListEvents(ctx, sessionID, "", 0)
	if err != nil {
		return policy.Summary{}, nil, err
	}

	texts := make([]string, 0, len(evs))
	details := make([]EventFlags, 0, len(evs))
	for _, e := range evs {
		texts = append(texts, e.Content)
		score, hits := s.scorer.Score(e.Content)
		details = append(details, EventFlags{Event: e, Score: score, Hits: hits})
	}
	return s.scorer.Summarise(texts), details, nil
}
