package aiindex

import (
	"context"

	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/session"
)

// Builder assembles a session's AI Index document from the event log and
// renders it. Shared by the student-facing download and the admin export
// worker.
type Builder struct {
	repo   *session.Repo
	ledger *session.Ledger
	scorer *policy.Scorer
}

func NewBuilder(repo *session.Repo, ledger *session.Ledger, scorer *policy.Scorer) *Builder {
	return &Builder{repo: repo, ledger: ledger, scorer: scorer}
}

// Render produces the AI Index PDF for one session.
func (b *Builder) Render(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := b.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	events, err := b.repo.ListEvents(ctx, sessionID, "", 0)
	if err != nil {
		return nil, err
	}
	artifacts, err := b.repo.ListArtifacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	used, err := b.repo.CountUserEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cap, err := b.ledger.ResolveCap(ctx, sess)
	if err != nil {
		return nil, err
	}

	var assignment *session.Assignment
	if sess.AssignmentID != nil {
		assignment, err = b.repo.GetAssignment(ctx, *sess.AssignmentID)
		if err != nil {
			return nil, err
		}
	}

	texts := make([]string, 0, len(events))
	for _, e := range events {
		texts = append(texts, e.Content)
	}

	return Build(Document{
		Session:    sess,
		Assignment: assignment,
		Used:       used,
		Cap:        cap,
		Risk:       b.scorer.Summarise(texts),
		Timeline:   NormaliseEvents(events, artifacts),
	})
}
