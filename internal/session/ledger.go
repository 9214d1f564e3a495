package session

import "context"

// Ledger gates new chat turns against the session's effective prompt cap.
// It holds no counters of its own: the used count is recomputed from the
// event log and the cap re-resolved from the assignment row on every check,
// so the gate can never drift from the data.
type Ledger struct {
	repo       *Repo
	defaultCap int
}

func NewLedger(repo *Repo, defaultCap int) *Ledger {
	if defaultCap <= 0 {
		defaultCap = 100
	}
	return &Ledger{repo: repo, defaultCap: defaultCap}
}

// Admission reports the counts observed when a turn was admitted.
type Admission struct {
	Used int
	Cap  int
}

// ResolveCap returns the session's effective cap: the linked assignment's
// prompt cap when positive, else the global default. A store failure
// propagates; a dangling assignment link falls back to the default
// explicitly rather than admitting unbounded usage.
func (l *Ledger) ResolveCap(ctx context.Context, sess *Session) (int, error) {
	if sess.AssignmentID == nil || *sess.AssignmentID == "" {
		return l.defaultCap, nil
	}
	a, err := l.repo.GetAssignment(ctx, *sess.AssignmentID)
	if err != nil {
		return 0, err
	}
	if a == nil || a.PromptCap <= 0 {
		return l.defaultCap, nil
	}
	return a.PromptCap, nil
}

// CheckAndConsume admits or rejects a new chat turn. The lock check runs
// strictly before the cap check. On admission the consumption is realised
// by the caller persisting the user event; callers needing strict caps must
// serialise count-then-log per session (Service does).
func (l *Ledger) CheckAndConsume(ctx context.Context, sessionID string) (Admission, error) {
	sess, err := l.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Admission{}, err
	}
	return l.checkSession(ctx, sess)
}

func (l *Ledger) checkSession(ctx context.Context, sess *Session) (Admission, error) {
	if sess.LockedAt != nil {
		return Admission{}, ErrSessionLocked
	}

	used, err := l.repo.CountUserEvents(ctx, sess.SessionID)
	if err != nil {
		return Admission{}, err
	}
	cap, err := l.ResolveCap(ctx, sess)
	if err != nil {
		return Admission{}, err
	}

	if used >= cap {
		return Admission{}, &CapError{Used: used, Cap: cap}
	}
	return Admission{Used: used, Cap: cap}, nil
}
