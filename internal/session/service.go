package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wurksy/wurksy/internal/ai"
	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/policy"
)

const systemPrompt = "You are Wurksy. Answer ONLY in bullet points, under 200 words total. " +
	"No fabricated citations. No ghost-writing. No markdown symbols."

// Service owns the chat turn flow: guard, ledger, model call, event log.
type Service struct {
	repo     *Repo
	ledger   *Ledger
	guard    *policy.Guard
	provider ai.Provider

	// Per-session serialisation of count-then-log, so two racing turns
	// cannot both observe used < cap and overshoot. Entries are never
	// evicted; one mutex per session seen by this process is acceptable.
	locks sync.Map
}

func NewService(repo *Repo, ledger *Ledger, guard *policy.Guard, provider ai.Provider) *Service {
	return &Service{repo: repo, ledger: ledger, guard: guard, provider: provider}
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// StartInput carries the optional context a session starts with.
type StartInput struct {
	Mode           string
	AssignmentCode string
	StudentID      string
	ModuleCode     string
}

// StartResult is the created session plus the cap in force at creation.
type StartResult struct {
	Session *Session
	Cap     int
}

// StartSession creates a session, resolving an assignment short code when
// given. The cap snapshot is stored for display; enforcement re-reads the
// assignment on every turn.
func (s *Service) StartSession(ctx context.Context, in StartInput) (*StartResult, error) {
	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	mode := in.Mode
	if mode == "" {
		mode = ModeGuest
	}

	sess := &Session{SessionID: sid, Mode: mode}
	if in.StudentID != "" {
		sess.StudentID = &in.StudentID
	}
	if in.ModuleCode != "" {
		sess.StudentModule = &in.ModuleCode
	}

	cap := s.ledger.defaultCap
	if code := strings.TrimSpace(in.AssignmentCode); code != "" {
		a, err := s.repo.GetAssignmentByShortCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if a != nil {
			sess.AssignmentID = &a.ID
			sess.AssignmentCode = &a.ShortCode
			if sess.StudentModule == nil && a.ModuleCode != "" {
				mc := a.ModuleCode
				sess.StudentModule = &mc
			}
			if a.PromptCap > 0 {
				cap = a.PromptCap
			}
			sess.CapSnapshot = &cap
		}
	}

	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	return &StartResult{Session: sess, Cap: cap}, nil
}

// TurnResult is the outcome of an admitted chat turn. Used includes the
// turn just logged. Blocked marks the amber refusal path, which logs both
// events but never reaches the model.
type TurnResult struct {
	Reply   string
	Used    int
	Cap     int
	Blocked bool
}

// SendMessage runs one chat turn: lock check, cap check, amber guard, model
// call, event log. Channel tags where the turn originated ("chat",
// "research", ...); every user turn consumes cap regardless.
func (s *Service) SendMessage(ctx context.Context, sessionID, message, channel string) (*TurnResult, error) {
	if channel == "" {
		channel = ChannelChat
	}

	mu := s.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	adm, err := s.ledger.CheckAndConsume(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	cleaned := TrimMessage(message)

	if d := s.guard.Evaluate(cleaned); !d.Allowed {
		// Log the blocked turn and the canned refusal; the model is
		// never called.
		if err := s.repo.InsertEvent(ctx, &Event{SessionID: sessionID, Role: RoleUser, Channel: channel, Content: cleaned}); err != nil {
			return nil, err
		}
		if err := s.repo.InsertEvent(ctx, &Event{SessionID: sessionID, Role: RoleAssistant, Channel: channel, Content: d.Reason}); err != nil {
			return nil, err
		}
		return &TurnResult{Reply: d.Reason, Used: adm.Used + 1, Cap: adm.Cap, Blocked: true}, nil
	}

	if err := s.repo.InsertEvent(ctx, &Event{SessionID: sessionID, Role: RoleUser, Channel: channel, Content: cleaned}); err != nil {
		return nil, err
	}

	text, err := s.provider.Chat(ctx, []ai.Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: cleaned},
	})
	if err != nil {
		return nil, err
	}

	reply := MarkdownToBullets(text)

	if err := s.repo.InsertEvent(ctx, &Event{SessionID: sessionID, Role: RoleAssistant, Channel: channel, Content: reply}); err != nil {
		return nil, err
	}

	return &TurnResult{Reply: reply, Used: adm.Used + 1, Cap: adm.Cap}, nil
}

// History returns the session's events oldest first, optionally filtered by
// channel.
func (s *Service) History(ctx context.Context, sessionID, channel string) ([]Event, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, sessionID, channel, 0)
}

// Submit locks the session for new chat turns, records the student's
// declaration and drops a submission marker on the artifact timeline.
// Index generation stays available afterwards.
func (s *Service) Submit(ctx context.Context, sessionID string, declaration *string) (time.Time, error) {
	before, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now().UTC()
	sess, err := s.repo.LockSession(ctx, sessionID, now, declaration)
	if err != nil {
		return time.Time{}, err
	}

	// Only the first submit records the marker; a locked session's lock is
	// idempotent, so a retry after a failed insert cannot duplicate it.
	if before.LockedAt == nil {
		err := s.repo.InsertArtifact(ctx, &Artifact{
			SessionID: sessionID,
			Kind:      ArtifactSubmission,
			Title:     "AI Index submitted",
			Meta: map[string]any{
				"locked_at":   now.Format(time.RFC3339),
				"declaration": declaration,
			},
		})
		if err != nil {
			return time.Time{}, err
		}
	}

	if sess.LockedAt != nil {
		return *sess.LockedAt, nil
	}
	return now, nil
}

// RecordPaperClick logs a paper open on the session log and keeps the paper
// itself as a research artifact for the AI Index timeline. Clicks are
// user-authored events, so they count toward the cap like any other.
func (s *Service) RecordPaperClick(ctx context.Context, sessionID string, meta map[string]any) error {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return err
	}
	title, _ := meta["title"].(string)
	if title == "" {
		title = "Unknown title"
	}

	err := s.repo.InsertEvent(ctx, &Event{
		SessionID: sessionID,
		Role:      RoleUser,
		Channel:   ChannelResearchClick,
		Content:   "Opened paper: " + title,
		Meta:      meta,
	})
	if err != nil {
		return err
	}
	return s.repo.InsertArtifact(ctx, &Artifact{
		SessionID: sessionID,
		Kind:      ArtifactResearch,
		Title:     title,
		Meta:      meta,
	})
}

// RecordPaperResolve logs a PDF resolution for the session.
func (s *Service) RecordPaperResolve(ctx context.Context, sessionID string, meta map[string]any) error {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return err
	}
	return s.repo.InsertEvent(ctx, &Event{
		SessionID: sessionID,
		Role:      RoleUser,
		Channel:   ChannelResearchResolve,
		Content:   "Resolved paper PDF",
		Meta:      meta,
	})
}

// Meta is the session state shown to the student UI.
type Meta struct {
	Session    *Session
	Assignment *Assignment
	Used       int
	Cap        int
}

// Meta returns the session, its assignment (if any), and the live used
// count and cap.
func (s *Service) Meta(ctx context.Context, sessionID string) (*Meta, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var a *Assignment
	if sess.AssignmentID != nil && *sess.AssignmentID != "" {
		a, err = s.repo.GetAssignment(ctx, *sess.AssignmentID)
		if err != nil {
			return nil, err
		}
	}

	used, err := s.repo.CountUserEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cap, err := s.ledger.ResolveCap(ctx, sess)
	if err != nil {
		return nil, err
	}

	return &Meta{Session: sess, Assignment: a, Used: used, Cap: cap}, nil
}
