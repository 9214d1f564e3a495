package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Repo is the persistence layer for sessions, events, assignments and
// artifacts. Events are append-only; nothing here updates or deletes them.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// ---- sessions ----

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LockSession marks the session terminal for new chat turns. Idempotent:
// an already locked session keeps its original lock time.
func (r *Repo) LockSession(ctx context.Context, sessionID string, lockedAt time.Time, declaration *string) (*Session, error) {
	res := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ? AND locked_at IS NULL", sessionID).
		Updates(map[string]any{
			"locked_at":   lockedAt,
			"declaration": declaration,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetSession(ctx, sessionID)
}

// SessionFilter bounds an admin listing or fleet scan.
type SessionFilter struct {
	From         *time.Time
	To           *time.Time
	AssignmentID string
	Limit        int
	Offset       int
}

// ListSessions returns sessions newest first with the total matching count.
func (r *Repo) ListSessions(ctx context.Context, f SessionFilter) ([]Session, int64, error) {
	q := r.db.WithContext(ctx).Model(&Session{})
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", *f.To)
	}
	if f.AssignmentID != "" {
		q = q.Where("assignment_id = ?", f.AssignmentID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var out []Session
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- events ----

func (r *Repo) InsertEvent(ctx context.Context, e *Event) error {
	if e.Channel == "" {
		e.Channel = ChannelChat
	}
	return r.db.WithContext(ctx).Create(e).Error
}

// ListEvents returns a session's events oldest first, optionally filtered by
// channel. limit <= 0 means no limit.
func (r *Repo) ListEvents(ctx context.Context, sessionID, channel string, limit int) ([]Event, error) {
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC")
	if channel != "" {
		q = q.Where("channel = ?", channel)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []Event
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentEvents returns the most recent events for a session, bounded by
// limit. Order is unspecified; callers that need chronology sort themselves.
func (r *Repo) ListRecentEvents(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	var out []Event
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountUserEvents counts every user-authored event on any channel. This is
// the session's consumed prompt count; it is always derived from the log,
// never held as a separate counter.
func (r *Repo) CountUserEvents(ctx context.Context, sessionID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Event{}).
		Where("session_id = ? AND role = ?", sessionID, RoleUser).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ---- assignments ----

func (r *Repo) CreateAssignment(ctx context.Context, a *Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	var a Assignment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) GetAssignmentByShortCode(ctx context.Context, shortCode string) (*Assignment, error) {
	var a Assignment
	err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *Repo) ShortCodeTaken(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Assignment{}).
		Where("short_code = ?", code).
		Count(&n).Error
	return n > 0, err
}

// ListAssignments returns assignments newest first with the total count.
func (r *Repo) ListAssignments(ctx context.Context, from, to *time.Time, limit, offset int) ([]Assignment, int64, error) {
	q := r.db.WithContext(ctx).Model(&Assignment{})
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var out []Assignment
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ---- artifacts ----

func (r *Repo) InsertArtifact(ctx context.Context, a *Artifact) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) ListArtifacts(ctx context.Context, sessionID string) ([]Artifact, error) {
	var out []Artifact
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
