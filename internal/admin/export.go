package admin

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/wurksy/wurksy/internal/aiindex"
	"github.com/wurksy/wurksy/internal/session"
)

// Export builds the admin export bundle: a zip holding sessions.csv,
// events.csv and one AI-index PDF per exported session.
type Export struct {
	repo    *session.Repo
	builder *aiindex.Builder
}

func NewExport(repo *session.Repo, builder *aiindex.Builder) *Export {
	return &Export{repo: repo, builder: builder}
}

// Build assembles the bundle for the given date range. Sessions whose PDF
// fails to render are listed in errors.txt rather than failing the export.
func (e *Export) Build(ctx context.Context, from, to *time.Time) ([]byte, error) {
	sessions, _, err := e.repo.ListSessions(ctx, session.SessionFilter{
		From:  from,
		To:    to,
		Limit: maxScanSessions,
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if err := e.writeSessionsCSV(zw, sessions); err != nil {
		return nil, err
	}
	if err := e.writeEventsCSV(ctx, zw, sessions); err != nil {
		return nil, err
	}

	var failures []string
	for _, s := range sessions {
		pdf, err := e.builder.Render(ctx, s.SessionID)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", s.SessionID, err))
			continue
		}
		w, err := zw.Create(fmt.Sprintf("ai-index/%s.pdf", s.SessionID))
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(pdf); err != nil {
			return nil, err
		}
	}

	if len(failures) > 0 {
		w, err := zw.Create("errors.txt")
		if err != nil {
			return nil, err
		}
		for _, line := range failures {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return nil, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Export) writeSessionsCSV(zw *zip.Writer, sessions []session.Session) error {
	w, err := zw.Create("sessions.csv")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"session_id", "mode", "student_id", "module", "assignment_id", "assignment_code", "locked_at", "created_at"}); err != nil {
		return err
	}
	for _, s := range sessions {
		locked := ""
		if s.LockedAt != nil {
			locked = s.LockedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write([]string{
			s.SessionID,
			s.Mode,
			deref(s.StudentID),
			deref(s.StudentModule),
			deref(s.AssignmentID),
			deref(s.AssignmentCode),
			locked,
			s.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (e *Export) writeEventsCSV(ctx context.Context, zw *zip.Writer, sessions []session.Session) error {
	w, err := zw.Create("events.csv")
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"session_id", "role", "channel", "content", "created_at"}); err != nil {
		return err
	}
	for _, s := range sessions {
		evs, err := e.repo.ListEvents(ctx, s.SessionID, "", 0)
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := cw.Write([]string{
				ev.SessionID,
				ev.Role,
				ev.Channel,
				ev.Content,
				ev.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Sessions lists sessions for the admin console with live usage counts.
type SessionRow struct {
	session.Session
	Used int `json:"used"`
}

// ListSessions is the synchronous admin listing backing the console table.
func ListSessions(ctx context.Context, repo *session.Repo, f session.SessionFilter) ([]SessionRow, int64, error) {
	sessions, total, err := repo.ListSessions(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	rows := make([]SessionRow, 0, len(sessions))
	for _, s := range sessions {
		used, err := repo.CountUserEvents(ctx, s.SessionID)
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, SessionRow{Session: s, Used: used})
	}
	return rows, total, nil
}
