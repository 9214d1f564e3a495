package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/admin"
	"github.com/wurksy/wurksy/internal/aiindex"
	"github.com/wurksy/wurksy/internal/artifact"
	"github.com/wurksy/wurksy/internal/auth"
	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/research"
	"github.com/wurksy/wurksy/internal/session"
	"github.com/wurksy/wurksy/internal/store/rabbitmq"
)

// Handlers holds every HTTP handler's dependencies.
type Handlers struct {
	Logger      *zap.Logger
	Sessions    *session.Service
	Repo        *session.Repo
	Scanner     *admin.Scanner
	Assignments *admin.Assignments
	Research    *research.Service
	Index       *aiindex.Builder
	Uploader    artifact.Uploader
	Queue       *rabbitmq.Queue
	Auth        *auth.Manager
	PromptCap   int
}

// writeServiceError maps the session error taxonomy onto HTTP statuses:
// unknown session 404, locked 423, cap reached 429 (with the observed
// counts), anything else 500.
func (h *Handlers) writeServiceError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, session.ErrSessionNotFound):
		common.Fail(c, http.StatusNotFound, 404, "session not found")
	case errors.Is(err, session.ErrSessionLocked):
		common.Fail(c, http.StatusLocked, 423, "session is locked; work has been submitted")
	default:
		if ce, ok := session.AsCapError(err); ok {
			common.FailData(c, http.StatusTooManyRequests, 429, ce.Error(), gin.H{
				"used": ce.Used,
				"cap":  ce.Cap,
			})
			return
		}
		h.Logger.Error("handler error", zap.Error(err), zap.String("path", c.Request.URL.Path))
		common.Fail(c, http.StatusInternalServerError, 500, "internal error")
	}
}

// parseDate accepts YYYY-MM-DD and returns the UTC midnight bound, or nil
// for an empty value.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func dateRange(c *gin.Context) (*time.Time, *time.Time, bool) {
	from, err := parseDate(c.Query("from"), false)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "from must be YYYY-MM-DD")
		return nil, nil, false
	}
	to, err := parseDate(c.Query("to"), true)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "to must be YYYY-MM-DD")
		return nil, nil, false
	}
	return from, to, true
}
