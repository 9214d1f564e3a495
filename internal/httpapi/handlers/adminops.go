package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/admin"
	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/session"
)

// AdminSessions lists sessions with live usage counts.
func (h *Handlers) AdminSessions(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rows, total, err := admin.ListSessions(c.Request.Context(), h.Repo, session.SessionFilter{
		From:         from,
		To:           to,
		AssignmentID: c.Query("assignmentId"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"sessions": rows, "total": total})
}

// AdminEvents dumps one session's full event log.
func (h *Handlers) AdminEvents(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId is required")
		return
	}
	if _, err := h.Repo.GetSession(c.Request.Context(), sid); err != nil {
		h.writeServiceError(c, err)
		return
	}
	events, err := h.Repo.ListEvents(c.Request.Context(), sid, c.Query("channel"), 0)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"events": events})
}

// AdminFlags is the integrity worklist. With a sessionId it returns the
// per-event breakdown for that session; without one it runs the fleet scan
// over the date range.
func (h *Handlers) AdminFlags(c *gin.Context) {
	if sid := c.Query("sessionId"); sid != "" {
		summary, details, err := h.Scanner.SessionFlags(c.Request.Context(), sid)
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
		common.OK(c, gin.H{"summary": summary, "events": details})
		return
	}

	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	items, err := h.Scanner.Scan(c.Request.Context(), from, to, c.Query("assignmentId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"flags": items})
}

type exportRequest struct {
	From *string `json:"from"`
	To   *string `json:"to"`
}

// AdminExport queues an export job and returns its ID for polling. The
// bundle is built by the worker, never inline.
func (h *Handlers) AdminExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}
	if h.Queue == nil {
		common.Fail(c, http.StatusServiceUnavailable, 503, "export queue is not configured")
		return
	}

	id, err := common.NewULID()
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	job := &session.ExportJob{
		ID:       id,
		FromDate: req.From,
		ToDate:   req.To,
		Status:   session.JobQueued,
	}
	if err := h.Repo.CreateExportJob(c.Request.Context(), job); err != nil {
		h.writeServiceError(c, err)
		return
	}
	if err := h.Queue.PublishExport(c.Request.Context(), job.ID); err != nil {
		// The row exists but nothing will pick it up; mark it failed so
		// polling does not hang on "queued" forever.
		if mErr := h.Repo.MarkExportFailed(c.Request.Context(), job.ID, "publish failed: "+err.Error()); mErr != nil {
			h.Logger.Error("mark export failed", zap.Error(mErr), zap.String("job_id", job.ID))
		}
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"jobId": job.ID, "status": job.Status})
}

// AdminExportStatus polls one export job.
func (h *Handlers) AdminExportStatus(c *gin.Context) {
	job, err := h.Repo.GetExportJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		common.Fail(c, http.StatusNotFound, 404, "export job not found")
		return
	}
	common.OK(c, job)
}
