package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/session"
)

type startRequest struct {
	Mode           string `json:"mode"`
	AssignmentCode string `json:"assignmentCode"`
	StudentID      string `json:"studentId"`
	ModuleCode     string `json:"moduleCode"`
}

// Start creates a session, optionally bound to an assignment short code.
func (h *Handlers) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}

	res, err := h.Sessions.StartSession(c.Request.Context(), session.StartInput{
		Mode:           req.Mode,
		AssignmentCode: req.AssignmentCode,
		StudentID:      req.StudentID,
		ModuleCode:     req.ModuleCode,
	})
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{
		"sessionId": res.Session.SessionID,
		"session":   res.Session,
		"cap":       res.Cap,
	})
}

// SessionMeta returns the session, its assignment and the live usage counts.
func (h *Handlers) SessionMeta(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId is required")
		return
	}
	meta, err := h.Sessions.Meta(c.Request.Context(), sid)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{
		"session":    meta.Session,
		"assignment": meta.Assignment,
		"used":       meta.Used,
		"cap":        meta.Cap,
	})
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Channel   string `json:"channel"`
}

// Chat runs one chat turn through the guard, the ledger and the model.
func (h *Handlers) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId and message are required")
		return
	}

	res, err := h.Sessions.SendMessage(c.Request.Context(), req.SessionID, req.Message, req.Channel)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{
		"reply":   res.Reply,
		"used":    res.Used,
		"cap":     res.Cap,
		"blocked": res.Blocked,
	})
}

// History returns the session's event log, optionally filtered by channel.
func (h *Handlers) History(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId is required")
		return
	}
	events, err := h.Sessions.History(c.Request.Context(), sid, c.Query("channel"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"events": events})
}

type submitRequest struct {
	SessionID   string  `json:"sessionId"`
	Declaration *string `json:"declaration"`
}

// Submit locks the session. Safe to call twice; the first lock time wins.
func (h *Handlers) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}
	if req.SessionID == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId is required")
		return
	}

	lockedAt, err := h.Sessions.Submit(c.Request.Context(), req.SessionID, req.Declaration)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"lockedAt": lockedAt})
}
