package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/research"
	"github.com/wurksy/wurksy/internal/session"
)

// ResearchSearch fans the query out to the paper indexes and records the
// lookup on the session's log. The search itself is free; only chat turns
// consume the cap.
func (h *Handlers) ResearchSearch(c *gin.Context) {
	sid := c.Query("sessionId")
	q := c.Query("q")
	if sid == "" || q == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId and q are required")
		return
	}
	if _, err := h.Repo.GetSession(c.Request.Context(), sid); err != nil {
		h.writeServiceError(c, err)
		return
	}

	rows, _ := strconv.Atoi(c.DefaultQuery("rows", "10"))
	papers, err := h.Research.Search(c.Request.Context(), q, rows)
	if err != nil {
		if err == research.ErrEmptyQuery {
			common.Fail(c, http.StatusBadRequest, 400, err.Error())
			return
		}
		common.Fail(c, http.StatusBadGateway, 502, "paper search unavailable")
		return
	}

	logErr := h.Repo.InsertEvent(c.Request.Context(), &session.Event{
		SessionID: sid,
		Role:      session.RoleSystem,
		Channel:   session.ChannelResearchSearch,
		Content:   q,
		Meta:      map[string]any{"results": len(papers)},
	})
	if logErr != nil {
		h.Logger.Warn("research search not logged", zap.Error(logErr), zap.String("session_id", sid))
	}

	common.OK(c, gin.H{"papers": papers})
}

type paperClickRequest struct {
	SessionID string         `json:"sessionId"`
	Meta      map[string]any `json:"meta"`
}

// ResearchClick records that the student opened a paper: an event on the
// log and a research artifact for the AI Index timeline.
func (h *Handlers) ResearchClick(c *gin.Context) {
	var req paperClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}
	if req.SessionID == "" || len(req.Meta) == 0 {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId and meta are required")
		return
	}

	if err := h.Sessions.RecordPaperClick(c.Request.Context(), req.SessionID, req.Meta); err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"ok": true})
}

// ResearchResolve picks the best PDF candidate the client offered and logs
// the resolution on the session.
func (h *Handlers) ResearchResolve(c *gin.Context) {
	sid := c.Query("sessionId")
	doi := c.Query("doi")
	rawURL := c.Query("url")
	oaPDF := c.Query("oa_pdf")

	pdf := oaPDF
	if pdf == "" {
		pdf = rawURL
	}

	if sid != "" && (doi != "" || rawURL != "" || oaPDF != "") {
		err := h.Sessions.RecordPaperResolve(c.Request.Context(), sid, map[string]any{
			"doi":    doi,
			"url":    rawURL,
			"oa_pdf": oaPDF,
			"pdf":    pdf,
		})
		if err != nil {
			h.writeServiceError(c, err)
			return
		}
	}
	common.OK(c, gin.H{"pdf": pdf})
}
