package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wurksy/wurksy/internal/admin"
	"github.com/wurksy/wurksy/internal/common"
	"github.com/wurksy/wurksy/internal/session"
)

// AssignmentByCode is the public fetch students use before starting a
// session.
func (h *Handlers) AssignmentByCode(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		common.Fail(c, http.StatusBadRequest, 400, "code is required")
		return
	}
	a, err := h.Repo.GetAssignmentByShortCode(c.Request.Context(), code)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	if a == nil {
		common.Fail(c, http.StatusNotFound, 404, "assignment not found")
		return
	}
	common.OK(c, a)
}

type createAssignmentRequest struct {
	ModuleCode      string                   `json:"moduleCode"`
	Title           string                   `json:"title"`
	Brief           string                   `json:"brief"`
	Deadline        *string                  `json:"deadline"`
	PromptCap       int                      `json:"promptCap"`
	RecommendedPDFs []session.RecommendedPDF `json:"recommendedPdfs"`
}

// CreateAssignment is the instructor-facing create, behind the admin key.
func (h *Handlers) CreateAssignment(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}

	var deadline *time.Time
	if req.Deadline != nil && *req.Deadline != "" {
		t, err := time.Parse(time.RFC3339, *req.Deadline)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 400, "deadline must be RFC3339")
			return
		}
		deadline = &t
	}

	a, err := h.Assignments.Create(c.Request.Context(), admin.AssignmentInput{
		ModuleCode:      req.ModuleCode,
		Title:           req.Title,
		Brief:           req.Brief,
		Deadline:        deadline,
		PromptCap:       req.PromptCap,
		RecommendedPDFs: req.RecommendedPDFs,
	})
	if err != nil {
		if err == admin.ErrShortCodeExhausted {
			h.writeServiceError(c, err)
			return
		}
		common.Fail(c, http.StatusBadRequest, 400, err.Error())
		return
	}
	common.OK(c, a)
}

// ListAssignments lists assignments for the admin console.
func (h *Handlers) ListAssignments(c *gin.Context) {
	from, to, ok := dateRange(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	items, total, err := h.Assignments.List(c.Request.Context(), from, to, limit, offset)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"assignments": items, "total": total})
}
