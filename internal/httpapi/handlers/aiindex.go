package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wurksy/wurksy/internal/common"
)

// AIIndex renders the session's AI usage index. With storage configured the
// PDF is uploaded and a signed URL returned; without it the PDF streams
// inline, which keeps local development working.
func (h *Handlers) AIIndex(c *gin.Context) {
	sid := c.Query("sessionId")
	if sid == "" {
		common.Fail(c, http.StatusBadRequest, 400, "sessionId is required")
		return
	}

	pdf, err := h.Index.Render(c.Request.Context(), sid)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if h.Uploader == nil {
		c.Header("Content-Disposition", `attachment; filename="ai-index-`+sid+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
		return
	}

	url, err := h.Uploader.UploadAndSign(c.Request.Context(), "ai-index/"+sid, "pdf", "application/pdf", pdf)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	common.OK(c, gin.H{"url": url})
}
