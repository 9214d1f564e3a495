package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wurksy/wurksy/internal/auth"
	"github.com/wurksy/wurksy/internal/common"
)

type loginRequest struct {
	Password string `json:"password"`
}

// Login checks the shared access password and sets the session cookie.
func (h *Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		common.OK(c, gin.H{"authenticated": true, "wall": false})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 400, "invalid request body")
		return
	}

	token, err := h.Auth.Login(req.Password)
	if err != nil {
		common.Fail(c, http.StatusUnauthorized, 401, "wrong password")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, token, int(auth.TokenTTL.Seconds()), "/", "", false, true)
	common.OK(c, gin.H{"authenticated": true, "wall": true})
}

// Logout clears the session cookie.
func (h *Handlers) Logout(c *gin.Context) {
	c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
	common.OK(c, gin.H{"authenticated": false})
}

// Health is the liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	common.OK(c, gin.H{"status": "ok"})
}

// PublicConfig exposes the handful of settings the UI needs before login.
func (h *Handlers) PublicConfig(c *gin.Context) {
	common.OK(c, gin.H{
		"promptCap": h.PromptCap,
		"wall":      h.Auth != nil,
	})
}
