package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newPostContext(t *testing.T, body string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c
}

func TestSessionKeyReadsJSONBody(t *testing.T) {
	c := newPostContext(t, `{"sessionId":"S1","message":"hello"}`)

	key := SessionKey(c)
	if !strings.HasSuffix(key, ":S1") {
		t.Fatalf("key = %q, want session suffix :S1", key)
	}

	// the body must still be readable by the handler after the peek
	var req struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		t.Fatalf("bind after peek: %v", err)
	}
	if req.SessionID != "S1" || req.Message != "hello" {
		t.Fatalf("body mangled by peek: %+v", req)
	}
}

func TestSessionKeyDistinguishesSessionsOnOneIP(t *testing.T) {
	a := SessionKey(newPostContext(t, `{"sessionId":"S1"}`))
	b := SessionKey(newPostContext(t, `{"sessionId":"S2"}`))
	if a == b {
		t.Fatalf("two sessions on one ip share limiter key %q", a)
	}
}

func TestSessionKeyPrefersQueryParam(t *testing.T) {
	c := newPostContext(t, `{"sessionId":"from-body"}`)
	c.Request.URL.RawQuery = "sessionId=from-query"

	if key := SessionKey(c); !strings.HasSuffix(key, ":from-query") {
		t.Fatalf("key = %q, want query value", key)
	}
	// the body was not consumed when the query satisfied the key
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		t.Fatalf("body unavailable after query-keyed request: %v", err)
	}
}

func TestSessionKeyToleratesBadBody(t *testing.T) {
	c := newPostContext(t, `not json`)
	if key := SessionKey(c); !strings.HasSuffix(key, ":") {
		t.Fatalf("key = %q, want empty session part for bad body", key)
	}
}
