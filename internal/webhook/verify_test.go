package webhook

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/logger"
)

const testSecret = "test-signing-secret"

func signedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	group := engine.Group("/webhooks/email")
	group.Use(VerifySignature(testSecret, logger.New("test")))
	group.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, c.Query("challenge"))
	})
	group.POST("", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func TestVerifySignatureAcceptsValidSignature(t *testing.T) {
	engine := signedRouter(t)
	body := `{"deltas":[]}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign(testSecret, []byte(body)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
}

func TestVerifySignatureRejectsBadSignature(t *testing.T) {
	engine := signedRouter(t)
	body := `{"deltas":[]}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("wrong-secret", []byte(body)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVerifySignatureRejectsMissingSignature(t *testing.T) {
	engine := signedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	engine := signedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(`{"deltas":[{}]}`))
	req.Header.Set(SignatureHeader, Sign(testSecret, []byte(`{"deltas":[]}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChallengeEchoSkipsSignatureCheck(t *testing.T) {
	engine := signedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/webhooks/email?challenge=abc123", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "abc123" {
		t.Fatalf("body = %q, want the challenge echoed", rec.Body.String())
	}
}
