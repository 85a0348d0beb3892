// Package webhook receives interaction deltas from the email provider
// and analytics batches from internal jobs, verifies them, and hands
// them to the signal ingestor.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"
)

// SignatureHeader carries the provider's HMAC of the raw request body.
const SignatureHeader = "X-Provider-Signature"

// Sign computes the hex HMAC-SHA256 of body under secret. Exposed for
// tests and for the batch submitter.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature rejects any request whose body does not carry a valid
// HMAC-SHA256 signature. The raw body is restored for downstream
// handlers. GET requests pass through untouched so the provider's
// challenge handshake works before a secret exchange.
func VerifySignature(secret string, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "unreadable request body", nil)
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		provided := c.GetHeader(SignatureHeader)
		expected := Sign(secret, body)
		if provided == "" || !hmac.Equal([]byte(provided), []byte(expected)) {
			log.Warn("webhook signature mismatch",
				"path", c.Request.URL.Path, "client_ip", c.ClientIP())
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook signature", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
