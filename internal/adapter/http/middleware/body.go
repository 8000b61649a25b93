package middleware

import (
	"net/http"
	"strings"

	"cutcoin-wallet/pkg/apperror"
	"cutcoin-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize returns middleware that limits the request body size.
// Once the limit is exceeded the reader returns an error and binding fails.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// RequireJSON rejects bodies on write methods that are not application/json.
// Empty bodies are allowed so action endpoints like cancel need no payload.
func RequireJSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength != 0 && !strings.HasPrefix(c.ContentType(), gin.MIMEJSON) {
				response.Error(c, apperror.New("PAY_002", "Content-Type must be application/json", http.StatusUnsupportedMediaType))
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
