package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aidin1998/energydesk/pkg/errors"
)

// DefaultMaxBodyBytes is used when BodyMiddleware is given a non-positive limit
const DefaultMaxBodyBytes = 1 << 20

// BodyMiddleware rejects POST, PUT and PATCH requests whose body exceeds maxBytes
// or is not well-formed JSON. The body is restored for the handler.
func BodyMiddleware(maxBytes int64, logger *zap.Logger) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
		default:
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1))
		if err != nil {
			reject(c, http.StatusBadRequest, "failed to read request body")
			return
		}
		if int64(len(body)) > maxBytes {
			logger.Warn("request body too large",
				zap.String("path", c.Request.URL.Path),
				zap.Int64("limit", maxBytes))
			reject(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxBytes))
			return
		}
		if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
			reject(c, http.StatusBadRequest, "request body is not valid JSON")
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func reject(c *gin.Context, status int, detail string) {
	p := errors.NewValidationError(detail, c.Request.URL.Path)
	p.Status = status
	if status == http.StatusRequestEntityTooLarge {
		p.Title = "Request Entity Too Large"
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(status, p)
}
