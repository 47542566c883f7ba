package responses

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aidin1998/energydesk/pkg/errors"
)

// StandardResponse represents a standard API response format
type StandardResponse struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	TraceID   string    `json:"trace_id,omitempty"`
}

// Success sends a successful response
func Success(c *gin.Context, data any, message ...string) {
	write(c, http.StatusOK, data, pick(message, "Operation successful"))
}

// Created sends a 201 Created response
func Created(c *gin.Context, data any, message ...string) {
	write(c, http.StatusCreated, data, pick(message, "Resource created successfully"))
}

func write(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, StandardResponse{
		Success:   true,
		Data:      data,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		TraceID:   getTraceID(c),
	})
}

func pick(message []string, fallback string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return fallback
}

// Error sends an error response using RFC 7807 format
func Error(c *gin.Context, problemDetails *errors.ProblemDetails) {
	if problemDetails.TraceID == "" {
		if traceID := getTraceID(c); traceID != "" {
			problemDetails.WithTraceID(traceID)
		}
	}

	if problemDetails.Extra == nil {
		problemDetails.WithExtra("timestamp", time.Now().UTC().Format(time.RFC3339))
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problemDetails.Status, problemDetails)
}

// FromError maps err to problem details by its kind and sends it
func FromError(c *gin.Context, err error) {
	Error(c, errors.FromError(err, c.Request.URL.Path))
}

// BadRequest sends a 400 Bad Request response
func BadRequest(c *gin.Context, detail string, fields ...errors.FieldError) {
	problemDetails := errors.NewValidationError(detail, c.Request.URL.Path)
	if len(fields) > 0 {
		problemDetails.Errors = fields
	}
	Error(c, problemDetails)
}

// NotFound sends a 404 Not Found response
func NotFound(c *gin.Context, detail string) {
	Error(c, errors.NewNotFoundError(detail, c.Request.URL.Path))
}

// InternalServerError sends a 500 Internal Server Error response
func InternalServerError(c *gin.Context, detail string) {
	Error(c, errors.NewInternalError(detail, c.Request.URL.Path))
}

// TooManyRequests sends a 429 Too Many Requests response
func TooManyRequests(c *gin.Context, detail string) {
	Error(c, &errors.ProblemDetails{
		Type:     errors.TypeRateLimited,
		Title:    "Too Many Requests",
		Status:   http.StatusTooManyRequests,
		Detail:   detail,
		Instance: c.Request.URL.Path,
	})
}

// getTraceID prefers the active span, then an explicit header
func getTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return c.GetHeader("X-Trace-ID")
}
