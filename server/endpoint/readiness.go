package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyCheck returns nil when the service can take traffic.
type ReadyCheck func(ctx context.Context) error

// Readiness answers 503 with the reason while check fails.
func Readiness(serviceName string, check ReadyCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":    "ready",
			"service":   serviceName,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		status := http.StatusOK
		if check != nil {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "not_ready"
				body["reason"] = err.Error()
			}
		}
		c.JSON(status, body)
	}
}
