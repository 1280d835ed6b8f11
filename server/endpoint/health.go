package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/observability"
)

// HealthChecker probes the providers and aggregates the result.
type HealthChecker func(ctx context.Context) *observability.ServiceHealth

// Health reports aggregated provider health. It answers 503 only when
// every provider is down.
func Health(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		sh := checker(c.Request.Context())
		status := http.StatusOK
		if sh.Status == observability.HealthStatusDown {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"service":    sh.Service,
			"version":    sh.Version,
			"status":     sh.Status,
			"components": sh.Components,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
	}
}
