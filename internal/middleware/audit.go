package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hse-api/internal/models"
)

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Audit records a RESOURCE_MUTATION audit row after successful mutating requests. Write failures are only logged.
func Audit(repo auditWriter, resource string, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}

		actor := Actor(c)
		entry := &models.AuditLog{
			Action:    models.AuditActionResourceMutation,
			Resource:  resource,
			IPAddress: actor.IP,
			UserAgent: actor.UserAgent,
		}
		if actor.UserID != "" {
			entry.UserID = &actor.UserID
		}
		if actor.CompanyID != "" {
			entry.CompanyID = &actor.CompanyID
		}
		if id := c.Param("id"); id != "" {
			entry.ResourceID = &id
		}
		entry.NewValues, _ = json.Marshal(map[string]interface{}{
			"path":    c.FullPath(),
			"method":  c.Request.Method,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).Milliseconds(),
		})

		if err := repo.CreateAuditLog(c.Request.Context(), entry); err != nil {
			log.Warn("audit write failed", zap.String("resource", resource), zap.Error(err))
		}
	}
}
