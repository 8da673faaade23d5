// file: internal/server/admin_handlers.go
// version: 1.0.0
// guid: 7b9d1f3a-5c7e-4b9d-8e0f-2c4a6b8d0e1f

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/journal"
)

// simulateLowMemory forces the notifier's next evaluation to treat the
// host as low on memory. The transition runs on the notifier goroutine,
// so the response is an acknowledgement, not a result.
func (s *Server) simulateLowMemory(c *gin.Context) {
	s.notifier.Simulate()
	c.JSON(http.StatusAccepted, gin.H{
		"status":  "accepted",
		"message": "low-memory transition scheduled; state recovers on the following check",
	})
}

// PruneRequest optionally overrides the configured retention for one
// prune run.
type PruneRequest struct {
	OlderThan string `json:"older_than"`
}

// pruneJournalNow deletes journal events older than the requested age,
// defaulting to the configured retention.
func (s *Server) pruneJournalNow(c *gin.Context) {
	if journal.GlobalJournal == nil {
		RespondWithServiceUnavailable(c, "journal not initialized")
		return
	}

	retention := config.AppConfig.JournalRetention
	if c.Request.ContentLength > 0 {
		var req PruneRequest
		if err := c.ShouldBindJSON(&req); HandleBindError(c, err) {
			return
		}
		if req.OlderThan != "" {
			parsed, err := time.ParseDuration(req.OlderThan)
			if err != nil {
				RespondWithValidationError(c, "older_than", "must be a duration, e.g. 72h")
				return
			}
			retention = parsed
		}
	}
	if retention <= 0 {
		RespondWithValidationError(c, "older_than", "retention must be positive")
		return
	}

	cutoff := time.Now().Add(-retention)
	pruned, err := journal.GlobalJournal.Prune(cutoff)
	if err != nil {
		RespondWithInternalError(c, "failed to prune journal: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pruned":     pruned,
		"older_than": retention.String(),
		"cutoff":     cutoff.UTC().Format(time.RFC3339),
	})
}
