// file: internal/server/journal_handlers.go
// version: 1.0.0
// guid: 3e5a7c9b-2d4f-4a6e-9b8c-1f3e5d7a9c0b

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djordjedjukic/ravendb/internal/journal"
)

const (
	defaultJournalListLimit = 100
	maxJournalListLimit     = 1000
)

// listJournal returns journal events newest first, optionally filtered
// by type and time.
func (s *Server) listJournal(c *gin.Context) {
	if journal.GlobalJournal == nil {
		RespondWithServiceUnavailable(c, "journal not initialized")
		return
	}

	limit := ParseQueryInt(c, "limit", defaultJournalListLimit)
	if limit < 1 {
		limit = defaultJournalListLimit
	}
	if limit > maxJournalListLimit {
		limit = maxJournalListLimit
	}

	opts := journal.ListOptions{
		Type:  c.Query("type"),
		Limit: limit,
	}
	if sinceStr := c.Query("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			RespondWithValidationError(c, "since", "must be RFC3339, e.g. 2026-01-02T15:04:05Z")
			return
		}
		opts.Since = since
	}

	events, err := journal.GlobalJournal.List(opts)
	if err != nil {
		RespondWithInternalError(c, "failed to list journal events: "+err.Error())
		return
	}
	if events == nil {
		events = []journal.Event{}
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	})
}

// getJournalStats summarizes the journal contents.
func (s *Server) getJournalStats(c *gin.Context) {
	if journal.GlobalJournal == nil {
		RespondWithServiceUnavailable(c, "journal not initialized")
		return
	}

	stats, err := journal.GlobalJournal.Stats()
	if err != nil {
		RespondWithInternalError(c, "failed to compute journal stats: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, stats)
}
