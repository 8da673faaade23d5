// file: internal/server/memory_handlers.go
// version: 1.0.0
// guid: 9f2c4b6d-1e3a-4c5b-8d7e-2a4c6e8f0b1d

package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/journal"
	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/metrics"
	"github.com/djordjedjukic/ravendb/internal/realtime"
	"github.com/djordjedjukic/ravendb/internal/sysinfo"
)

// getMemory returns the current memory snapshot.
func (s *Server) getMemory(c *gin.Context) {
	start := time.Now()
	info := s.monitor.GetMemoryInfo()
	metrics.ObserveSnapshotDuration(time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"memory":     info,
		"low_memory": s.notifier.InLowMemory(),
		"fallback":   s.monitor.Failed(),
		"timestamp":  time.Now().Unix(),
	})
}

// getSelfUsage returns the process's own footprint.
func (s *Server) getSelfUsage(c *gin.Context) {
	c.JSON(http.StatusOK, s.accountant.Usage())
}

// getMemoryHistory returns the retained availability samples, oldest first.
func (s *Server) getMemoryHistory(c *gin.Context) {
	samples := s.monitor.History()
	c.JSON(http.StatusOK, gin.H{
		"samples": samples,
		"count":   len(samples),
	})
}

// checkAllocation runs the early-OOM pre-check. A denial renders the
// figures behind the decision as a 507 so callers can log them.
func (s *Server) checkAllocation(c *gin.Context) {
	fraction, ok := ParseQueryFloat(c, "fraction", config.AppConfig.MinimumFreeFraction)
	if !ok {
		RespondWithBadRequest(c, "fraction must be a number")
		return
	}
	if fraction <= 0 || fraction >= 1 {
		RespondWithValidationError(c, "fraction", "must be between 0 and 1 exclusive")
		return
	}

	err := s.guard.CheckBeforeAllocation(fraction)
	metrics.IncGuardCheck(err == nil)

	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"allowed":       true,
			"fraction":      fraction,
			"guard_enabled": s.guard.Enabled(),
		})
		return
	}

	var insufficient *memory.InsufficientMemoryError
	if !errors.As(err, &insufficient) {
		RespondWithInternalError(c, err.Error())
		return
	}

	recordJournalEvent(journal.EventGuardRejected, insufficient.Error(), s.monitor.GetMemoryInfo())
	if realtime.GlobalHub != nil {
		realtime.GlobalHub.SendGuardRejection(fraction, insufficient.Error())
	}

	c.JSON(http.StatusInsufficientStorage, gin.H{
		"allowed":              false,
		"fraction":             fraction,
		"error":                insufficient.Error(),
		"commit_charge_bytes":  insufficient.CommitCharge.Bytes(),
		"committable_bytes":    insufficient.Committable.Bytes(),
		"used_bytes":           insufficient.Used.Bytes(),
		"total_physical_bytes": insufficient.TotalPhysical.Bytes(),
	})
}

// getSwapDiagnostic reports the host's swap configuration. The text is
// cached because building it reads /proc/swaps and sysfs on every call.
func (s *Server) getSwapDiagnostic(c *gin.Context) {
	diagnostic, err := s.swapCache.GetOrCompute("swap", func() (string, error) {
		return sysinfo.SwapDiagnostic(), nil
	})
	if err != nil {
		RespondWithInternalError(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"diagnostic": diagnostic,
		"timestamp":  time.Now().Unix(),
	})
}
