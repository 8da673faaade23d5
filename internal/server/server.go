// file: internal/server/server.go
// version: 2.0.0
// guid: 4c5d6e7f-8a9b-0c1d-2e3f-4a5b6c7d8e9f

package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/djordjedjukic/ravendb/internal/cache"
	"github.com/djordjedjukic/ravendb/internal/config"
	"github.com/djordjedjukic/ravendb/internal/journal"
	"github.com/djordjedjukic/ravendb/internal/memory"
	"github.com/djordjedjukic/ravendb/internal/metrics"
	"github.com/djordjedjukic/ravendb/internal/realtime"
	"github.com/djordjedjukic/ravendb/internal/server/middleware"
	"github.com/djordjedjukic/ravendb/internal/sysinfo"
	"github.com/djordjedjukic/ravendb/internal/watcher"
)

// swapDiagnosticCacheTTL bounds how often /proc/swaps and the block
// device sysfs entries are re-read on frequent status checks.
const swapDiagnosticCacheTTL = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *gin.Engine

	monitor    *memory.Monitor
	guard      *memory.Guard
	accountant *memory.Accountant
	notifier   *memory.Notifier

	oomWatcher *watcher.Watcher
	swapCache  *cache.Cache[string]

	stopBackground chan struct{}
	backgroundDone chan struct{}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// GetDefaultServerConfig returns default server configuration. The
// write timeout is zero because it would sever long-lived SSE streams.
func GetDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:         8080,
		Host:         "localhost",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
}

// Dependencies carries the monitoring components the server exposes.
// Tests inject their own so each case controls the probe and guard
// state it exercises.
type Dependencies struct {
	Monitor    *memory.Monitor
	Guard      *memory.Guard
	Accountant *memory.Accountant
	Notifier   *memory.Notifier
}

// NewServer creates a new server instance
func NewServer(deps Dependencies) *Server {
	router := gin.New()

	// Set up middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(middleware.MaxRequestBodySize(middleware.DefaultMaxBodyBytes))
	if config.AppConfig.RateLimitRPS > 0 {
		limiter := middleware.NewIPRateLimiter(config.AppConfig.RateLimitRPS, config.AppConfig.RateLimitBurst)
		router.Use(limiter.Middleware())
	}

	// Register metrics (idempotent)
	metrics.Register()

	server := &Server{
		router:         router,
		monitor:        deps.Monitor,
		guard:          deps.Guard,
		accountant:     deps.Accountant,
		notifier:       deps.Notifier,
		swapCache:      cache.New[string](swapDiagnosticCacheTTL),
		stopBackground: make(chan struct{}),
		backgroundDone: make(chan struct{}),
	}

	server.wireObservers()
	server.setupRoutes()

	return server
}

// wireObservers fans monitor and notifier transitions out to the
// journal, the metrics registry, and connected SSE clients. Wired once
// at construction; the callbacks stay registered for the process
// lifetime.
func (s *Server) wireObservers() {
	s.monitor.OnProbeFailure(func(err error) {
		metrics.IncProbeFailure()
		recordJournalEvent(journal.EventProbeFailure, err.Error(), s.monitor.GetMemoryInfo())
		if realtime.GlobalHub != nil {
			realtime.GlobalHub.SendProbeFailure(err.Error())
		}
	})

	s.notifier.OnTransition(func(entered bool, info memory.MemoryInfo) {
		metrics.IncLowMemoryTransition(entered)
		metrics.SetLowMemoryState(entered)

		floor := info.TotalPhysicalMemory.Scale(s.notifier.Threshold())
		eventType := journal.EventLowMemoryEnter
		details := fmt.Sprintf("%s available, floor %s", info.AvailableMemory, floor)
		if !entered {
			eventType = journal.EventLowMemoryLeave
			details = fmt.Sprintf("%s available", info.AvailableMemory)
		}
		recordJournalEvent(eventType, details, info)

		if realtime.GlobalHub != nil {
			realtime.GlobalHub.SendLowMemoryTransition(entered, info.AvailableMemory, floor)
		}
	})
}

// recordJournalEvent appends an event when a journal is configured.
// Journal failures are logged, never propagated.
func recordJournalEvent(eventType, details string, info memory.MemoryInfo) {
	if journal.GlobalJournal == nil {
		return
	}
	if _, err := journal.GlobalJournal.Append(journal.FromSnapshot(eventType, details, info)); err != nil {
		log.Printf("[WARN] failed to record %s journal event: %v", eventType, err)
		return
	}
	metrics.IncJournalEvent(eventType)
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM.
func (s *Server) Start(cfg ServerConfig) error {
	s.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:        s.router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	s.notifier.Start()
	s.startOOMWatcher()
	go s.backgroundLoop()

	recordJournalEvent(journal.EventMonitorStart,
		fmt.Sprintf("monitoring started on %s", s.httpServer.Addr), s.monitor.GetMemoryInfo())

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	return s.shutdown()
}

func (s *Server) shutdown() error {
	// Broadcast shutdown event to all connected clients
	if realtime.GlobalHub != nil {
		realtime.GlobalHub.Broadcast(&realtime.Event{
			Type: "system.shutdown",
			Data: map[string]interface{}{
				"message": "Server is shutting down",
			},
		})
		// Give clients a moment to receive the event
		time.Sleep(500 * time.Millisecond)
	}

	close(s.stopBackground)
	<-s.backgroundDone

	if s.oomWatcher != nil {
		s.oomWatcher.Stop()
	}
	s.notifier.Stop()

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("Server exited")
	return nil
}

// startOOMWatcher begins tailing the control group's memory.events file
// on hosts that expose one. Kills are counted per delta so a debounced
// burst still reports every kill.
func (s *Server) startOOMWatcher() {
	path, ok := sysinfo.MemoryEventsPath()
	if !ok {
		log.Printf("[INFO] OOM kill watcher disabled: no cgroup v2 memory.events on this host")
		return
	}

	w := watcher.New(func(kills uint64) {
		metrics.AddOOMKillsObserved(kills)
		recordJournalEvent(journal.EventOOMKill,
			fmt.Sprintf("kernel killed %d process(es) in this control group", kills),
			s.monitor.GetMemoryInfo())
		if realtime.GlobalHub != nil {
			realtime.GlobalHub.SendOOMKill(kills)
		}
	}, watcher.DefaultDebounce)

	if err := w.Start(path); err != nil {
		log.Printf("[WARN] failed to start OOM kill watcher on %s: %v", path, err)
		return
	}
	s.oomWatcher = w
	log.Printf("[INFO] watching %s for OOM kill events", path)
}

// backgroundLoop drives the periodic work: monitor sampling for the
// metrics gauges, SSE heartbeats, and journal pruning.
func (s *Server) backgroundLoop() {
	defer close(s.backgroundDone)

	sampleInterval := config.AppConfig.SampleInterval
	if sampleInterval <= 0 {
		sampleInterval = 5 * time.Second
	}

	sample := time.NewTicker(sampleInterval)
	defer sample.Stop()
	broadcast := time.NewTicker(5 * time.Second)
	defer broadcast.Stop()
	prune := time.NewTicker(time.Hour)
	defer prune.Stop()

	for {
		select {
		case <-s.stopBackground:
			return
		case <-sample.C:
			s.sampleOnce()
		case <-broadcast.C:
			s.broadcastStatus()
		case <-prune.C:
			s.pruneJournal()
		}
	}
}

// sampleOnce takes one monitor snapshot and publishes it to the gauges.
func (s *Server) sampleOnce() {
	start := time.Now()
	info := s.monitor.GetMemoryInfo()
	metrics.ObserveSnapshotDuration(time.Since(start))

	metrics.SetMemoryFigures(
		info.AvailableMemory.Bytes(),
		info.TotalPhysicalMemory.Bytes(),
		info.TotalCommittableMemory.Bytes(),
		info.CurrentCommitCharge.Bytes(),
		info.InstalledMemory.Bytes())
	metrics.SetHistorySamples(len(s.monitor.History()))

	usage := s.accountant.Usage()
	metrics.SetSelfUsage(
		usage.WorkingSet.Bytes(),
		usage.UnmanagedAllocations.Bytes(),
		usage.ManagedHeap.Bytes(),
		usage.MappedTempBuffers.Bytes())
	metrics.SetGoroutines(runtime.NumGoroutine())
}

// broadcastStatus pushes a periodic memory.snapshot event via SSE.
func (s *Server) broadcastStatus() {
	if realtime.GlobalHub == nil || realtime.GlobalHub.GetClientCount() == 0 {
		return
	}

	info := s.monitor.GetMemoryInfo()
	realtime.GlobalHub.SendMemorySnapshot(map[string]interface{}{
		"available_bytes":      info.AvailableMemory.Bytes(),
		"available":            info.AvailableMemory.String(),
		"total_physical_bytes": info.TotalPhysicalMemory.Bytes(),
		"commit_charge_bytes":  info.CurrentCommitCharge.Bytes(),
		"committable_bytes":    info.TotalCommittableMemory.Bytes(),
		"low_memory":           s.notifier.InLowMemory(),
		"goroutines":           runtime.NumGoroutine(),
		"timestamp":            time.Now().Unix(),
	})
}

// pruneJournal drops events older than the configured retention.
func (s *Server) pruneJournal() {
	if journal.GlobalJournal == nil || config.AppConfig.JournalRetention <= 0 {
		return
	}
	pruned, err := journal.GlobalJournal.Prune(time.Now().Add(-config.AppConfig.JournalRetention))
	if err != nil {
		log.Printf("[WARN] journal prune failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("[INFO] pruned %d journal events older than %s", pruned, config.AppConfig.JournalRetention)
	}
}

// setupRoutes configures all the routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint (standard path)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	s.router.GET("/api/health", s.healthCheck)

	// Real-time events (SSE)
	s.router.GET("/api/events", s.handleEvents)

	// API routes
	api := s.router.Group("/api")
	{
		// Memory routes
		api.GET("/memory", s.getMemory)
		api.GET("/memory/self", s.getSelfUsage)
		api.GET("/memory/history", s.getMemoryHistory)
		api.GET("/memory/check", s.checkAllocation)
		api.GET("/memory/swap", s.getSwapDiagnostic)

		// Journal routes
		api.GET("/journal", s.listJournal)
		api.GET("/journal/stats", s.getJournalStats)
	}

	// Admin routes (credentials required when configured)
	admin := s.router.Group("/api/admin")
	admin.Use(middleware.BasicAuth())
	{
		admin.POST("/lowmem/simulate", s.simulateLowMemory)
		admin.POST("/journal/prune", s.pruneJournalNow)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// healthCheck reports process health. The status degrades when the
// platform probe has failed and snapshots are fallback figures.
func (s *Server) healthCheck(c *gin.Context) {
	info := s.monitor.GetMemoryInfo()

	status := "ok"
	if s.monitor.Failed() {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       status,
		"timestamp":    time.Now().Unix(),
		"version":      "1.0.0",
		"journal_type": config.AppConfig.JournalType,
		"memory": gin.H{
			"available":      info.AvailableMemory.String(),
			"total_physical": info.TotalPhysicalMemory.String(),
			"low_memory":     s.notifier.InLowMemory(),
			"guard_enabled":  s.guard.Enabled(),
			"probe_failed":   s.monitor.Failed(),
		},
	})
}

// handleEvents handles Server-Sent Events (SSE) for real-time updates
func (s *Server) handleEvents(c *gin.Context) {
	if realtime.GlobalHub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event hub not initialized"})
		return
	}
	realtime.GlobalHub.HandleSSE(c)
}
