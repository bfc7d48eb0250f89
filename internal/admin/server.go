// Package admin provides the optional, loopback-bound introspection HTTP
// surface: liveness, runtime statistics, and a Prometheus exposition
// endpoint. It never handles DNS traffic and is disabled by default.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/domainwalk/recudns/internal/cache"
)

// Server is the management HTTP server. It is scaffolding in the sense that
// it carries no authentication of its own: operators are expected to keep
// Addr bound to loopback or behind a trusted reverse proxy.
type Server struct {
	logger     *slog.Logger
	engine     *gin.Engine
	httpServer *http.Server
	startTime  time.Time
	store      *cache.Store
	stats      *QueryStats
	metrics    *Metrics
}

func New(addr string, store *cache.Store, stats *QueryStats, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if stats == nil {
		stats = &QueryStats{}
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		logger:    logger,
		engine:    engine,
		startTime: time.Now(),
		store:     store,
		stats:     stats,
		metrics:   metrics,
	}

	engine.GET("/healthz", s.handleHealthz)
	engine.GET("/stats", s.handleStats)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealthz(c *gin.Context) {
	if s.store != nil {
		if err := s.store.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

type statsResponse struct {
	Uptime        string   `json:"uptime"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	CPU           cpuStats `json:"cpu"`
	Memory        memStats `json:"memory"`
	Queries       Snapshot `json:"queries"`
}

type cpuStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
}

type memStats struct {
	TotalMB     float64 `json:"total_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

func (s *Server) handleStats(c *gin.Context) {
	uptime := time.Since(s.startTime)

	cstats := cpuStats{NumCPU: runtime.NumCPU()}
	if pct, err := cpu.Percent(50*time.Millisecond, false); err == nil && len(pct) > 0 {
		cstats.UsedPercent = pct[0]
	}

	mstats := memStats{}
	if vm, err := mem.VirtualMemory(); err == nil {
		mstats.TotalMB = float64(vm.Total) / 1024 / 1024
		mstats.UsedMB = float64(vm.Used) / 1024 / 1024
		mstats.UsedPercent = vm.UsedPercent
	}

	c.JSON(http.StatusOK, statsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		CPU:           cstats,
		Memory:        mstats,
		Queries:       s.stats.Snapshot(),
	})
}
