package web

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/valyala/fasthttp"

	"github.com/moonyandfriends/badbot-discord-automod/internal/config"
	"github.com/moonyandfriends/badbot-discord-automod/internal/logging"
	"github.com/moonyandfriends/badbot-discord-automod/internal/metrics"
	"github.com/moonyandfriends/badbot-discord-automod/internal/tracker"
	"github.com/moonyandfriends/badbot-discord-automod/internal/watchdog"
)

// Server exposes the deployment health endpoint and the metrics export.
type Server struct {
	cfg      *config.Config
	tracker  *tracker.Tracker
	registry *metrics.Registry
	watchdog *watchdog.Watchdog

	addr      string
	startedAt time.Time
	server    *fasthttp.Server
}

func NewServer(cfg *config.Config, t *tracker.Tracker, registry *metrics.Registry, wd *watchdog.Watchdog) *Server {
	return &Server{
		cfg:       cfg,
		tracker:   t,
		registry:  registry,
		watchdog:  wd,
		addr:      cfg.Web.Addr,
		startedAt: time.Now(),
	}
}

// Start serves in a background goroutine; listen failures are logged, not
// fatal, since the health endpoint is a deployment convenience.
func (s *Server) Start() {
	s.server = &fasthttp.Server{
		Handler:     s.handle,
		Name:        "badbot-automod",
		ReadTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Health endpoint listening on %s", s.addr)
		if err := s.server.ListenAndServe(s.addr); err != nil {
			logging.Warn("Health endpoint stopped: %v", err)
		}
	}()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown()
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/":
		s.handleRoot(ctx)
	case "/health":
		s.handleHealth(ctx)
	case "/metrics":
		s.handleMetrics(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) handleRoot(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	writeJSON(ctx, map[string]interface{}{
		"message": "BadBot Discord AutoMod is running",
		"status":  "healthy",
	})
}

type healthResponse struct {
	Status          string          `json:"status"`
	Servers         int             `json:"servers"`
	Webhooks        int             `json:"webhooks"`
	TrackedUsers    int             `json:"tracked_users"`
	UptimeSeconds   int64           `json:"uptime_seconds"`
	MemoryRSSBytes  uint64          `json:"memory_rss_bytes"`
	ComponentHealth map[string]bool `json:"components,omitempty"`
}

func (s *Server) handleHealth(ctx *fasthttp.RequestCtx) {
	resp := healthResponse{
		Status:        "healthy",
		Servers:       len(s.cfg.Servers),
		Webhooks:      len(s.cfg.Webhooks),
		TrackedUsers:  s.tracker.Len(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if memInfo, err := proc.MemoryInfo(); err == nil {
			resp.MemoryRSSBytes = memInfo.RSS
		}
	}

	if s.watchdog != nil {
		resp.ComponentHealth = s.watchdog.GetStatus()
		for name, healthy := range resp.ComponentHealth {
			if !healthy {
				resp.Status = "degraded"
				logging.Warn("Health check: component %s unhealthy", name)
			}
		}
	}

	ctx.SetContentType("application/json")
	if resp.Status != "healthy" {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	}
	writeJSON(ctx, resp)
}

func (s *Server) handleMetrics(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(s.registry.Export())
}

func writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	ctx.SetBody(data)
}
