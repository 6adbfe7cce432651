package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glossahq/glossa/internal/core"
	"github.com/glossahq/glossa/internal/llm"
	"github.com/glossahq/glossa/internal/metrics"
	"github.com/glossahq/glossa/internal/security"
	"github.com/glossahq/glossa/internal/session"
	"github.com/glossahq/glossa/internal/stream"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// SessionHub is the part of the session hub the gateway mounts and shuts
// down.
type SessionHub interface {
	HandleSession(w http.ResponseWriter, r *http.Request)
	Len() int
	Close()
}

// ProviderSource reports the provider kind currently serving requests.
type ProviderSource interface {
	CurrentKind() llm.Kind
}

// ProbeSource reports the result of the most recent provider reachability
// probe. A zero time means no probe has run yet.
type ProbeSource interface {
	LastProbe() (ok bool, at time.Time)
}

// Gateway is the HTTP front door module. It exposes liveness, status, and
// Prometheus metrics, the one-shot message endpoint, and the WebSocket
// session upgrade. It is a leaf module; nothing imports it.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time

	// auth holds the live token config; Reload swaps it under traffic.
	auth atomic.Pointer[AuthConfig]

	// Resolved lazily at Start() via the service registry. Every one of
	// these is optional; the gateway serves whatever is available.
	hub        SessionHub
	dispatcher session.Dispatcher
	providers  ProviderSource
	streams    *stream.Manager
	metrics    *metrics.Metrics
	audit      *security.AuditLogger
	probe      ProbeSource
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.appCtx = ctx
	g.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. It resolves dependencies from the service
// registry (lazy binding) and starts the HTTP server.
func (g *Gateway) Start() error {
	g.resolveServices()
	g.startedAt = time.Now()
	g.auth.Store(&g.config.Auth)

	mux := g.buildRouter()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      mux,
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening",
			"addr", g.config.Bind,
			"auth", g.config.Auth.IsConfigured(),
		)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// resolveServices binds the optional collaborators registered during wiring.
// Missing ones degrade the surface rather than failing Start.
func (g *Gateway) resolveServices() {
	if svc, ok := g.appCtx.Service("session.hub"); ok {
		if hub, ok := svc.(SessionHub); ok {
			g.hub = hub
		}
	}
	if svc, ok := g.appCtx.Service("router.dispatcher"); ok {
		if d, ok := svc.(session.Dispatcher); ok {
			g.dispatcher = d
		}
	}
	if svc, ok := g.appCtx.Service("llm.registry"); ok {
		if p, ok := svc.(ProviderSource); ok {
			g.providers = p
		}
	}
	if svc, ok := g.appCtx.Service("stream.manager"); ok {
		if m, ok := svc.(*stream.Manager); ok {
			g.streams = m
		}
	}
	if svc, ok := g.appCtx.Service("metrics"); ok {
		if m, ok := svc.(*metrics.Metrics); ok {
			g.metrics = m
		}
	}
	if svc, ok := g.appCtx.Service("security.audit"); ok {
		if a, ok := svc.(*security.AuditLogger); ok {
			g.audit = a
		}
	}
	if svc, ok := g.appCtx.Service("maintenance.probe"); ok {
		if p, ok := svc.(ProbeSource); ok {
			g.probe = p
		}
	}
}

func (g *Gateway) currentAuth() AuthConfig {
	if cfg := g.auth.Load(); cfg != nil {
		return *cfg
	}
	return g.config.Auth
}

// Reload implements core.Reloader. Only the auth token is applied live;
// bind address and timeouts keep their started values, and a daemon started
// without auth keeps its routes open until restart.
func (g *Gateway) Reload(ctx *core.AppContext) error {
	node, ok := ctx.ModuleConfig("gateway.http")
	if !ok {
		return nil
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return err
	}
	cfg.defaults()

	prev := g.currentAuth()
	g.auth.Store(&cfg.Auth)
	if prev.Token != cfg.Auth.Token {
		g.logger.Info("gateway auth token rotated", "configured", cfg.Auth.IsConfigured())
	}
	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
// WebSocket connections are hijacked out of the server, so Shutdown does not
// wait on them; closing the hub makes their read loops unwind.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	err := g.server.Shutdown(shutdownCtx)

	if g.hub != nil {
		g.hub.Close()
	}
	return err
}
