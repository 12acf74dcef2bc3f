package wiring

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/breaker"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/ratelimit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/timeoutctl"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/trace"
	inboundhttp "github.com/blackridge-sec/vulnscan-core/internal/infrastructure/inbound/http"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/auditfilter"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/auditsink"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/clock"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/outbound/pluginwatch"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
	"github.com/blackridge-sec/vulnscan-core/internal/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	Logger ports.Logger

	VulnPluginDir string
	ToolPluginDir string

	RateLimiterCapacity float64
	RateLimiterRate     float64

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerRecoveryTimeout  time.Duration

	DefaultTimeout time.Duration

	AuditLogDir     string
	AuditMaxFileMB  int64
	AuditMaxFiles   int
	AuditConsole    bool
	AuditFilterExpr string // optional expr-lang expression; empty means no filter

	TraceSize int
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger ports.Logger

	limiter  *ratelimit.RateLimiter
	breakers *breaker.Registry
	timeouts *timeoutctl.Controller
	auditLog *audit.Logger
	loader   *plugin.Loader
	watcher  *pluginwatch.Watcher
	traceBuf *trace.RingBuffer

	runProbeUC *usecases.RunProbeUseCase
	statusSrv  *inboundhttp.StatusServer

	fileSink  *auditsink.FileSink
	closeOnce sync.Once
}

// New constructs all infrastructure components. Fallible operations (audit
// file and console sinks, audit filter compilation, watcher creation) all
// run here; New never starts the plugin watcher (the caller does, via
// Watcher().Start) and does not load plugins (LoadAll is the caller's).
func New(p Params) (*Container, error) {
	clk := clock.New()

	limiter := ratelimit.New(clk, p.RateLimiterCapacity, p.RateLimiterRate)
	breakers := breaker.NewRegistry(clk)
	timeouts := timeoutctl.New(timeoutctl.Config{Total: p.DefaultTimeout})
	traceBuf := trace.NewRingBuffer(p.TraceSize)

	auditLog := audit.New(p.Logger)

	var fileSink *auditsink.FileSink
	if p.AuditLogDir != "" {
		var err error
		fileSink, err = auditsink.NewFileSink(p.AuditLogDir, p.Logger,
			auditsink.WithMaxFileSize(p.AuditMaxFileMB*1024*1024),
			auditsink.WithMaxFiles(p.AuditMaxFiles))
		if err != nil {
			return nil, fmt.Errorf("failed to create audit file sink: %w", err)
		}
		auditLog.AddHandler(audit.SinkFunc(fileSink.Write))
	}

	if p.AuditConsole {
		consoleSink, err := auditsink.NewConsoleSink(func(err error) {
			p.Logger.Error("audit console render failed", "error", err)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create audit console sink: %w", err)
		}
		auditLog.AddHandler(audit.SinkFunc(consoleSink.Write))
	}

	if p.AuditFilterExpr != "" {
		filter, err := auditfilter.Compile(p.AuditFilterExpr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile audit filter: %w", err)
		}
		auditLog.AddFilter(filter)
	}

	loader := plugin.New(p.VulnPluginDir, p.ToolPluginDir, p.Logger)
	loader.SetReloadCallback(func(pluginID string) {
		p.Logger.Info("plugin reloaded", "plugin_id", pluginID)
	})

	watcher, err := pluginwatch.New(p.VulnPluginDir, p.ToolPluginDir, p.Logger, loader)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin watcher: %w", err)
	}

	runProbeUC := usecases.New(usecases.Params{
		Limiter:  limiter,
		Breakers: breakers,
		BreakerParams: breaker.Params{
			FailureThreshold: p.BreakerFailureThreshold,
			SuccessThreshold: p.BreakerSuccessThreshold,
			RecoveryTimeout:  p.BreakerRecoveryTimeout,
		},
		Timeouts:   timeouts,
		Loader:     loader,
		AuditLog:   auditLog,
		HTTPClient: &http.Client{Timeout: p.DefaultTimeout},
		TraceBuf:   traceBuf,
		Logger:     p.Logger,
	})

	statusSrv := inboundhttp.NewStatusServer(limiter, breakers, timeouts, auditLog, loader, traceBuf, p.Logger)

	return &Container{
		logger:     p.Logger,
		limiter:    limiter,
		breakers:   breakers,
		timeouts:   timeouts,
		auditLog:   auditLog,
		loader:     loader,
		watcher:    watcher,
		traceBuf:   traceBuf,
		runProbeUC: runProbeUC,
		statusSrv:  statusSrv,
		fileSink:   fileSink,
	}, nil
}

// Close releases resources held by the container. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.watcher.Stop()
		if c.fileSink != nil {
			if err := c.fileSink.Close(); err != nil {
				c.logger.Error("failed to close audit file sink", "error", err)
			}
		}
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger { return c.logger }

// Loader returns the plugin loader.
func (c *Container) Loader() *plugin.Loader { return c.loader }

// Watcher returns the plugin filesystem watcher.
func (c *Container) Watcher() *pluginwatch.Watcher { return c.watcher }

// RunProbeUseCase returns the use case that exercises the full resilience
// stack for a single probe.
func (c *Container) RunProbeUseCase() *usecases.RunProbeUseCase { return c.runProbeUC }

// StatusServer returns the read-only management HTTP handler.
func (c *Container) StatusServer() *inboundhttp.StatusServer { return c.statusSrv }

// AuditLog returns the audit logger.
func (c *Container) AuditLog() *audit.Logger { return c.auditLog }
