// Package usecases holds the thin compositions that exercise the core
// control-plane components end to end. RunProbeUseCase is the external
// collaborator's entry point into this module: everything upstream of it
// (job scheduling, asset discovery, result persistence) stays outside.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/breaker"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/ratelimit"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/timeoutctl"
	"github.com/blackridge-sec/vulnscan-core/internal/domain/trace"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// ErrPluginNotFound is returned when the requested plugin id has no bound
// catalog entry (unregistered, or its manifest failed to load).
var ErrPluginNotFound = errors.New("usecases: plugin not found")

// ErrRateLimited is returned when the per-plugin token bucket has no
// tokens available for the probe.
var ErrRateLimited = errors.New("usecases: rate limited")

// RunProbeUseCase runs a single vulnerability probe through the full
// resilience stack: rate limit, circuit breaker, timeout, plugin verify,
// audit log.
type RunProbeUseCase struct {
	limiter       *ratelimit.RateLimiter
	breakers      *breaker.Registry
	breakerParams breaker.Params
	timeouts      *timeoutctl.Controller
	loader        *plugin.Loader
	auditLog      *audit.Logger
	httpClient    *http.Client
	traceBuf      *trace.RingBuffer
	logger        ports.Logger
}

// Params configures a RunProbeUseCase.
type Params struct {
	Limiter       *ratelimit.RateLimiter
	Breakers      *breaker.Registry
	BreakerParams breaker.Params
	Timeouts      *timeoutctl.Controller
	Loader        *plugin.Loader
	AuditLog      *audit.Logger
	HTTPClient    *http.Client
	TraceBuf      *trace.RingBuffer
	Logger        ports.Logger
}

// New constructs a RunProbeUseCase from its dependencies.
func New(p Params) *RunProbeUseCase {
	httpClient := p.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &RunProbeUseCase{
		limiter:       p.Limiter,
		breakers:      p.Breakers,
		breakerParams: p.BreakerParams,
		timeouts:      p.Timeouts,
		loader:        p.Loader,
		auditLog:      p.AuditLog,
		httpClient:    httpClient,
		traceBuf:      p.TraceBuf,
		logger:        p.Logger,
	}
}

// Run executes pluginID against target. opts is passed through to the
// plugin's Verify method untouched.
func (uc *RunProbeUseCase) Run(ctx context.Context, pluginID, target string, opts map[string]any) (plugin.VerifyResult, error) {
	entry := trace.Entry{Timestamp: time.Now().UTC(), PluginID: pluginID, Target: target}

	if !uc.limiter.Check(pluginID, 1) {
		entry.RateLimited = true
		entry.Error = ErrRateLimited.Error()
		uc.record(entry)
		uc.auditLog.Log(audit.EventScanStop, "probe rate limited", audit.SeverityWarning, nil, nil, &target,
			map[string]any{"plugin_id": pluginID})
		return plugin.VerifyResult{}, ErrRateLimited
	}

	info, ok := uc.loader.GetPlugin(pluginID)
	if !ok || info.Instance == nil {
		entry.Error = ErrPluginNotFound.Error()
		uc.record(entry)
		return plugin.VerifyResult{}, fmt.Errorf("%w: %s", ErrPluginNotFound, pluginID)
	}

	cb := uc.breakers.Get(pluginID, uc.breakerParams)

	var result plugin.VerifyResult
	execErr := cb.Execute(ctx, func(ctx context.Context) error {
		return uc.timeouts.ExecuteWithTimeout(ctx, nil, pluginID, func(ctx context.Context) error {
			r, err := info.Instance.Verify(ctx, target, uc.httpClient, opts)
			result = r
			return err
		})
	})

	var openErr *breaker.OpenError
	switch {
	case errors.As(execErr, &openErr):
		entry.BreakerOpen = true
		entry.Error = execErr.Error()
	case errors.Is(execErr, timeoutctl.ErrTimeout):
		entry.Error = execErr.Error()
	case execErr != nil:
		entry.Error = execErr.Error()
	case result.Vulnerable:
		entry.Vulnerable = true
	}
	uc.record(entry)

	if execErr != nil {
		uc.auditLog.Log(audit.EventPluginError, "probe execution failed", audit.SeverityError, nil, nil, &target,
			map[string]any{"plugin_id": pluginID, "error": execErr.Error()})
		return result, execErr
	}

	if result.Vulnerable {
		uc.auditLog.Log(audit.EventVulnFound, "vulnerability detected", audit.SeverityCritical, nil, nil, &target,
			map[string]any{"plugin_id": pluginID, "vulnerability": result.Vulnerability, "severity": result.Severity})
	}

	return result, nil
}

func (uc *RunProbeUseCase) record(e trace.Entry) {
	if uc.traceBuf != nil {
		uc.traceBuf.Add(e)
	}
}
