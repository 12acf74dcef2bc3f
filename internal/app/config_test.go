package app_test

import (
	"path/filepath"
	"testing"

	"github.com/blackridge-sec/vulnscan-core/internal/app"
)

func TestDefaultConfig_HasSensibleValues(t *testing.T) {
	cfg := app.DefaultConfig()

	if cfg.Port == 0 {
		t.Error("Port should not be zero")
	}
	if cfg.LogLevel == "" {
		t.Error("LogLevel should not be empty")
	}
	if cfg.VulnPluginDir == "" {
		t.Error("VulnPluginDir should not be empty")
	}
	if cfg.ToolPluginDir == "" {
		t.Error("ToolPluginDir should not be empty")
	}
	if cfg.RateLimiterCapacity == 0 {
		t.Error("RateLimiterCapacity should not be zero")
	}
	if cfg.BreakerFailureThreshold == 0 {
		t.Error("BreakerFailureThreshold should not be zero")
	}
	if cfg.BreakerRecoveryTimeout == 0 {
		t.Error("BreakerRecoveryTimeout should not be zero")
	}
	if cfg.DefaultTimeout == 0 {
		t.Error("DefaultTimeout should not be zero")
	}
	if cfg.TraceSize == 0 {
		t.Error("TraceSize should not be zero")
	}
	if cfg.ReadTimeout == 0 {
		t.Error("ReadTimeout should not be zero")
	}
	if cfg.WriteTimeout == 0 {
		t.Error("WriteTimeout should not be zero")
	}
	if cfg.IdleTimeout == 0 {
		t.Error("IdleTimeout should not be zero")
	}
	if cfg.ShutdownTimeout == 0 {
		t.Error("ShutdownTimeout should not be zero")
	}
}

func TestNew_ConstructsWithoutStartingBackgroundWork(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.VulnPluginDir = filepath.Join(t.TempDir(), "vulns")
	cfg.ToolPluginDir = filepath.Join(t.TempDir(), "tools")
	cfg.AuditLogDir = filepath.Join(t.TempDir(), "audit")

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if a == nil {
		t.Fatal("expected non-nil App")
	}
}

func TestNew_WithAllLogLevels(t *testing.T) {
	levels := []string{"debug", "info", "warn", "error", "unknown"}

	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			cfg := app.DefaultConfig()
			cfg.LogLevel = level
			cfg.VulnPluginDir = filepath.Join(t.TempDir(), "vulns")
			cfg.ToolPluginDir = filepath.Join(t.TempDir(), "tools")
			cfg.AuditLogDir = filepath.Join(t.TempDir(), "audit")

			a, err := app.New(cfg)
			if err != nil {
				t.Fatalf("New failed for log level %q: %v", level, err)
			}
			if a == nil {
				t.Fatalf("expected non-nil App for log level %q", level)
			}
		})
	}
}
