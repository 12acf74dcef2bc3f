package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/blackridge-sec/vulnscan-core/internal/app"
)

func main() {
	cfg := app.DefaultConfig()
	flag.IntVar(&cfg.Port, "port", cfg.Port, "status server port")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.VulnPluginDir, "vuln-plugin-dir", cfg.VulnPluginDir, "directory of vulnerability plugin manifests")
	flag.StringVar(&cfg.ToolPluginDir, "tool-plugin-dir", cfg.ToolPluginDir, "directory of tool plugin manifests")
	flag.Float64Var(&cfg.RateLimiterCapacity, "rate-limit-capacity", cfg.RateLimiterCapacity, "per-plugin token bucket capacity")
	flag.Float64Var(&cfg.RateLimiterRate, "rate-limit-rate", cfg.RateLimiterRate, "per-plugin token bucket refill rate (tokens/sec)")
	flag.IntVar(&cfg.BreakerFailureThreshold, "breaker-failure-threshold", cfg.BreakerFailureThreshold, "consecutive failures before a circuit opens")
	flag.IntVar(&cfg.BreakerSuccessThreshold, "breaker-success-threshold", cfg.BreakerSuccessThreshold, "consecutive half-open successes before a circuit closes")
	flag.DurationVar(&cfg.BreakerRecoveryTimeout, "breaker-recovery-timeout", cfg.BreakerRecoveryTimeout, "time an open circuit waits before probing again")
	flag.DurationVar(&cfg.DefaultTimeout, "default-timeout", cfg.DefaultTimeout, "default per-probe timeout")
	flag.StringVar(&cfg.AuditLogDir, "audit-log-dir", cfg.AuditLogDir, "directory for rotating audit log files")
	flag.Int64Var(&cfg.AuditMaxFileMB, "audit-max-file-mb", cfg.AuditMaxFileMB, "audit log file size rollover threshold in MB")
	flag.IntVar(&cfg.AuditMaxFiles, "audit-max-files", cfg.AuditMaxFiles, "number of rotated audit log files to retain")
	flag.BoolVar(&cfg.AuditConsole, "audit-console", cfg.AuditConsole, "also emit audit events to stderr")
	flag.StringVar(&cfg.AuditFilterExpr, "audit-filter", cfg.AuditFilterExpr, "expr-lang boolean expression filtering audited events")
	flag.IntVar(&cfg.TraceSize, "trace-size", cfg.TraceSize, "number of recent probe trace entries to keep")
	flag.Parse()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := a.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
