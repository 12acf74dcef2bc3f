package app

import "time"

// Config holds all configurable parameters for the application.
type Config struct {
	Port     int
	LogLevel string

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
	AuditFilterExpr string

	TraceSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Port:     8080,
		LogLevel: "info",

		VulnPluginDir: "./plugins/vulns",
		ToolPluginDir: "./plugins/tools",

		RateLimiterCapacity: 20,
		RateLimiterRate:     10,

		BreakerFailureThreshold: 5,
		BreakerSuccessThreshold: 2,
		BreakerRecoveryTimeout:  30 * time.Second,

		DefaultTimeout: 15 * time.Second,

		AuditLogDir:    "./logs/audit",
		AuditMaxFileMB: 10,
		AuditMaxFiles:  10,
		AuditConsole:   true,

		TraceSize: 200,

		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}
