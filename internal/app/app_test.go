//go:build integration

package app_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/app"
)

func testConfig(t *testing.T, port int) app.Config {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.Port = port
	cfg.VulnPluginDir = filepath.Join(t.TempDir(), "vulns")
	cfg.ToolPluginDir = filepath.Join(t.TempDir(), "tools")
	cfg.AuditLogDir = filepath.Join(t.TempDir(), "audit")
	return cfg
}

func TestRun_StartsAndShutdownsGracefully(t *testing.T) {
	port := freePort(t)
	cfg := testConfig(t, port)

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	addr := fmt.Sprintf("http://localhost:%d/healthz", port)
	waitForServer(t, addr, 3*time.Second)

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestRun_ListensOnPortAndServesHealthz(t *testing.T) {
	port := freePort(t)
	cfg := testConfig(t, port)

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
	}()

	addr := fmt.Sprintf("http://localhost:%d/healthz", port)
	waitForServer(t, addr, 3*time.Second)

	resp, err := http.Get(addr)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server not ready at %s after %v", url, timeout)
}
