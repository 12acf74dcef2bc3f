package dnsresolver_test

import (
	"context"
	"testing"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/plugins/tools/dnsresolver"
)

func TestResolver_Name(t *testing.T) {
	r := dnsresolver.New(time.Second, 16, 10)
	if r.Name() != "dns_resolver" {
		t.Errorf("unexpected tool name %q", r.Name())
	}
}

func TestResolver_ResolveA_Localhost(t *testing.T) {
	r := dnsresolver.New(2*time.Second, 16, 0)
	addrs, err := r.ResolveA(context.Background(), "localhost")
	if err != nil {
		t.Fatalf("ResolveA: %v", err)
	}
	if len(addrs) == 0 {
		t.Fatal("expected at least one address for localhost")
	}
}

func TestResolver_ClearCache(t *testing.T) {
	r := dnsresolver.New(2*time.Second, 16, 0)
	if _, err := r.ResolveA(context.Background(), "localhost"); err != nil {
		t.Fatalf("ResolveA: %v", err)
	}
	r.ClearCache()
	// Cache cleared; a subsequent resolve must still succeed (re-resolves
	// rather than returning a stale miss).
	if _, err := r.ResolveA(context.Background(), "localhost"); err != nil {
		t.Fatalf("ResolveA after clear: %v", err)
	}
}

func TestResolver_NonexistentDomainReturnsEmptyNotError(t *testing.T) {
	r := dnsresolver.New(2*time.Second, 16, 0)
	addrs, err := r.ResolveA(context.Background(), "this-domain-should-not-exist-12345.invalid")
	if err != nil {
		t.Fatalf("expected NXDOMAIN to be reported as empty result, not error, got %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("expected no addresses for nonexistent domain, got %v", addrs)
	}
}
