// Package dnsresolver implements the DNS lookup tool plugin: cached A/
// CNAME/PTR resolution with its own outbound pacing, independent of the
// core rate limiter, grounded on the source's DnsResolver tool.
package dnsresolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/golang/groupcache/lru"
	"golang.org/x/time/rate"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
)

func init() {
	plugin.DefaultCatalog.RegisterTool("dns_resolver", func() plugin.Tool {
		return New(DefaultTimeout, DefaultCacheSize, DefaultRate)
	})
}

const (
	DefaultTimeout   = 5 * time.Second
	DefaultCacheSize = 256
	// DefaultRate paces outbound lookups independently of the core rate
	// limiter, which gates probes, not the DNS helper they call into.
	DefaultRate = 20 // lookups/second
)

// Resolver resolves A, CNAME, and PTR records with an LRU cache of prior
// answers and a token-bucket pace limit on outbound lookups.
type Resolver struct {
	timeout time.Duration
	limiter *rate.Limiter
	cache   *lru.Cache
}

// New constructs a Resolver. ratePerSecond of 0 disables self-pacing.
func New(timeout time.Duration, cacheSize int, ratePerSecond float64) *Resolver {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond))
	}
	return &Resolver{
		timeout: timeout,
		limiter: limiter,
		cache:   lru.New(cacheSize),
	}
}

// Name implements plugin.Tool.
func (r *Resolver) Name() string { return "dns_resolver" }

// ResolveA resolves the A records for domain, consulting and populating
// the cache.
func (r *Resolver) ResolveA(ctx context.Context, domain string) ([]string, error) {
	key := "A:" + domain
	if cached, ok := r.cache.Get(key); ok {
		return cached.([]string), nil
	}

	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	resolver := &net.Resolver{}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addrs, err := resolver.LookupHost(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dnsresolver: resolve A %q: %w", domain, err)
	}

	r.cache.Add(key, addrs)
	return addrs, nil
}

// ResolveCNAME resolves the canonical name for domain, or "" if none.
func (r *Resolver) ResolveCNAME(ctx context.Context, domain string) (string, error) {
	key := "CNAME:" + domain
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), nil
	}

	if err := r.wait(ctx); err != nil {
		return "", err
	}

	resolver := &net.Resolver{}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cname, err := resolver.LookupCNAME(ctx, domain)
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("dnsresolver: resolve CNAME %q: %w", domain, err)
	}

	cname = strings.TrimSuffix(cname, ".")
	r.cache.Add(key, cname)
	return cname, nil
}

// ReverseDNS resolves the hostname for ip, or "" if none.
func (r *Resolver) ReverseDNS(ctx context.Context, ip string) (string, error) {
	key := "PTR:" + ip
	if cached, ok := r.cache.Get(key); ok {
		return cached.(string), nil
	}

	if err := r.wait(ctx); err != nil {
		return "", err
	}

	resolver := &net.Resolver{}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	names, err := resolver.LookupAddr(ctx, ip)
	if err != nil || len(names) == 0 {
		if err != nil && isNotFound(err) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("dnsresolver: reverse lookup %q: %w", ip, err)
		}
		return "", nil
	}

	hostname := strings.TrimSuffix(names[0], ".")
	r.cache.Add(key, hostname)
	return hostname, nil
}

// ClearCache drops every cached answer.
func (r *Resolver) ClearCache() {
	r.cache.Clear()
}

func (r *Resolver) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

func isNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}
