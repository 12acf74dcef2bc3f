// Package xssreflected implements a reflected cross-site-scripting probe.
// It appends a set of script payloads as a query parameter and checks
// whether the response echoes them back, using antchfx/xmlquery to
// XPath-query the parsed HTML body for unescaped script content, so the
// detector survives attribute reordering and surrounding markup noise,
// and a plain substring search for the payload when that finds nothing.
package xssreflected

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
)

func init() {
	plugin.DefaultCatalog.RegisterVuln("xss_reflected", func() plugin.Verifier {
		return New()
	})
}

var payloads = []string{
	`<script>alert('XSS')</script>`,
	`<img src=x onerror=alert('XSS')>`,
	`javascript:alert('XSS')`,
	`<svg onload=alert('XSS')>`,
	`'"><script>alert('XSS')</script>`,
	`<body onload=alert('XSS')>`,
}

// Verifier probes a target URL for reflected XSS.
type Verifier struct{}

// New constructs a ready-to-use Verifier.
func New() *Verifier { return &Verifier{} }

// Verify implements plugin.Verifier.
func (v *Verifier) Verify(ctx context.Context, target string, httpClient *http.Client, opts map[string]any) (plugin.VerifyResult, error) {
	result := plugin.VerifyResult{
		Vulnerable:    false,
		Vulnerability: "Reflected XSS",
		Severity:      "medium",
	}

	for _, payload := range payloads {
		testURL := fmt.Sprintf("%s?q=%s", target, payload)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
		if err != nil {
			continue
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			continue
		}

		if scriptEchoesPayload(string(body), payload) {
			result.Vulnerable = true
			result.Details = append(result.Details, fmt.Sprintf("payload=%q location=query status=%d", payload, resp.StatusCode))
			evidence := "payload reflected: " + truncate(payload, 50)
			result.Evidence = &evidence
			return result, nil
		}
	}

	return result, nil
}

// Cleanup implements plugin.Cleaner.
func (v *Verifier) Cleanup(ctx context.Context, target string, opts map[string]any) error {
	return nil
}

// scriptEchoesPayload first tries an XPath query over the parsed response
// for a <script> node containing "alert" (survives attribute reordering
// and surrounding markup noise); if the body does not parse as
// well-formed markup, or no such node is found, it falls back to the same
// verbatim-reflection check the original plugin used.
func scriptEchoesPayload(body, payload string) bool {
	doc, err := xmlquery.Parse(strings.NewReader(body))
	if err == nil {
		for _, n := range xmlquery.Find(doc, "//script") {
			if strings.Contains(xmlquery.InnerText(n), "alert") {
				return true
			}
		}
	}
	return strings.Contains(body, payload)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
