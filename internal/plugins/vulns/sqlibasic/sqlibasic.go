// Package sqlibasic implements a basic SQL-injection probe: it appends a
// handful of classic injection payloads to the target URL and scans the
// response body for well-known database error signatures.
package sqlibasic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
)

func init() {
	plugin.DefaultCatalog.RegisterVuln("sqli_basic", func() plugin.Verifier {
		return New()
	})
}

var errorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)SQL syntax.*MySQL`),
	regexp.MustCompile(`(?i)Warning.*mysql_`),
	regexp.MustCompile(`(?i)MySqlException`),
	regexp.MustCompile(`(?i)PostgreSQL.*ERROR`),
	regexp.MustCompile(`(?i)Warning.*pg_`),
	regexp.MustCompile(`ORA-\d{5}`),
	regexp.MustCompile(`(?i)Microsoft SQL Server`),
	regexp.MustCompile(`SQLite3::SQLException`),
	regexp.MustCompile(`(?i)Syntax error.*query`),
	regexp.MustCompile(`(?i)unclosed quotation mark`),
}

var payloads = []string{
	`'`,
	`"`,
	`' OR '1'='1`,
	`" OR "1"="1`,
	`1' AND '1'='1`,
	`1" AND "1"="1`,
	`' UNION SELECT NULL--`,
	`' UNION SELECT NULL,NULL--`,
}

// Verifier probes a target URL for reflected SQL error signatures.
type Verifier struct{}

// New constructs a ready-to-use Verifier.
func New() *Verifier { return &Verifier{} }

// Verify implements plugin.Verifier.
func (v *Verifier) Verify(ctx context.Context, target string, httpClient *http.Client, opts map[string]any) (plugin.VerifyResult, error) {
	result := plugin.VerifyResult{
		Vulnerable:    false,
		Vulnerability: "SQL Injection",
		Severity:      "high",
	}

	for _, payload := range payloads {
		testURL := fmt.Sprintf("%s?id=%s", target, payload)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, testURL, nil)
		if err != nil {
			continue
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}

		for _, pattern := range errorPatterns {
			if match := pattern.FindString(string(body)); match != "" {
				result.Vulnerable = true
				result.Details = append(result.Details, fmt.Sprintf("payload=%q status=%d pattern=%q", payload, resp.StatusCode, match))
				evidence := match
				result.Evidence = &evidence
				return result, nil
			}
		}
	}

	return result, nil
}

// Cleanup implements plugin.Cleaner. SQLi probing leaves no state behind.
func (v *Verifier) Cleanup(ctx context.Context, target string, opts map[string]any) error {
	return nil
}
