// Package apileak implements an API data-leak probe: it walks a JSON API
// response with a set of JSONPath expressions looking for fields that
// commonly indicate accidental exposure of sensitive internal data
// (password hashes, internal tokens, stack traces) in an otherwise public
// response body.
package apileak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/PaesslerAG/jsonpath"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/plugin"
)

func init() {
	plugin.DefaultCatalog.RegisterVuln("apileak", func() plugin.Verifier {
		return New()
	})
}

// suspectPath pairs a JSONPath expression with the field name reported in
// evidence when it resolves to a non-empty value.
type suspectPath struct {
	field string
	expr  string
}

var suspectPaths = []suspectPath{
	{field: "password", expr: "$..password"},
	{field: "password_hash", expr: "$..password_hash"},
	{field: "api_key", expr: "$..api_key"},
	{field: "secret", expr: "$..secret"},
	{field: "access_token", expr: "$..access_token"},
	{field: "stack_trace", expr: "$..stack_trace"},
	{field: "internal_ip", expr: "$..internal_ip"},
}

// Verifier probes a JSON API endpoint for leaked sensitive fields.
type Verifier struct{}

// New constructs a ready-to-use Verifier.
func New() *Verifier { return &Verifier{} }

// Verify implements plugin.Verifier.
func (v *Verifier) Verify(ctx context.Context, target string, httpClient *http.Client, opts map[string]any) (plugin.VerifyResult, error) {
	result := plugin.VerifyResult{
		Vulnerable:    false,
		Vulnerability: "API Data Leak",
		Severity:      "medium",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	defer resp.Body.Close()

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		// Not a JSON response; nothing for this probe to inspect.
		return result, nil
	}

	for _, sp := range suspectPaths {
		value, err := jsonpath.Get(sp.expr, data)
		if err != nil {
			continue
		}
		if isEmptyLeak(value) {
			continue
		}
		result.Vulnerable = true
		result.Details = append(result.Details, fmt.Sprintf("field=%s status=%d", sp.field, resp.StatusCode))
		evidence := fmt.Sprintf("leaked field %q present in response", sp.field)
		result.Evidence = &evidence
	}

	return result, nil
}

// Cleanup implements plugin.Cleaner.
func (v *Verifier) Cleanup(ctx context.Context, target string, opts map[string]any) error {
	return nil
}

func isEmptyLeak(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	default:
		return false
	}
}
