// Package auditfilter compiles user-supplied boolean expressions into
// audit.Filter predicates using the Expr language, compiled against a typed
// environment built from each event.
package auditfilter

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
)

// exprEnv is the environment an expression is evaluated against. Field
// names are the lowercase attributes an operator writes in a filter
// expression, e.g. `severity == "critical" && event_type == "vuln_found"`.
type exprEnv struct {
	EventType string         `expr:"event_type"`
	Severity  string         `expr:"severity"`
	Message   string         `expr:"message"`
	UserID    string         `expr:"user_id"`
	SourceIP  string         `expr:"source_ip"`
	Target    string         `expr:"target"`
	Details   map[string]any `expr:"details"`
}

// Compile parses source as a boolean Expr expression and returns an
// audit.Filter that evaluates it against each event. Compilation happens
// once; Filter evaluation never re-parses the expression.
func Compile(source string) (audit.Filter, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("auditfilter: compile expression %q: %w", source, err)
	}
	return filterFor(program), nil
}

func filterFor(program *vm.Program) audit.Filter {
	return func(e audit.Event) bool {
		result, err := expr.Run(program, envFor(e))
		if err != nil {
			// A filter that fails to evaluate is treated as non-matching
			// rather than panicking the audit pipeline.
			return false
		}
		matched, ok := result.(bool)
		return ok && matched
	}
}

func envFor(e audit.Event) exprEnv {
	return exprEnv{
		EventType: string(e.EventType),
		Severity:  string(e.Severity),
		Message:   e.Message,
		UserID:    derefOrEmpty(e.UserID),
		SourceIP:  derefOrEmpty(e.SourceIP),
		Target:    derefOrEmpty(e.Target),
		Details:   e.Details,
	}
}

func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
