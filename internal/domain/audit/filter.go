package audit

// Filter is a predicate run before the sinks; returning false drops the
// event silently. Filters must be total, deterministic, and must not
// mutate the event.
type Filter func(Event) bool

// And returns a filter that requires every filter to pass.
func And(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if !f(e) {
				return false
			}
		}
		return true
	}
}

// Or returns a filter that requires at least one filter to pass.
func Or(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(e Event) bool { return !f(e) }
}

// AllowAll is the filter that never drops an event.
func AllowAll() Filter {
	return func(Event) bool { return true }
}

// MinSeverity returns a filter that drops events below the given severity,
// using the fixed ordering info < warning < error < critical.
func MinSeverity(min Severity) Filter {
	rank := map[Severity]int{
		SeverityInfo:     0,
		SeverityWarning:  1,
		SeverityError:    2,
		SeverityCritical: 3,
	}
	minRank := rank[min]
	return func(e Event) bool { return rank[e.Severity] >= minRank }
}
