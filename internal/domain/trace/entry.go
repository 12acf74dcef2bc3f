package trace

import "time"

// Entry records the outcome of a single probe run for later inspection
// over the status surface, independent of whether it was audited.
type Entry struct {
	Timestamp   time.Time
	PluginID    string
	Target      string
	Vulnerable  bool
	RateLimited bool
	BreakerOpen bool
	Error       string
}
