package auditsink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
)

const defaultConsoleTemplate = `[AUDIT] {{ severity|upper }} {{ event_type }}: {{ message }}{% if target %} target={{ target }}{% endif %}{% if user_id %} user={{ user_id }}{% endif %}`

// ConsoleSink renders each event through a Pongo2 template and writes the
// result as one line to an io.Writer (stderr by default).
type ConsoleSink struct {
	mu    sync.Mutex
	out   io.Writer
	tpl   *pongo2.Template
	onErr func(error)
}

// ConsoleSinkOption configures a ConsoleSink at construction.
type ConsoleSinkOption func(*ConsoleSink) error

// WithWriter overrides the default stderr destination.
func WithWriter(w io.Writer) ConsoleSinkOption {
	return func(s *ConsoleSink) error {
		s.out = w
		return nil
	}
}

// WithTemplate overrides the default one-line Pongo2 format string.
func WithTemplate(source string) ConsoleSinkOption {
	return func(s *ConsoleSink) error {
		tpl, err := pongo2.FromString(source)
		if err != nil {
			return fmt.Errorf("auditsink: compile console template: %w", err)
		}
		s.tpl = tpl
		return nil
	}
}

// NewConsoleSink creates a ConsoleSink writing to stderr using the default
// line template, unless overridden by opts.
func NewConsoleSink(onErr func(error), opts ...ConsoleSinkOption) (*ConsoleSink, error) {
	tpl, err := pongo2.FromString(defaultConsoleTemplate)
	if err != nil {
		return nil, fmt.Errorf("auditsink: compile default console template: %w", err)
	}
	s := &ConsoleSink{out: os.Stderr, tpl: tpl, onErr: onErr}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write renders e through the configured template and writes one line.
func (s *ConsoleSink) Write(e audit.Event) {
	ctx := pongo2.Context{
		"event_type": string(e.EventType),
		"severity":   string(e.Severity),
		"message":    e.Message,
		"user_id":    derefOrEmpty(e.UserID),
		"source_ip":  derefOrEmpty(e.SourceIP),
		"target":     derefOrEmpty(e.Target),
	}

	line, err := s.tpl.Execute(ctx)
	if err != nil {
		if s.onErr != nil {
			s.onErr(fmt.Errorf("auditsink: render console line: %w", err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func derefOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
