// Package auditsink holds concrete audit.Sink implementations: a rotating
// file sink and a templated console sink. The audit.Logger core knows
// nothing about files, rotation, or terminals; that lives here.
package auditsink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/blackridge-sec/vulnscan-core/internal/domain/audit"
	"github.com/blackridge-sec/vulnscan-core/internal/infrastructure/ports"
)

// FileSink appends one JSON line per event to a daily log file, rotating
// on UTC date change or reopening the handle when the current file reaches
// MaxFileSize, and pruning files beyond MaxFiles (oldest mtime first).
type FileSink struct {
	mu sync.Mutex

	logDir      string
	maxFileSize int64
	maxFiles    int
	logger      ports.Logger

	currentPath string
	file        *os.File
}

// FileSinkOption configures a FileSink at construction.
type FileSinkOption func(*FileSink)

// WithMaxFileSize overrides the default 10 MiB rotation threshold.
func WithMaxFileSize(n int64) FileSinkOption {
	return func(s *FileSink) { s.maxFileSize = n }
}

// WithMaxFiles overrides the default retention count of 10.
func WithMaxFiles(n int) FileSinkOption {
	return func(s *FileSink) { s.maxFiles = n }
}

const (
	defaultMaxFileSize = 10 * 1024 * 1024
	defaultMaxFiles    = 10
)

// NewFileSink creates a FileSink rooted at logDir, creating the directory
// if needed. The first log file is opened lazily on the first Write.
func NewFileSink(logDir string, logger ports.Logger, opts ...FileSinkOption) (*FileSink, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("auditsink: create log dir: %w", err)
	}
	s := &FileSink{
		logDir:      logDir,
		maxFileSize: defaultMaxFileSize,
		maxFiles:    defaultMaxFiles,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Write serializes e as a single JSON line and appends it to the current
// log file, rotating first if the date has rolled over or the file has
// reached its size threshold.
func (s *FileSink) Write(e audit.Event) {
	line, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("audit file sink: marshal event", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rotateIfNeeded(); err != nil {
		s.logger.Error("audit file sink: rotate", "error", err)
		return
	}
	if s.file == nil {
		return
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		s.logger.Error("audit file sink: write", "error", err)
		return
	}
	if err := s.file.Sync(); err != nil {
		s.logger.Error("audit file sink: sync", "error", err)
	}
}

// rotateIfNeeded implements the same lazy check the event logger used: the
// file name changes once per UTC day, and an oversized file is also
// rotated to a fresh handle under the same name, opened in append mode, so
// its existing content is kept and later lines go to the same daily file.
// A sink with no open handle (never written, or closed) always reopens.
func (s *FileSink) rotateIfNeeded() error {
	today := time.Now().UTC().Format("2006-01-02")
	path := filepath.Join(s.logDir, fmt.Sprintf("audit-%s.log", today))

	shouldRotate := s.file == nil || path != s.currentPath
	if !shouldRotate {
		if info, err := os.Stat(path); err == nil && info.Size() >= s.maxFileSize {
			shouldRotate = true
		}
	}
	if !shouldRotate {
		return nil
	}

	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	s.file = f
	s.currentPath = path

	s.cleanupOldFiles()
	return nil
}

// cleanupOldFiles removes audit-*.log files beyond MaxFiles, keeping the
// files with the most recent modification time.
func (s *FileSink) cleanupOldFiles() {
	matches, err := filepath.Glob(filepath.Join(s.logDir, "audit-*.log"))
	if err != nil {
		s.logger.Error("audit file sink: glob old files", "error", err)
		return
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	infos := make([]fileInfo, 0, len(matches))
	for _, m := range matches {
		if !strings.HasSuffix(m, ".log") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		infos = append(infos, fileInfo{path: m, modTime: info.ModTime()})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].modTime.After(infos[j].modTime) })

	for _, f := range infos[min(len(infos), s.maxFiles):] {
		if err := os.Remove(f.path); err != nil {
			s.logger.Error("audit file sink: delete old log", "error", err, "path", f.path)
		}
	}
}

// CurrentFile returns the path of the log file currently open for
// writing, or "" if none has been opened yet.
func (s *FileSink) CurrentFile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentPath
}

// Close releases the current file handle. The sink may be written to
// again afterward; it will simply reopen on the next Write.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
