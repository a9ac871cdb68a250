package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogFilePath is the default log file, relative to the working directory.
const LogFilePath = "logs/galaxy.txt"

// maxLines caps the in-memory history shown by the terminal.
const maxLines = 500

// Options configures New. Zero values mean: debug level, text format, LogFilePath, stdout.
type Options struct {
	Level    string
	JSON     bool
	FilePath string
	Stdout   io.Writer
}

// Logger is a slog.Logger that also keeps recent lines in memory for on-screen display
// and appends every record to a log file on disk.
type Logger struct {
	*slog.Logger

	mu    sync.Mutex
	lines []string
	file  *os.File
}

// New builds the logger and ensures the log directory exists. When the file cannot be
// opened the logger still works, writing to stdout and memory only.
func New(opts Options) *Logger {
	if opts.FilePath == "" {
		opts.FilePath = LogFilePath
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	l := &Logger{lines: make([]string, 0, 64)}

	out := opts.Stdout
	if err := os.MkdirAll(filepath.Dir(opts.FilePath), 0755); err == nil {
		if f, err := os.OpenFile(opts.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
			l.file = f
			out = io.MultiWriter(opts.Stdout, f)
		}
	}

	level := ParseLevel(opts.Level)
	var primary slog.Handler
	if opts.JSON {
		primary = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	} else {
		primary = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}
	screen := slog.NewTextHandler(lineWriter{l}, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	l.Logger = slog.New(fanout{primary, screen})
	return l
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels; anything else is debug.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Log appends a raw line (e.g. terminal input) prefixed with the local time.
func (l *Logger) Log(line string) {
	l.appendLine("[" + time.Now().Format("2006-01-02 15:04:05") + "] " + line)
	l.Logger.Debug("Terminal input", "line", line)
}

// Lines returns a copy of the stored lines, oldest first.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) appendLine(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	if over := len(l.lines) - maxLines; over > 0 {
		l.lines = append(l.lines[:0], l.lines[over:]...)
	}
}

// lineWriter receives whole formatted records from a slog handler.
type lineWriter struct{ l *Logger }

func (w lineWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.l.appendLine(line)
	}
	return len(p), nil
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
