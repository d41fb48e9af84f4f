package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// New builds the top-level structured logger micromux runs with. level is
// one of debug/info/warn/error (case-insensitive), defaulting to info for
// anything else. format is text or json (case-insensitive), defaulting to
// text. Output goes to stderr, matching the teacher's convention of keeping
// stdout free for supervised process output.
func New(level, format string) *slog.Logger {
	return NewTo(level, format, os.Stderr)
}

// NewTo builds a logger the same way New does, but against an arbitrary
// writer. serve uses it to fan engine logs out to stderr and the session
// log file; tui uses it to write them to the session log file alone.
func NewTo(level, format string, w io.Writer) *slog.Logger {
	slogLevel, err := parseLevel(level)
	if err != nil {
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: slogLevel}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// SessionLogPath returns the path of the per-run session log file: the
// user cache directory, a micromux subdirectory, and a file named for this
// process's pid. Callers create the subdirectory themselves since opening
// the file is the thing that can fail meaningfully.
func SessionLogPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(dir, "micromux", fmt.Sprintf("%d.log", os.Getpid())), nil
}

// OpenSessionLog creates (or truncates) the session log file named by
// SessionLogPath, creating its parent directory if needed, and returns it
// for the caller to use as an io.Writer and to Close on shutdown.
func OpenSessionLog() (*os.File, string, error) {
	path, err := SessionLogPath()
	if err != nil {
		return nil, "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, "", fmt.Errorf("creating session log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, "", fmt.Errorf("opening session log %q: %w", path, err)
	}
	return f, path, nil
}
