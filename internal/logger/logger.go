// Package logger configures the process-wide apex/log handler. Interactive
// binaries log to stderr; the MCP server logs to a file because stdio
// carries the protocol.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/pkg/errors"
)

const (
	// EnvLevel overrides the log level ("debug", "info", "warn", "error").
	EnvLevel = "CONFCACHE_LOG"
	// EnvLogFile redirects log output to a file.
	EnvLogFile = "CONFCACHE_LOG_FILE"
)

// Handler formats entries as "2006-01-02 15:04:05 L message k=v" and writes
// them to a single writer.
type Handler struct {
	mu sync.Mutex
	w  io.Writer
}

// NewHandler returns a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{w: w}
}

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ts := e.Timestamp.Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())
	fmt.Fprintf(h.w, "%s %.1s %s", ts, level, e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(h.w, " %s=%v", name, e.Fields.Get(name))
	}
	fmt.Fprintln(h.w)
	return nil
}

// Init installs the handler and level. The CONFCACHE_LOG and
// CONFCACHE_LOG_FILE environment variables override defaultLevel and the
// stderr destination. An unknown level is an error, not a panic.
func Init(defaultLevel string) error {
	w := io.Writer(os.Stderr)
	if path := os.Getenv(EnvLogFile); path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return err
		}
		w = f
	}
	return install(w, defaultLevel)
}

// InitFile logs to the given path, or to CONFCACHE_LOG_FILE, or to a file
// next to the executable. Used by binaries whose stdio is spoken for.
func InitFile(path, defaultLevel string) error {
	if path == "" {
		path = os.Getenv(EnvLogFile)
	}
	if path == "" {
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "confcache.log")
		} else {
			path = "./confcache.log"
		}
	}
	f, err := openLogFile(path)
	if err != nil {
		return err
	}
	return install(f, defaultLevel)
}

func install(w io.Writer, defaultLevel string) error {
	level := os.Getenv(EnvLevel)
	if level == "" {
		level = defaultLevel
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "log level %q", level)
	}
	log.SetHandler(NewHandler(w))
	log.SetLevel(lvl)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
