package logger

import (
	"io"
	"os"
	"sync"

	corelogger "github.com/kilianp07/fooddispatch/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

var (
	outMu sync.RWMutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects loggers created afterwards. CLI commands that print
// results on stdout send logs to stderr.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

func output() io.Writer {
	outMu.RLock()
	defer outMu.RUnlock()
	return out
}

// New returns a Logger tagged with component. APP_ENV=dev selects console
// output and LOG_LEVEL sets the minimum level.
func New(component string) Logger {
	return NewZerologLogger(component)
}
