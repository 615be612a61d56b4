// Package logger provides module-scoped zerolog loggers sharing one output.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = newBase(os.Stderr)
)

func newBase(w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	return zerolog.New(out).With().Timestamp().Logger()
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init sets the output and the global level. Debug enables debug events.
func Init(debug bool, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	base = newBase(w)
	mu.Unlock()

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// Logger is a handle bound to a module name. It resolves the shared output
// on every event so package-level loggers pick up Init.
type Logger struct {
	module string
}

// New creates a logger for module.
func New(module string) *Logger {
	return &Logger{module: module}
}

func (l *Logger) z() *zerolog.Logger {
	mu.RLock()
	lg := base.With().Str("module", l.module).Logger()
	mu.RUnlock()
	return &lg
}

func (l *Logger) Debug() *zerolog.Event { return l.z().Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.z().Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.z().Warn() }
func (l *Logger) Error() *zerolog.Event { return l.z().Error() }
