// Package logging wraps zerolog with the console format used by pfam-int.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const timeFormat = "15:04:05"

// Logger is a console zerolog logger. Progress bars and notices are drawn on
// stderr, so CLI logs go to stdout.
type Logger struct {
	zlog zerolog.Logger
}

// NewLogger writes human-readable lines to w, coloured only on a terminal.
func NewLogger(w io.Writer) *Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: !isTerminal(w)}
	return &Logger{zlog: zerolog.New(cw).With().Timestamp().Logger()}
}

func NewDefaultCLILogger() *Logger {
	return NewLogger(os.Stdout)
}

// NewNopLogger discards everything.
func NewNopLogger() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *Logger) Debug() *zerolog.Event { return l.zlog.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zlog.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zlog.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zlog.Error() }

// Debugf is shown only with --debug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Child returns a Logger tagging every line with key=value.
func (l *Logger) Child(key, value string) *Logger {
	return &Logger{zlog: l.zlog.With().Str(key, value).Logger()}
}

// SetGlobalLevel sets the minimum level for every Logger.
func SetGlobalLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// LeveledLogger adapts Logger to go-retryablehttp's key/value interface.
// The library's per-request Info chatter is demoted to debug.
type LeveledLogger struct {
	L *Logger
}

func (r LeveledLogger) Error(msg string, kv ...interface{}) { fields(r.L.Error(), kv).Msg(msg) }
func (r LeveledLogger) Warn(msg string, kv ...interface{})  { fields(r.L.Warn(), kv).Msg(msg) }
func (r LeveledLogger) Info(msg string, kv ...interface{})  { fields(r.L.Debug(), kv).Msg(msg) }
func (r LeveledLogger) Debug(msg string, kv ...interface{}) { fields(r.L.Debug(), kv).Msg(msg) }

func fields(e *zerolog.Event, kv []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	return e
}

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
