package common

import (
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger is common logging interface.
//
// *zap.SugaredLogger satisfies it as well.
type Logger interface {
	Errorf(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// make sure that LevelLogger and the zap sugared logger implement Logger interface.
var (
	_ Logger = (*LevelLogger)(nil)
	_ Logger = (*zap.SugaredLogger)(nil)
)

// NewZapLogger creates a development logger when verbose is true,
// otherwise a production one.
func NewZapLogger(verbose bool) (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return l.Sugar(), nil
}

// NewLoggerFromEnv returns a LevelLogger with the name prefix and
// severity based on the named environment variable or it
// falls back to LevelWarn if it's missing.
//
// It uses the standard log.Print function for output
// so it can be controlled via the exposed configuration methods.
func NewLoggerFromEnv(name, key string) *LevelLogger {
	return NewLogger(name, ParseLevel(os.Getenv(key)), log.Print)
}

// ParseLevel parses a severity name, unknown names result in LevelWarn.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "e", "err", "error":
		return LevelError
	case "i", "info":
		return LevelInfo
	case "d", "debug":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// LogLevel is logging severity.
type LogLevel uint8

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// String returns log level string representation.
func (lvl LogLevel) String() string {
	switch lvl {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return ""
	}
}

// PrintFunc is used for writing logs that works as fmt.Print.
type PrintFunc func(v ...interface{})

// NewLogger creates a new leveled logger instance with the given parameters.
func NewLogger(name string, lvl LogLevel, print PrintFunc) *LevelLogger {
	return &LevelLogger{name: name, lvl: lvl, print: print}
}

// LevelLogger is a logger that supports log levels.
type LevelLogger struct {
	name  string
	lvl   LogLevel
	print PrintFunc
}

func (l *LevelLogger) Errorf(format string, v ...interface{}) {
	l.logf(LevelError, format, v...)
}

func (l *LevelLogger) Infof(format string, v ...interface{}) {
	l.logf(LevelInfo, format, v...)
}

func (l *LevelLogger) Warnf(format string, v ...interface{}) {
	l.logf(LevelWarn, format, v...)
}

func (l *LevelLogger) Debugf(format string, v ...interface{}) {
	l.logf(LevelDebug, format, v...)
}

func (l *LevelLogger) logf(lvl LogLevel, format string, v ...interface{}) {
	if l.print != nil && lvl <= l.lvl {
		l.print(l.name, ": ", lvl.String(), " ", fmt.Sprintf(format, v...))
	}
}
