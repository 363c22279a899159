package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// JSONLogger writes one JSON object per line, for log shippers
type JSONLogger struct {
	zl    zerolog.Logger
	level Level
}

var _ Logger = (*JSONLogger)(nil)

// NewJSONLogger creates a logger writing to w
func NewJSONLogger(w io.Writer, level Level) *JSONLogger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	return &JSONLogger{
		zl:    zerolog.New(w).With().Timestamp().Logger(),
		level: level,
	}
}

func (l *JSONLogger) event(level Level) *zerolog.Event {
	if level < l.level {
		return nil
	}
	switch level {
	case DebugLevel:
		return l.zl.Debug()
	case NoticeLevel:
		// zerolog has no notice level
		return l.zl.Info().Str("severity", "notice")
	case ErrorLevel:
		return l.zl.Error()
	default:
		return l.zl.Info()
	}
}

func (l *JSONLogger) write(level Level, chainID int, format string, args ...interface{}) {
	ev := l.event(level)
	if ev == nil {
		return
	}
	if chain, ok := chainIDMap[chainID]; ok {
		ev = ev.Int("chain_id", chainID).Str("chain", chainNames[chain])
	}
	ev.Msg(fmt.Sprintf(format, args...))
}

func (l *JSONLogger) Info(format string, args ...interface{}) {
	l.write(InfoLevel, 0, format, args...)
}

func (l *JSONLogger) InfoWithChain(chainID int, format string, args ...interface{}) {
	l.write(InfoLevel, chainID, format, args...)
}

func (l *JSONLogger) Error(format string, args ...interface{}) {
	l.write(ErrorLevel, 0, format, args...)
}

func (l *JSONLogger) ErrorWithChain(chainID int, format string, args ...interface{}) {
	l.write(ErrorLevel, chainID, format, args...)
}

func (l *JSONLogger) Debug(format string, args ...interface{}) {
	l.write(DebugLevel, 0, format, args...)
}

func (l *JSONLogger) DebugWithChain(chainID int, format string, args ...interface{}) {
	l.write(DebugLevel, chainID, format, args...)
}

func (l *JSONLogger) Notice(format string, args ...interface{}) {
	l.write(NoticeLevel, 0, format, args...)
}

func (l *JSONLogger) NoticeWithChain(chainID int, format string, args ...interface{}) {
	l.write(NoticeLevel, chainID, format, args...)
}
