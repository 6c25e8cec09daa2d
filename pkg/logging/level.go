package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is the severity of a log record. Lower values are more severe.
type Level int8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelHTTP
	LevelVerbose
	LevelDebug
	LevelSilly
)

var levelNames = [...]string{
	LevelError:   "error",
	LevelWarn:    "warn",
	LevelInfo:    "info",
	LevelHTTP:    "http",
	LevelVerbose: "verbose",
	LevelDebug:   "debug",
	LevelSilly:   "silly",
}

// Levels returns every level ordered from most to least severe.
func Levels() []Level {
	return []Level{LevelError, LevelWarn, LevelInfo, LevelHTTP, LevelVerbose, LevelDebug, LevelSilly}
}

// ParseLevel converts a level name (case-insensitive) to a Level.
func ParseLevel(name string) (Level, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for lvl, n := range levelNames {
		if n == normalized {
			return Level(lvl), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, name)
}

func (l Level) String() string {
	if l.valid() {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int8(l))
}

// Enabled reports whether a record at l passes a filter whose minimum is min.
func (l Level) Enabled(min Level) bool {
	return l <= min
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, int8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

func (l Level) valid() bool {
	return l >= LevelError && l <= LevelSilly
}

// zapLevel maps the ordinal onto zap's scale, where larger means more severe.
// error lands on zapcore.ErrorLevel and info on zapcore.InfoLevel.
func (l Level) zapLevel() zapcore.Level {
	return zapcore.ErrorLevel - zapcore.Level(l)
}

func levelFromZap(z zapcore.Level) Level {
	return Level(zapcore.ErrorLevel - z)
}
