// Package logging builds zap loggers and sanitizes values before they are logged.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. It accepts the names used by
// merge requests (debug, info, warning, error, critical) as well as zap's own.
// Unknown or empty names map to warn.
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "warning":
		return zapcore.WarnLevel
	case "critical":
		return zapcore.DPanicLevel
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return zapcore.WarnLevel
	}
	return lvl
}

// New builds the process logger. Pretty selects the development console encoder.
func New(level string, pretty bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if pretty {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	return cfg.Build()
}

// WithLevel derives a logger whose threshold is level regardless of the parent's.
// The parent logger is not modified.
func WithLevel(logger *zap.Logger, level string) *zap.Logger {
	enabler := ParseLevel(level)
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return &levelCore{Core: c, level: enabler}
	}))
}

// levelCore re-filters entries of the wrapped core with its own level.
type levelCore struct {
	zapcore.Core
	level zapcore.LevelEnabler
}

func (c *levelCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl)
}

func (c *levelCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelCore{Core: c.Core.With(fields), level: c.level}
}

func (c *levelCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}
