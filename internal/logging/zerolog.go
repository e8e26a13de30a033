package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts a zerolog.Logger. A logger attached to the context with
// zerolog's WithContext takes precedence over the base logger.
type ZerologLogger struct {
	base      zerolog.Logger
	subsystem string
}

// NewZerologLogger creates a logger tagging every event with subsystem.
func NewZerologLogger(base zerolog.Logger, subsystem string) *ZerologLogger {
	return &ZerologLogger{base: base, subsystem: subsystem}
}

func (l *ZerologLogger) Trace(ctx context.Context, msg string, fields map[string]any) {
	l.logger(ctx).Trace().Fields(fields).Str("subsystem", l.subsystem).Msg(msg)
}

func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields map[string]any) {
	l.logger(ctx).Debug().Fields(fields).Str("subsystem", l.subsystem).Msg(msg)
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, fields map[string]any) {
	l.logger(ctx).Info().Fields(fields).Str("subsystem", l.subsystem).Msg(msg)
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields map[string]any) {
	l.logger(ctx).Warn().Fields(fields).Str("subsystem", l.subsystem).Msg(msg)
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, fields map[string]any) {
	l.logger(ctx).Error().Fields(fields).Str("subsystem", l.subsystem).Msg(msg)
}

func (l *ZerologLogger) logger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if zl := zerolog.Ctx(ctx); zl != zerolog.DefaultContextLogger && zl.GetLevel() != zerolog.Disabled {
			return zl
		}
	}
	return &l.base
}
