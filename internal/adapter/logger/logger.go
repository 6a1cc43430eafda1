package logger

import (
	"os"

	"github.com/sm8ta/webike_rental_microservice/internal/core/ports"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ ports.LoggerPort = (*LoggerAdapter)(nil)

type LoggerAdapter struct {
	log *zap.Logger
}

// NewLoggerAdapter logs JSON to stdout in production and uses zap's
// development console encoder everywhere else.
func NewLoggerAdapter(env, level string) *LoggerAdapter {
	lvl := levelFromString(level)

	if env != "production" {
		c := zap.NewDevelopmentConfig()
		c.Level = zap.NewAtomicLevelAt(lvl)
		if l, err := c.Build(zap.AddCallerSkip(1)); err == nil {
			return &LoggerAdapter{log: l}
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(os.Stdout), lvl)
	return &LoggerAdapter{
		log: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
	}
}

// NewFromZap wraps an existing logger, e.g. zaptest or zap.NewNop in tests.
func NewFromZap(l *zap.Logger) *LoggerAdapter {
	return &LoggerAdapter{log: l}
}

func levelFromString(l string) zapcore.Level {
	switch l {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *LoggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.log.Debug(msg, toZap(fields)...)
}

func (l *LoggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.log.Info(msg, toZap(fields)...)
}

func (l *LoggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.log.Warn(msg, toZap(fields)...)
}

func (l *LoggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.log.Error(msg, toZap(fields)...)
}

func (l *LoggerAdapter) Sync() error {
	return l.log.Sync()
}

func toZap(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
