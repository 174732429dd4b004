package logx

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts *zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap builds a production or development zap logger depending on envName,
// honoring an optional level override. It is the process-wide logger
// constructor called once from cmd/depositengine.
//
//nolint:ireturn
func NewZap(envName, levelOverride string) Logger {
	var cfg zap.Config

	if envName == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if levelOverride != "" {
		var lvl zapcore.Level
		if err := lvl.Set(levelOverride); err != nil {
			log.Printf("invalid log level %q, falling back to info: %v", levelOverride, err)
			lvl = zapcore.InfoLevel
		}

		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}

	return &zapLogger{s: logger.Sugar()}
}

func (l *zapLogger) Info(args ...any)                  { l.s.Info(args...) }
func (l *zapLogger) Infof(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *zapLogger) Error(args ...any)                 { l.s.Error(args...) }
func (l *zapLogger) Errorf(format string, args ...any) { l.s.Errorf(format, args...) }
func (l *zapLogger) Warn(args ...any)                  { l.s.Warn(args...) }
func (l *zapLogger) Warnf(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *zapLogger) Debug(args ...any)                 { l.s.Debug(args...) }
func (l *zapLogger) Debugf(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *zapLogger) Fatal(args ...any)                 { l.s.Fatal(args...) }
func (l *zapLogger) Fatalf(format string, args ...any) { l.s.Fatalf(format, args...) }
func (l *zapLogger) Sync() error                       { return l.s.Sync() }

//nolint:ireturn
func (l *zapLogger) With(fields ...any) Logger {
	return &zapLogger{s: l.s.With(fields...)}
}
