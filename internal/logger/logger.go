package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin key/value wrapper over zap's SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a logger for the given mode: "prod" writes JSON at info level,
// anything else writes console output at debug level. Output goes to stderr
// so command output on stdout stays clean.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar()}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, redact(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, redact(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, redact(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, redact(kv)...) }

// With returns a child logger that always carries the given pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{sugar: l.sugar.With(redact(kv)...)}
}

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

var secretKeys = []string{"api_key", "apikey", "token", "secret", "password", "authorization"}

func redact(kv []any) []any {
	if len(kv) < 2 {
		return kv
	}
	out := make([]any, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		key, ok := out[i].(string)
		if !ok {
			continue
		}
		if isSecretKey(key) {
			out[i+1] = "[REDACTED]"
		}
	}
	return out
}

func isSecretKey(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	for _, s := range secretKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
