package common

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     func(t time.Time, enc zapcore.PrimitiveArrayEncoder) { enc.AppendString(t.Format("15:04:05.000")) },
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// ParseLevel maps a config string to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// InitLogger installs the process logger. json selects the JSON encoder
// for production; otherwise a console encoder is used.
func InitLogger(level string, json bool) {
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	if json {
		encoder = zapcore.NewJSONEncoder(encoderConfig())
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), ParseLevel(level))
	l := zap.New(core, zap.Fields(zap.String("service", "product-identity")))
	SetLogger(l)
}

// SetLogger replaces the process logger. Tests use it with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
	zap.ReplaceGlobals(l)
}

// Logger returns the process logger; a no-op logger until InitLogger runs.
func Logger() *zap.Logger {
	return logger.Load()
}

func LogInfo(msg string, fields ...zap.Field) {
	Logger().Info(msg, fields...)
}

func LogWarn(msg string, fields ...zap.Field) {
	Logger().Warn(msg, fields...)
}

func LogError(msg string, fields ...zap.Field) {
	Logger().Error(msg, fields...)
}

func LogDebug(msg string, fields ...zap.Field) {
	Logger().Debug(msg, fields...)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger().Sync()
}
