package observability

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/model-gateway/internal/config"
)

// NewLogger builds the process logger. LOG_FORMAT=console switches to the
// human-readable encoder; anything else is JSON. An unknown level means info.
// Below debug level repeated entries are sampled.
func NewLogger(cfg config.LoggerConfig, fields ...zap.Field) (*zap.Logger, error) {
	zapCfg := loggerConfig(cfg)
	return zapCfg.Build(zap.Fields(fields...))
}

func loggerConfig(cfg config.LoggerConfig) zap.Config {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(strings.TrimSpace(cfg.Level))); err != nil {
		level = zapcore.InfoLevel
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.MessageKey = "message"
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.MillisDurationEncoder

	encoding := "json"
	if strings.EqualFold(cfg.Format, "console") {
		encoding = "console"
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      level == zapcore.DebugLevel,
		Encoding:         encoding,
		EncoderConfig:    encoder,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	if level > zapcore.DebugLevel {
		zapCfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 100}
	}
	return zapCfg
}
