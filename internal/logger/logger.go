package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects level, encoding and sinks for the session logger.
type Config struct {
	Level      int8     `yaml:"level"`
	Encoding   string   `yaml:"encoding"`
	OutputPath []string `yaml:"outputPath"`
}

// New builds the application logger. Defaults: info level, console
// encoding, stdout.
func New(cfg Config) *zap.SugaredLogger {
	if cfg.Encoding == "" {
		cfg.Encoding = "console"
	}
	if len(cfg.OutputPath) == 0 {
		cfg.OutputPath = []string{"stdout"}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(zapcore.Level(cfg.Level)),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Sampling:          nil,
		Encoding:          cfg.Encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       cfg.OutputPath,
		ErrorOutputPaths: []string{
			"stderr",
		},
	}
	return zap.Must(config.Build()).Sugar()
}
