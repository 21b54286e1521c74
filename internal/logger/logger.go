// Package logger builds the application's zap logger.
package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the name of the JSON log file inside the log directory.
const FileName = "watchpost.log"

// Config controls where and how much is logged.
type Config struct {
	// Dir receives a JSON log file. Empty disables file logging.
	Dir string
	// Level is a zap level name: debug, info, warn, error.
	Level string
	// Console enables human-readable output on stdout.
	Console bool
}

// New builds a logger that writes a console stream to stdout and JSON lines
// to <Dir>/watchpost.log. The returned cleanup flushes and closes the file.
func New(cfg Config) (*zap.SugaredLogger, func(), error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	var cores []zapcore.Core
	var file *os.File

	if cfg.Console {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(enc),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		file = f

		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			zapcore.AddSync(f),
			level,
		))
	}

	if len(cores) == 0 {
		return zap.NewNop().Sugar(), func() {}, nil
	}

	log := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()

	cleanup := func() {
		_ = log.Sync()
		if file != nil {
			file.Close()
		}
	}
	return log, cleanup, nil
}
