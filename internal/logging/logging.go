// Package logging builds the zap logger shared by the CLI commands. The
// logger is passed down explicitly; nothing in this module logs through a
// package global.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a sugared logger. With a non-empty logFile, full debug output
// is appended there; the console gets warnings and above unless verbose.
func New(logFile string, verbose bool) (*zap.SugaredLogger, func(), error) {
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:          "T",
		LevelKey:         "L",
		MessageKey:       "M",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeDuration:   zapcore.SecondsDurationEncoder,
		ConsoleSeparator: "  ",
	}
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	consoleLevel := zap.WarnLevel
	if verbose {
		consoleLevel = zap.DebugLevel
	}
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), consoleLevel),
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(f), zap.DebugLevel))
	}

	logger := zap.New(zapcore.NewTee(cores...))
	cleanup := func() { _ = logger.Sync() }
	return logger.Sugar(), cleanup, nil
}
