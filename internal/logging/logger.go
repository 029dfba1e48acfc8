// Package logging provides a shared logger and log utilities to be used in all internal packages.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

var (
	L *zap.Logger        = zap.L()
	S *zap.SugaredLogger = zap.S()
)

// Initialize replaces the package-level loggers with a logger at the given
// verbosity. When stderr is a terminal the logger uses a human readable
// console encoder, otherwise JSON.
func Initialize(v int) {
	atom := zap.NewAtomicLevelAt(zapcore.Level(-v))

	var (
		encoder zapcore.Encoder
		writer  zapcore.WriteSyncer
	)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		writer = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey: "message",

			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalColorLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		})
	} else {
		writer = zapcore.Lock(os.Stderr)
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	core := zapcore.NewCore(encoder, writer, atom)

	setLogger(zap.New(core, zap.AddCaller()))
}

func setLogger(logger *zap.Logger) {
	L = logger
	S = logger.Sugar()
}

func Debugf(format string, args ...interface{}) {
	S.Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	S.Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	S.Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	S.Errorf(format, args...)
}
