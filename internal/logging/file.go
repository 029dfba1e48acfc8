package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// UseFileLogger sends all log output to a rotated file instead of stderr.
func UseFileLogger(filepath string, v int) {
	writer := &lumberjack.Logger{
		Filename:   filepath,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     28, // days
	}

	atom := zap.NewAtomicLevelAt(zapcore.Level(-v))
	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, zapcore.AddSync(writer), atom)

	setLogger(zap.New(core, zap.AddCaller()))
}
