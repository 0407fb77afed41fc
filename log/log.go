// Package log provides the logging functionality for gfxd.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var Logger *gfxdLogger

func init() {
	Logger = CreateLoggerWithConfig(DefaultLoggerConfig())
}

func DefaultLoggerConfig() *zap.Config {
	c := zap.NewProductionConfig()
	c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return &c
}

func ParseLogLevel(logLevel string) (zap.AtomicLevel, error) {
	zapLvl := zap.NewAtomicLevel() // info level by default
	if logLevel != "" && logLevel != "info" {
		var err error
		zapLvl, err = zap.ParseAtomicLevel(logLevel)
		if err != nil {
			return zap.AtomicLevel{}, err
		}
	}
	return zapLvl, nil
}

// CreateLogger writes to the process stderr, or to logFile with rotation
// when logFile is non-empty.
func CreateLogger(logLevel zap.AtomicLevel, logFile string) *gfxdLogger {
	if logFile != "" {
		return createLoggerWithLumberjack(logFile, 64, logLevel.Level())
	}

	lCfg := DefaultLoggerConfig()
	lCfg.Level = logLevel
	return CreateLoggerWithConfig(lCfg)
}

func createLoggerWithLumberjack(logFile string, maxSize int, logLevel zapcore.Level) *gfxdLogger {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    maxSize, // megabytes
		MaxBackups: 5,
		MaxAge:     3,    // days
		Compress:   true, // compress the rotated files
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		w,
		logLevel,
	)
	return &gfxdLogger{zap.New(core).Sugar()}
}

func CreateLoggerWithConfig(config *zap.Config) *gfxdLogger {
	if config == nil {
		config = DefaultLoggerConfig()
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}

	return &gfxdLogger{l.Sugar()}
}

type gfxdLogger struct {
	*zap.SugaredLogger
}

func SetLogger(logger *gfxdLogger) {
	if logger != nil {
		Logger = logger
	}
}
