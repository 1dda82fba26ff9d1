package common

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *zap.Logger
	once   sync.Once
)

func getLogger() *zap.Logger {
	if logger == nil {
		initLogger()
	}
	return logger
}

func GetLogger() *zap.Logger {
	logger = getLogger()
	return logger.Named("default")
}

func GetLoggerWith(name string, fields ...zap.Field) *zap.Logger {
	logger = getLogger()
	return logger.Named(name).With(fields...)
}

// GetCategoryLogger is the usual way the engine packages log: a named logger
// carrying the category field.
func GetCategoryLogger(name, category string) *zap.Logger {
	return GetLoggerWith(name, zap.String(LoggerFieldCategory, category))
}

func logsDir() string {
	if dir, found := os.LookupEnv(EnvKeyPlantLogDir); found && dir != "" {
		return dir
	}
	dir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting current directory: %v", err)
	}
	return filepath.Join(dir, "logs")
}

func fileLevel() zapcore.Level {
	level := zap.InfoLevel
	if s, found := os.LookupEnv(EnvKeyPlantLogLevel); found {
		if l, err := zapcore.ParseLevel(s); err == nil {
			level = l
		}
	}
	return level
}

func initLogger() {
	once.Do(func() {
		dir := logsDir()
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			log.Fatalf("Error find/create logs directory: %v", err)
		}

		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(dir, "plant-care.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     28,   // days
			Compress:   true, // gzip
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderCfg),
			zapcore.AddSync(logFile),
			fileLevel(),
		)

		if IsProduction() {
			logger = zap.New(fileCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		} else {
			consoleEncoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
			consoleCore := zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zap.DebugLevel)

			combinedCore := zapcore.NewTee(fileCore, consoleCore)
			logger = zap.New(combinedCore, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
		}
	})
}

func SetTestCaptureLogger(buf *bytes.Buffer, level zapcore.Level) {
	_ = GetLogger()

	writer := zapcore.AddSync(buf)
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	core := zapcore.NewCore(encoder, writer, level)
	logger = zap.New(core)
}

func SetTestLoggerNop() {
	_ = GetLogger()

	logger = zap.NewNop()
}

// ParseLogs decodes captured JSON log lines, skipping anything that is not JSON.
func ParseLogs(r io.Reader) []map[string]any {
	scanner := bufio.NewScanner(r)
	var logs []map[string]any

	for scanner.Scan() {
		var j map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}

// LogMessages returns the "msg" field of every captured line.
func LogMessages(r io.Reader) []string {
	return Mapper(ParseLogs(r), func(l map[string]any) string {
		msg, _ := l["msg"].(string)
		return msg
	})
}
