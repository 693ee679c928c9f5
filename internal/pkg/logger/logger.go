package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	log *zap.Logger
	mu  sync.RWMutex
)

// Options 日志输出配置
// OutputPath/ErrorPath 为空时只输出到标准输出/标准错误
type Options struct {
	OutputPath string
	ErrorPath  string
	Level      string
}

func build(opts Options) (*zap.Logger, error) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(opts.Level)); err != nil {
		l = zap.InfoLevel
		fmt.Fprintf(os.Stderr, "Failed to parse log level '%s', defaulting to info: %v\n", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(l)
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	if opts.OutputPath != "" && opts.OutputPath != "stdout" {
		cfg.OutputPaths = append(cfg.OutputPaths, opts.OutputPath)
	}
	if opts.ErrorPath != "" && opts.ErrorPath != "stderr" {
		cfg.ErrorOutputPaths = append(cfg.ErrorOutputPaths, opts.ErrorPath)
	}
	for _, p := range []string{opts.OutputPath, opts.ErrorPath} {
		if p == "" || p == "stdout" || p == "stderr" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
	}
	cfg.Encoding = "json"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}

// InitLogger 初始化全局 zap 日志，可重复调用，后一次覆盖前一次
func InitLogger(opts Options) error {
	l, err := build(opts)
	if err != nil {
		return fmt.Errorf("failed to build zap logger: %w", err)
	}
	mu.Lock()
	log = l
	mu.Unlock()
	zap.ReplaceGlobals(l)
	return nil
}

// GetLogger 返回全局 logger，未初始化时使用 info 级别的默认配置
func GetLogger() *zap.Logger {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		return l
	}
	if err := InitLogger(Options{Level: "info"}); err != nil {
		return zap.NewNop()
	}
	mu.RLock()
	defer mu.RUnlock()
	return log
}

// With 返回带有固定字段的子 logger
func With(fields ...zap.Field) *zap.Logger {
	return GetLogger().With(fields...)
}

// Sugar 返回 SugaredLogger，适合非关键路径上的格式化输出
func Sugar() *zap.SugaredLogger {
	return GetLogger().Sugar()
}

// Sync 刷新缓冲区，程序退出前调用
func Sync() {
	mu.RLock()
	l := log
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	GetLogger().Fatal(msg, fields...)
}
