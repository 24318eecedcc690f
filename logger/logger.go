package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"property_recommend/config"
)

// Logger 全局日志记录器，Init 之前使用默认的文本输出
var Logger = slog.Default()

// ParseLevel 将配置中的日志级别转换为 slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler 根据日志配置创建 slog.Handler
func NewHandler(cfg config.LogConfig) (slog.Handler, error) {
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return nil, err
		}
	}

	var writer io.Writer
	switch strings.ToLower(cfg.Output) {
	case "file":
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writer = file
	case "both":
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		writer = io.MultiWriter(os.Stdout, file)
	default:
		writer = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.NewJSONHandler(writer, opts), nil
	}
	return slog.NewTextHandler(writer, opts), nil
}

// Init 使用配置文件初始化日志系统
func Init(cfg *config.Config) error {
	handler, err := NewHandler(cfg.Log)
	if err != nil {
		return err
	}
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
	return nil
}

// With 返回带固定字段的子日志记录器
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
