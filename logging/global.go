// Package logging wires log/slog for the validator: text output on the
// console, JSON lines in a weekly rotating file, and package-level helpers
// so callers do not have to carry a logger around.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/giygas/pharmacy-validator/config"
)

type LoggingService struct {
	Logger *slog.Logger
	file   *RotatingLogger
}

var DefaultLoggingService *LoggingService

// Options selects where and how much to log
type Options struct {
	Dir            string
	Env            config.Environment
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
	Verbose        bool
}

// OptionsFromConfig maps the application config onto logging options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}
}

// InitLogger installs the global logger. When the log directory cannot be
// used the service falls back to console only.
func InitLogger(opts Options) *LoggingService {
	console := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: GetConsoleLogLevel(opts.Env, opts.Level, opts.Verbose),
	})

	svc := &LoggingService{}

	rl, err := NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		svc.Logger = slog.New(console)
		svc.Logger.Error("Failed to initialize rotating logger", "error", err)
	} else {
		if err := rl.StartCleanup(); err != nil {
			slog.New(console).Warn("Log retention disabled", "error", err)
		}
		file := slog.NewJSONHandler(rl, &slog.HandlerOptions{
			Level: GetFileLogLevel(opts.Level),
		})
		svc.file = rl
		svc.Logger = slog.New(&multiHandler{handlers: []slog.Handler{console, file}})
	}

	DefaultLoggingService = svc
	slog.SetDefault(svc.Logger)
	return svc
}

// Close flushes and closes the log file, if any, and stops its cleanup job
func (s *LoggingService) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// FileLogging reports whether records are still written to a log file
func (s *LoggingService) FileLogging() bool {
	return s != nil && s.file != nil
}

// parseLogLevel maps a level name onto slog, defaulting to info
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// GetConsoleLogLevel picks the console level. An explicit level wins,
// except under tests where the console stays quiet unless verbose is set.
func GetConsoleLogLevel(env config.Environment, level string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if level != "" {
		return parseLogLevel(level)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is the level for the JSON file, never quieter than info
func GetFileLogLevel(level string) slog.Level {
	lvl := parseLogLevel(level)
	if lvl > slog.LevelInfo {
		return slog.LevelInfo
	}
	return lvl
}

func logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return slog.Default()
	}
	return DefaultLoggingService.Logger
}

func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

// With returns a child logger carrying args, e.g. a run id
func With(args ...any) *slog.Logger {
	return logger().With(args...)
}

// multiHandler fans a record out to every handler that accepts its level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
