package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/grovetools/editorbridge/config"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	// activeConfig is the logging section every logger is built from. It is
	// loaded from editorbridge.yml on first use and replaced by Configure.
	activeConfig   *Config
	fileSinks      = make(map[string]*lumberjack.Logger)
	loadConfigOnce sync.Once
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	loadConfigOnce.Do(func() {
		if activeConfig == nil {
			activeConfig = loadConfig()
		}
	})

	logger := logrus.New()
	configure(logger, *activeConfig)

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}

// Configure replaces the logging configuration and applies it to every
// logger created so far.
func Configure(cfg *config.Config) {
	logCfg := Config{}
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}
	ApplyConfig(logCfg)
}

// ApplyConfig applies a logging section to every existing and future logger.
func ApplyConfig(logCfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	loadConfigOnce.Do(func() {})
	activeConfig = &logCfg
	for _, entry := range loggers {
		configure(entry.Logger, logCfg)
	}
}

// SetLevel changes the level of every existing and future logger unless
// EDITORBRIDGE_LOG_LEVEL pins it.
func SetLevel(levelStr string) error {
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		return err
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if activeConfig != nil {
		activeConfig.Level = level.String()
	}
	if os.Getenv("EDITORBRIDGE_LOG_LEVEL") != "" {
		return nil
	}
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
	}
	return nil
}

func loadConfig() *Config {
	var logCfg Config
	cfg, err := config.LoadDefault()
	if err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}
	return &logCfg
}

// configure applies logCfg to logger. Callers hold loggersMu.
func configure(logger *logrus.Logger, logCfg Config) {
	levelStr := "info"
	if env := os.Getenv("EDITORBRIDGE_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("EDITORBRIDGE_LOG_CALLER") == "true" || logCfg.ReportCaller)

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	logger.ReplaceHooks(make(logrus.LevelHooks))
	if logCfg.File.Enabled && logCfg.File.Path != "" {
		if sink := fileSink(logCfg.File); sink != nil {
			var formatter logrus.Formatter = &TextFormatter{Config: logCfg.Format, Plain: true}
			if logCfg.File.Format == "json" {
				formatter = &logrus.JSONFormatter{}
			}
			logger.AddHook(&writerHook{writer: sink, formatter: formatter})
		}
	}

	if shouldLogToStderr(logCfg.Format.StructuredToStderr, logger.GetLevel()) {
		logger.SetOutput(GetGlobalOutput())
	} else {
		logger.SetOutput(io.Discard)
	}
}

// shouldLogToStderr decides whether structured logs reach the terminal.
// In "auto" mode they do when debugging or when stderr is not interactive.
func shouldLogToStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	isDebug := os.Getenv("EDITORBRIDGE_DEBUG") == "1" || level >= logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	return isDebug || !isInteractive
}

// fileSink returns the shared rotating writer for a log file. Callers hold loggersMu.
func fileSink(cfg FileSinkConfig) *lumberjack.Logger {
	path := expandPath(cfg.Path)
	if sink, ok := fileSinks[path]; ok {
		return sink
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logrus.Warnf("Failed to create log directory %s: %v", filepath.Dir(path), err)
		return nil
	}
	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	fileSinks[path] = sink
	return sink
}

// writerHook writes every entry to its own writer with its own formatter.
type writerHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *writerHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
