package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/grovetools/editorbridge/config"
	"github.com/sirupsen/logrus"
)

// resetLoggers clears the logger cache and restores the default configuration.
func resetLoggers(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		loggersMu.Lock()
		loggers = make(map[string]*logrus.Entry)
		for path, sink := range fileSinks {
			sink.Close()
			delete(fileSinks, path)
		}
		loggersMu.Unlock()
		ApplyConfig(Config{})
	})
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("test-component")
	if logger == nil {
		t.Fatal("Expected logger to be created")
	}

	if logger.Data["component"] != "test-component" {
		t.Errorf("Expected component to be 'test-component', got %v", logger.Data["component"])
	}

	if again := NewLogger("test-component"); again != logger {
		t.Error("Expected the same entry for the same component")
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&TextFormatter{Config: FormatConfig{}, Plain: true})

	entry := logger.WithField("component", "test")
	entry.Info("Test message")

	output := buf.String()
	for _, want := range []string{"[INFO]", "[test]", "Test message"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected output to contain %q, got: %s", want, output)
		}
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name    string
		config  FormatConfig
		entry   *logrus.Entry
		want    []string
		notWant []string
	}{
		{
			name:   "default format",
			config: FormatConfig{},
			entry: &logrus.Entry{
				Level:   logrus.InfoLevel,
				Message: "test message",
				Data: logrus.Fields{
					"component": "editor",
					"key1":      "value1",
				},
			},
			want: []string{"[INFO]", "[editor]", "test message", "key1=value1"},
		},
		{
			name: "simple format",
			config: FormatConfig{
				DisableTimestamp: true,
				DisableComponent: true,
			},
			entry: &logrus.Entry{
				Level:   logrus.WarnLevel,
				Message: "warning message",
				Data: logrus.Fields{
					"component": "editor",
				},
			},
			want:    []string{"[WARN]", "warning message"},
			notWant: []string{"[editor]"},
		},
		{
			name:   "caller information with function name",
			config: FormatConfig{},
			entry: func() *logrus.Entry {
				logger := logrus.New()
				logger.SetReportCaller(true)
				return &logrus.Entry{
					Logger:  logger,
					Level:   logrus.InfoLevel,
					Message: "test message with caller",
					Data: logrus.Fields{
						"component": "editor",
					},
					Caller: &runtime.Frame{
						File:     "/path/to/session.go",
						Line:     42,
						Function: "github.com/grovetools/editorbridge/editor.(*Session).execute",
					},
				}
			}(),
			want: []string{"[INFO]", "[editor]", "test message with caller", "[session.go:42 editor.(*Session).execute]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &TextFormatter{Config: tt.config, Plain: true}
			tt.entry.Time = tt.entry.Time.UTC()

			output, err := formatter.Format(tt.entry)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			outputStr := string(output)
			for _, want := range tt.want {
				if !strings.Contains(outputStr, want) {
					t.Errorf("Expected output to contain '%s', got: %s", want, outputStr)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(outputStr, notWant) {
					t.Errorf("Expected output NOT to contain '%s', got: %s", notWant, outputStr)
				}
			}
		})
	}
}

func TestTextFormatter_FieldOrder(t *testing.T) {
	formatter := &TextFormatter{Config: FormatConfig{DisableTimestamp: true}, Plain: true}
	entry := &logrus.Entry{
		Level:   logrus.DebugLevel,
		Message: "Command sent",
		Data:    logrus.Fields{"script": "toggleBold();", "command": "toggle_bold", "component": "editor"},
	}

	output, err := formatter.Format(entry)
	if err != nil {
		t.Fatal(err)
	}
	want := "[DEBUG] [editor] Command sent command=toggle_bold script=toggleBold();\n"
	if string(output) != want {
		t.Errorf("got %q, want %q", output, want)
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetLevel(logrus.WarnLevel)

	entry := logger.WithField("component", "test")
	entry.Debug("debug message")
	entry.Info("info message")
	entry.Warn("warn message")
	entry.Error("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should not appear at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should not appear at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should appear at Warn level")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should appear at Warn level")
	}
}

func TestEnvironmentVariables(t *testing.T) {
	resetLoggers(t)
	t.Setenv("EDITORBRIDGE_LOG_LEVEL", "debug")
	t.Setenv("EDITORBRIDGE_LOG_CALLER", "true")

	logger := NewLogger("env-test")
	if logger.Logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level from env, got %v", logger.Logger.GetLevel())
	}
	if !logger.Logger.ReportCaller {
		t.Error("Expected caller reporting from env")
	}

	if err := SetLevel("error"); err != nil {
		t.Fatal(err)
	}
	if logger.Logger.GetLevel() != logrus.DebugLevel {
		t.Error("Expected env level to win over SetLevel")
	}
}

func TestSetLevel(t *testing.T) {
	resetLoggers(t)
	t.Setenv("EDITORBRIDGE_LOG_LEVEL", "")

	logger := NewLogger("level-test")
	if err := SetLevel("warn"); err != nil {
		t.Fatal(err)
	}
	if logger.Logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected warn, got %v", logger.Logger.GetLevel())
	}

	later := NewLogger("level-test-later")
	if later.Logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("Expected loggers created after SetLevel to use it, got %v", later.Logger.GetLevel())
	}

	if err := SetLevel("loud"); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestFileSink(t *testing.T) {
	resetLoggers(t)
	t.Setenv("EDITORBRIDGE_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "logs", "editorbridge.log")
	ApplyConfig(Config{
		Level: "info",
		File:  FileSinkConfig{Enabled: true, Path: path, Format: "json", MaxSizeMB: 1},
		Format: FormatConfig{
			StructuredToStderr: "never",
		},
	})

	logger := NewLogger("file-test")
	logger.WithField("command", "toggle_bold").Info("Command sent")
	logger.Debug("filtered out")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one line, got %d: %s", len(lines), data)
	}

	var record map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("Expected JSON line: %v", err)
	}
	if record["component"] != "file-test" || record["command"] != "toggle_bold" || record["msg"] != "Command sent" {
		t.Errorf("Unexpected record: %v", record)
	}
}

func TestConfigure(t *testing.T) {
	resetLoggers(t)
	t.Setenv("EDITORBRIDGE_LOG_LEVEL", "")

	logger := NewLogger("configure-test")

	cfg, err := config.LoadFromBytes([]byte("logging:\n  level: error\n  report_caller: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	Configure(cfg)

	if logger.Logger.GetLevel() != logrus.ErrorLevel {
		t.Errorf("Expected error level, got %v", logger.Logger.GetLevel())
	}
	if !logger.Logger.ReportCaller {
		t.Error("Expected caller reporting")
	}
}

func TestShouldLogToStderr(t *testing.T) {
	if !shouldLogToStderr("always", logrus.InfoLevel) {
		t.Error("always must log")
	}
	if shouldLogToStderr("never", logrus.DebugLevel) {
		t.Error("never must not log")
	}
	if !shouldLogToStderr("auto", logrus.DebugLevel) {
		t.Error("auto must log at debug level")
	}
}
