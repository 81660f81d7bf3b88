package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/editorbridge/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ConfigNames are the file names searched for, in precedence order.
var ConfigNames = []string{
	"editorbridge.yml",
	"editorbridge.yaml",
	".editorbridge.yml",
	".editorbridge.yaml",
}

var overrideNames = []string{
	"editorbridge.override.yml",
	"editorbridge.override.yaml",
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads, validates and defaults the configuration file at path, then
// applies any override file next to it.
func Load(path string) (*Config, error) {
	return LoadWithLogger(path, quietLogger())
}

// LoadWithLogger is Load with loader diagnostics sent to logger.
func LoadWithLogger(path string, logger *logrus.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	logger.WithField("path", path).Debug("Loading configuration")
	cfg, err := parse(data)
	if err != nil {
		return nil, wrapPath(err, path)
	}

	dir := filepath.Dir(path)
	for _, name := range overrideNames {
		overridePath := filepath.Join(dir, name)
		overrideData, err := os.ReadFile(overridePath)
		if err != nil {
			continue
		}
		logger.WithField("path", overridePath).Debug("Loading local override configuration")
		if err := decodeInto(cfg, overrideData); err != nil {
			return nil, wrapPath(err, overridePath)
		}
	}

	return finish(cfg)
}

// LoadDefault finds and loads the configuration starting at the working directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom finds and loads the configuration starting at startDir.
func LoadFrom(startDir string) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// LoadFromBytes parses, validates and defaults a configuration document.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

// parse validates data against the schema and decodes it.
func parse(data []byte) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	validator, err := defaultValidator()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create validator")
	}
	if err := validator.ValidateYAML(expanded); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
	}
	return cfg, nil
}

// decodeInto layers an override document over cfg; keys it omits keep
// their current values.
func decodeInto(cfg *Config, data []byte) error {
	expanded := []byte(expandEnvVars(string(data)))

	validator, err := defaultValidator()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create validator")
	}
	if err := validator.ValidateYAML(expanded); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "schema validation failed")
	}

	var override Config
	if err := yaml.Unmarshal(expanded, &override); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse override configuration")
	}
	merge(cfg, &override)
	return nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func wrapPath(err error, path string) error {
	if be, ok := err.(*errors.BridgeError); ok {
		return be.WithDetail("path", path)
	}
	return err
}

// merge copies every field set in override onto base.
func merge(base, override *Config) {
	if override.Version != "" {
		base.Version = override.Version
	}
	if override.Surface.Locator != "" {
		base.Surface.Locator = override.Surface.Locator
	}
	if override.Surface.Dialect != "" {
		base.Surface.Dialect = override.Surface.Dialect
	}
	if override.Session.EvaluateTimeout != nil {
		base.Session.EvaluateTimeout = override.Session.EvaluateTimeout
	}
	if override.Session.ReadyTimeout != nil {
		base.Session.ReadyTimeout = override.Session.ReadyTimeout
	}
	if override.Transport.Kind != "" {
		base.Transport.Kind = override.Transport.Kind
	}
	if override.Transport.WebSocket.Listen != "" {
		base.Transport.WebSocket.Listen = override.Transport.WebSocket.Listen
	}
	if override.Transport.WebSocket.Path != "" {
		base.Transport.WebSocket.Path = override.Transport.WebSocket.Path
	}
	if override.Transport.WebSocket.MetricsPath != "" {
		base.Transport.WebSocket.MetricsPath = override.Transport.WebSocket.MetricsPath
	}
	if override.Transport.Nvim.Address != "" {
		base.Transport.Nvim.Address = override.Transport.Nvim.Address
	}
	if len(override.Transport.Nvim.Args) > 0 {
		base.Transport.Nvim.Args = override.Transport.Nvim.Args
	}
	for key, value := range override.Extensions {
		if base.Extensions == nil {
			base.Extensions = make(map[string]interface{})
		}
		base.Extensions[key] = value
	}
}

// FindConfigFile searches for a configuration file with the following precedence:
// 1. startDir up to the filesystem root
// 2. Git repository root (if in a git repo)
// 3. XDG config directory (~/.config/editorbridge/editorbridge.yml)
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		if path := firstExisting(dir); path != "" {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if gitRoot, err := getGitRoot(startDir); err == nil && gitRoot != "" {
		if path := firstExisting(gitRoot); path != "" {
			return path, nil
		}
	}

	if xdgConfigPath := getXDGConfigPath(); xdgConfigPath != "" {
		if info, err := os.Stat(xdgConfigPath); err == nil && !info.IsDir() {
			return xdgConfigPath, nil
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

func firstExisting(dir string) string {
	for _, name := range ConfigNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

func getGitRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func getXDGConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "editorbridge", "editorbridge.yml")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "editorbridge", "editorbridge.yml")
	}
	return ""
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}
