package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Transport kinds.
const (
	TransportWebSocket = "websocket"
	TransportNvim      = "nvim"
	TransportLua       = "lua"
)

// Defaults applied by SetDefaults.
const (
	DefaultDialect         = "quill"
	DefaultTransport       = TransportLua
	DefaultEvaluateTimeout = 5 * time.Second
	DefaultReadyTimeout    = 10 * time.Second
	DefaultListen          = "127.0.0.1:7878"
	DefaultSocketPath      = "/editor"
	DefaultMetricsPath     = "/metrics"
)

// Config is the editorbridge.yml document.
type Config struct {
	Version   string          `yaml:"version,omitempty" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Surface   SurfaceConfig   `yaml:"surface,omitempty" jsonschema:"description=The editor surface the session drives"`
	Session   SessionConfig   `yaml:"session,omitempty" jsonschema:"description=Session timing"`
	Transport TransportConfig `yaml:"transport,omitempty" jsonschema:"description=How scripts reach the surface and events come back"`

	// Extensions captures all other top-level keys, such as logging.
	Extensions map[string]interface{} `yaml:",inline" jsonschema:"-"`
}

// SurfaceConfig describes the editor surface.
type SurfaceConfig struct {
	// Locator points at the surface asset: an HTML page served to browser
	// surfaces, or a Lua script replacing the built-in Lua surface.
	Locator string `yaml:"locator,omitempty" jsonschema:"description=Path of the surface asset (HTML page or Lua surface script)"`
	Dialect string `yaml:"dialect,omitempty" jsonschema:"description=Script dialect spoken by the surface,enum=quill,enum=js,enum=javascript,enum=lua"`
}

// SessionConfig controls session timing.
type SessionConfig struct {
	EvaluateTimeout *Duration `yaml:"evaluate_timeout,omitempty" jsonschema:"description=Bound on read-path round trips; 0 disables the bound"`
	ReadyTimeout    *Duration `yaml:"ready_timeout,omitempty" jsonschema:"description=How long to wait for the surface to load"`
}

// TransportConfig selects and configures the transport.
type TransportConfig struct {
	Kind      string          `yaml:"kind,omitempty" jsonschema:"description=Transport to the surface,enum=websocket,enum=nvim,enum=lua"`
	WebSocket WebSocketConfig `yaml:"websocket,omitempty"`
	Nvim      NvimConfig      `yaml:"nvim,omitempty"`
}

// WebSocketConfig configures the browser surface endpoint.
type WebSocketConfig struct {
	Listen      string `yaml:"listen,omitempty" jsonschema:"description=host:port to listen on"`
	Path        string `yaml:"path,omitempty" jsonschema:"description=HTTP path of the surface socket,pattern=^/"`
	MetricsPath string `yaml:"metrics_path,omitempty" jsonschema:"description=HTTP path of the Prometheus endpoint,pattern=^/"`
}

// NvimConfig configures the Neovim surface.
type NvimConfig struct {
	Address string   `yaml:"address,omitempty" jsonschema:"description=Address of a running Neovim (socket path or host:port); empty embeds a child process"`
	Args    []string `yaml:"args,omitempty" jsonschema:"description=Extra arguments for the embedded Neovim"`
}

// Duration is a time.Duration written as a Go duration string ("750ms",
// "5s"). A bare integer is read as seconds.
type Duration time.Duration

// NewDuration returns d as a *Duration.
func NewDuration(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// Std returns the value as a time.Duration. A nil Duration is zero.
func (d *Duration) Std() time.Duration {
	if d == nil {
		return 0
	}
	return time.Duration(*d)
}

func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts duration strings and integer seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		secs, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// JSONSchema describes the accepted duration spellings.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{
			{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`},
			{Type: "integer"},
		},
	}
}

// SetDefaults fills unset fields. Without an explicit kind, a JavaScript
// dialect selects the websocket transport and anything else the in-process
// Lua surface; without an explicit dialect, the transport decides.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Transport.Kind == "" {
		c.Transport.Kind = DefaultTransport
		if c.Surface.Dialect != "" && !IsLuaDialect(c.Surface.Dialect) {
			c.Transport.Kind = TransportWebSocket
		}
	}
	if c.Surface.Dialect == "" {
		c.Surface.Dialect = "lua"
		if c.Transport.Kind == TransportWebSocket {
			c.Surface.Dialect = DefaultDialect
		}
	}
	if c.Session.EvaluateTimeout == nil {
		c.Session.EvaluateTimeout = NewDuration(DefaultEvaluateTimeout)
	}
	if c.Session.ReadyTimeout == nil {
		c.Session.ReadyTimeout = NewDuration(DefaultReadyTimeout)
	}
	if c.Transport.WebSocket.Listen == "" {
		c.Transport.WebSocket.Listen = DefaultListen
	}
	if c.Transport.WebSocket.Path == "" {
		c.Transport.WebSocket.Path = DefaultSocketPath
	}
	if c.Transport.WebSocket.MetricsPath == "" {
		c.Transport.WebSocket.MetricsPath = DefaultMetricsPath
	}
}

// IsLuaDialect reports whether name selects the Lua script dialect.
func IsLuaDialect(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), "lua")
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// UnmarshalExtension decodes a top-level extension section, such as
// "logging", into target, which must be a pointer. A missing section leaves
// target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}
	return nil
}
