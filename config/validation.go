package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/grovetools/editorbridge/errors"
)

var knownDialects = map[string]bool{
	"quill":      true,
	"js":         true,
	"javascript": true,
	"lua":        true,
}

// Validate checks cross-field rules the schema cannot express. It expects
// defaults to have been applied.
func (c *Config) Validate() error {
	dialect := strings.ToLower(strings.TrimSpace(c.Surface.Dialect))
	if !knownDialects[dialect] {
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown surface dialect %q", c.Surface.Dialect)).
			WithDetail("field", "surface.dialect")
	}

	switch c.Transport.Kind {
	case TransportWebSocket:
		if err := validateWebSocket(&c.Transport.WebSocket); err != nil {
			return err
		}
	case TransportNvim, TransportLua:
		if !IsLuaDialect(dialect) {
			return errors.New(errors.ErrCodeConfigValidation,
				fmt.Sprintf("transport %q runs a Lua surface and requires surface.dialect: lua", c.Transport.Kind)).
				WithDetail("field", "surface.dialect")
		}
	default:
		return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("unknown transport kind %q", c.Transport.Kind)).
			WithDetail("field", "transport.kind")
	}

	if c.Session.EvaluateTimeout.Std() < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "session.evaluate_timeout cannot be negative").
			WithDetail("field", "session.evaluate_timeout")
	}
	if c.Session.ReadyTimeout.Std() < 0 {
		return errors.New(errors.ErrCodeConfigValidation, "session.ready_timeout cannot be negative").
			WithDetail("field", "session.ready_timeout")
	}
	return nil
}

func validateWebSocket(ws *WebSocketConfig) error {
	if _, _, err := net.SplitHostPort(ws.Listen); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid transport.websocket.listen %q", ws.Listen)).
			WithDetail("field", "transport.websocket.listen")
	}
	if !strings.HasPrefix(ws.Path, "/") {
		return errors.New(errors.ErrCodeConfigValidation, "transport.websocket.path must start with '/'").
			WithDetail("field", "transport.websocket.path")
	}
	if ws.MetricsPath == ws.Path {
		return errors.New(errors.ErrCodeConfigValidation, "transport.websocket.metrics_path must differ from the socket path").
			WithDetail("field", "transport.websocket.metrics_path")
	}
	return nil
}
