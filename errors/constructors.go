package errors

import (
	"fmt"
	"time"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *BridgeError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *BridgeError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// TransportClosed creates an error for work submitted to a closed transport
func TransportClosed(transport string) *BridgeError {
	return New(ErrCodeTransportClosed, fmt.Sprintf("%s transport is closed", transport)).
		WithDetail("transport", transport)
}

// TransportUnavailable creates an error for a transport with no live editor surface
func TransportUnavailable(transport, reason string) *BridgeError {
	return New(ErrCodeTransportUnavailable, fmt.Sprintf("%s transport unavailable: %s", transport, reason)).
		WithDetail("transport", transport)
}

// ScriptFailed creates an error for a script the editor surface rejected
func ScriptFailed(script string, err error) *BridgeError {
	return Wrap(err, ErrCodeScriptFailed, "editor surface rejected script").
		WithDetail("script", script)
}

// NoResult creates an error for a read-path accessor that produced no value
func NoResult(accessor string, err error) *BridgeError {
	return Wrap(err, ErrCodeNoResult, fmt.Sprintf("%s returned no result", accessor)).
		WithDetail("accessor", accessor)
}

// EvaluateTimeout creates an error for a read-path accessor that outlived its timeout
func EvaluateTimeout(accessor string, timeout time.Duration, err error) *BridgeError {
	return Wrap(err, ErrCodeEvaluateTimeout,
		fmt.Sprintf("%s did not answer within %s", accessor, timeout)).
		WithDetail("accessor", accessor).
		WithDetail("timeout", timeout.String())
}

// MalformedEvent creates an error for an inbound event whose arguments cannot be read
func MalformedEvent(event, reason string) *BridgeError {
	return New(ErrCodeMalformedEvent, fmt.Sprintf("malformed %s event: %s", event, reason)).
		WithDetail("event", event)
}

// UnknownEvent creates an error for an inbound event name with no entry point
func UnknownEvent(event string) *BridgeError {
	return New(ErrCodeUnknownEvent, fmt.Sprintf("unknown editor event %q", event)).
		WithDetail("event", event)
}

// SessionClosed creates an error for commands issued after the session was torn down
func SessionClosed() *BridgeError {
	return New(ErrCodeSessionClosed, "editor session is closed")
}
