package errors

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestBridgeError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeTransportClosed, "transport closed")
	if err.Code != ErrCodeTransportClosed {
		t.Errorf("expected code %s, got %s", ErrCodeTransportClosed, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeScriptFailed, "script failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeScriptFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeTransportClosed) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("transport", "websocket").WithDetail("attempt", 2)
	if detailed.Details["transport"] != "websocket" {
		t.Error("WithDetail should add details")
	}
}

func TestIsWalksChain(t *testing.T) {
	inner := TransportClosed("lua")
	outer := NoResult("getTitle", inner)

	if !Is(outer, ErrCodeTransportClosed) {
		t.Error("Is should find a code deeper in the chain")
	}
	if GetCode(outer) != ErrCodeNoResult {
		t.Errorf("GetCode should return the outermost code, got %s", GetCode(outer))
	}

	stdWrapped := fmt.Errorf("context: %w", outer)
	if GetCode(stdWrapped) != ErrCodeNoResult {
		t.Errorf("GetCode should unwrap fmt.Errorf, got %s", GetCode(stdWrapped))
	}
}

func TestErrorConstructors(t *testing.T) {
	err := UnknownEvent("onSomething")
	if err.Code != ErrCodeUnknownEvent {
		t.Errorf("expected code %s, got %s", ErrCodeUnknownEvent, err.Code)
	}
	if err.Details["event"] != "onSomething" {
		t.Error("UnknownEvent should include event detail")
	}

	timeout := EvaluateTimeout("getContent", 2*time.Second, context.DeadlineExceeded)
	if !IsNoResult(timeout) {
		t.Error("a timed out accessor should count as no result")
	}
	if timeout.Details["timeout"] != "2s" {
		t.Errorf("unexpected timeout detail %v", timeout.Details["timeout"])
	}

	if IsNoResult(SessionClosed()) {
		t.Error("a closed session is not a no-result error")
	}
}
