package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/grovetools/editorbridge/errors"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its error code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	var bridgeErr *errors.BridgeError
	stderrors.As(err, &bridgeErr)
	detail := func(key string) interface{} {
		if bridgeErr == nil {
			return ""
		}
		return bridgeErr.Details[key]
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "❌ Configuration not found at %v.\n", detail("path"))
		fmt.Fprintf(h.Out, "Run 'editorbridge config schema' to see the accepted keys.\n")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "❌ %v\n", err)
		fmt.Fprintf(h.Out, "Check the file with 'editorbridge config validate'.\n")

	case errors.ErrCodeTransportUnavailable:
		fmt.Fprintf(h.Out, "❌ No editor surface is attached to the %v transport.\n", detail("transport"))
		fmt.Fprintf(h.Out, "Open the surface page or check the transport settings.\n")

	case errors.ErrCodeTransportClosed, errors.ErrCodeSessionClosed:
		fmt.Fprintf(h.Out, "❌ The editor session has ended.\n")

	case errors.ErrCodeEvaluateTimeout:
		fmt.Fprintf(h.Out, "❌ %v did not answer within %v\n", detail("accessor"), detail("timeout"))
		fmt.Fprintf(h.Out, "Raise session.evaluate_timeout if the surface is slow.\n")

	case errors.ErrCodeNoResult:
		fmt.Fprintf(h.Out, "❌ %v returned no result.\n", detail("accessor"))

	case errors.ErrCodeScriptFailed:
		fmt.Fprintf(h.Out, "❌ The editor surface rejected the script: %v\n", stderrors.Unwrap(err))

	default:
		fmt.Fprintf(h.Out, "❌ Error: %v\n", err)
	}

	if h.Verbose && bridgeErr != nil {
		fmt.Fprintf(h.Out, "\nError details:\n%s\n", bridgeErr.ToJSON())
	}
	return err
}
