package script

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

var (
	// ErrMissingGlobal means the runtime's bootstrap globals were removed or
	// never installed. It is a programming error, not a script error.
	ErrMissingGlobal = errors.New("missing bootstrap global")

	// ErrUnknownCallback is returned for identities that are not registered in
	// the current interpreter lifetime.
	ErrUnknownCallback = errors.New("unknown callback")

	// ErrClosed is returned when operating on a closed runtime.
	ErrClosed = errors.New("script runtime is closed")
)

// Error is a script failure normalized to a single readable message.
type Error struct {
	Name    string // chunk name, usually the script path
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorMessage flattens an interpreter error into one string. Errors that carry
// an inner cause are unwrapped recursively and followed by their traceback.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var scriptErr *Error
	if errors.As(err, &scriptErr) {
		return scriptErr.Message
	}

	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	var msg string
	switch {
	case apiErr.Cause != nil:
		msg = ErrorMessage(apiErr.Cause)
	case apiErr.Object != nil:
		msg = apiErr.Object.String()
	default:
		msg = "unknown lua error"
	}
	if apiErr.StackTrace != "" {
		msg = fmt.Sprintf("%s \n%s", msg, apiErr.StackTrace)
	}
	return msg
}
