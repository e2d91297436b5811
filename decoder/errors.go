// Device-failure error type: carries the call site and a recoverable flag,
// the only recoverable case being queue overflow. Configuration and usage
// errors are plain errors / boolean returns (see config.go, traceback.go).

package decoder

import (
	"fmt"
	"runtime"
)

// DecoderError represents a fatal or recoverable internal failure. It
// carries the file/line of the call site plus a message and a Recoverable
// flag. Only overflow conditions are Recoverable; everything else should
// be treated as fatal by the caller.
type DecoderError struct {
	File        string
	Line        int
	Message     string
	Recoverable bool
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// newDecoderError captures the caller's site (skip=2: this function's
// caller's caller, so the reported site is where the condition was
// detected, not where newDecoderError itself was called from a shared
// helper).
func newDecoderError(recoverable bool, format string, args ...any) *DecoderError {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	return &DecoderError{
		File:        file,
		Line:        line,
		Message:     fmt.Sprintf(format, args...),
		Recoverable: recoverable,
	}
}

func overflowError(format string, args ...any) *DecoderError {
	return newDecoderError(true, format, args...)
}

func fatalError(format string, args ...any) *DecoderError {
	return newDecoderError(false, format, args...)
}
