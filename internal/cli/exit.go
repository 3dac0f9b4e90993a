package cli

import (
	"errors"
	"fmt"

	"catalog-importer/internal/importer"
)

// Exit codes of the importer binary.
const (
	ExitOK     = 0 // run completed without recovered errors
	ExitErrors = 1 // completed with errors, or interrupted
	ExitFatal  = 2 // run aborted, or the command could not start
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from err. Plain errors are fatal.
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFatal
}

// runResult maps the outcome of an import to the error returned by the run
// command.
func runResult(stats importer.Stats, err error) error {
	if err != nil {
		return WrapExitError(ExitFatal, "import failed", err)
	}
	if stats.Interrupted || stats.Errors() > 0 {
		return NewExitError(ExitErrors, "import "+stats.Status())
	}
	return nil
}
