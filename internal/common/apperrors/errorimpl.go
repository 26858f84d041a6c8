package apperrors

import (
	"errors"
	"strings"
)

// defaultExitCode is reported by kinds that never set their own code.
const defaultExitCode = 1

type appError struct {
	msg         string
	parent      error
	causes      []error
	exitCode    int
	expandError bool
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by every attached cause when expansion is
// enabled, otherwise the bare message.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.causes {
		if err == nil {
			continue
		}
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.parent
}

func (e *appError) UnwrapAll() []error {
	return e.causes
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		causes:      append([]error(nil), e.causes...),
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:         msg,
		parent:      e,
		causes:      append(append([]error(nil), e.causes...), errs...),
		exitCode:    e.exitCode,
		expandError: e.expandError,
	}
}

func (e *appError) Err(errs ...error) Error {
	return e.MsgErr(e.msg, errs...)
}

// SetExpandError returns a copy with the expansion flag changed.
func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

// SetExitCode returns a copy with the exit code changed.
func (e *appError) SetExitCode(code int) Error {
	cp := *e
	cp.exitCode = code
	return &cp
}

func (e *appError) ExitCode() int {
	if e.exitCode == 0 {
		return defaultExitCode
	}
	return e.exitCode
}

// Is matches the target against the parent chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.parent, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root error kind.
func New(msg string) Error {
	return &appError{msg: msg, expandError: true}
}

// ExitCode returns the exit code carried by err, 1 for plain errors and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr.ExitCode()
	}
	return defaultExitCode
}

// Describe returns the expanded message of an Error, or err.Error() for plain errors.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var appErr Error
	if errors.As(err, &appErr) {
		return appErr.ErrorAll()
	}
	return err.Error()
}
