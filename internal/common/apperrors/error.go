// Package apperrors provides the error kinds used across the expander. Every fatal
// condition is declared once as a package-level Error derived from a per-package base,
// so callers can match the phase that failed with errors.Is and map it to a process
// exit code without parsing messages.
package apperrors

// Error is an error that belongs to a tree of error kinds. All methods return Error so
// kinds can be derived and decorated in a single expression.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // derives a new kind with the current one as parent
	Msg(msg string) Error                  // same kind, new message
	MsgErr(msg string, err ...error) Error // same kind, new message, with causes attached
	Err(err ...error) Error                // same kind and message, with causes attached
	SetExpandError(bool) Error             // controls whether ErrorAll lists the causes
	SetExitCode(int) Error                 // sets the process exit code for this kind
	ExitCode() int                         // process exit code, 1 when unset
	ErrorAll() string                      // message including causes when expansion is on
	UnwrapAll() []error                    // causes in the order they were attached
}
