package envresolve

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	// ErrEnvironment is the base error for environment lookups.
	ErrEnvironment = apperrors.New("environment error").SetExitCode(2)

	// ErrHomeNotFound is returned when HOME is not bound.
	ErrHomeNotFound = ErrEnvironment.New("home not found")

	// ErrEnvFile is returned when an env file cannot be read or parsed.
	ErrEnvFile = ErrEnvironment.New("unable to load env file")
)
