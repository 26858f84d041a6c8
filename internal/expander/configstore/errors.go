package configstore

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	// ErrPersistence is the base error for config persistence.
	ErrPersistence = apperrors.New("config persistence error").SetExitCode(4)

	// ErrFileOpen is returned when the config file cannot be opened for reading or writing.
	ErrFileOpen = ErrPersistence.New("unable to open config file")

	// ErrDirectoryCreation is returned when the instance directory cannot be created.
	ErrDirectoryCreation = ErrPersistence.New("unable to create config directory")

	// ErrFileRead is returned when an opened config file cannot be read.
	ErrFileRead = ErrPersistence.New("unable to read config file")

	// ErrFileWrite is returned when writing the config content fails.
	ErrFileWrite = ErrPersistence.New("unable to write config file")
)
