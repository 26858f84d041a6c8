package app

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	// ErrApp is the base error for the startup and shutdown sequence.
	ErrApp = apperrors.New("expander error")

	// ErrSoundBankLoad is returned when the engine cannot load the configured sound bank.
	ErrSoundBankLoad = ErrApp.New("unable to load sound bank").SetExitCode(5)

	// ErrInvalidOptions is returned by New for incomplete options.
	ErrInvalidOptions = ErrApp.New("invalid options")

	// ErrShutdown is returned when the audio driver fails to stop cleanly.
	ErrShutdown = ErrApp.New("shutdown failed")
)
