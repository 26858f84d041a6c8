package audio

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	// ErrAudioSetup is the base error for audio driver setup.
	ErrAudioSetup = apperrors.New("audio setup error").SetExitCode(3)

	// ErrUnknownDriver is returned when no driver is registered under the requested name.
	ErrUnknownDriver = ErrAudioSetup.New("unknown audio driver")

	// ErrDriverOpen is returned when the audio client cannot be opened.
	ErrDriverOpen = ErrAudioSetup.New("unable to open audio client")

	// ErrPortRegister is returned when a port cannot be registered.
	ErrPortRegister = ErrAudioSetup.New("unable to register port")

	// ErrCallbackRegister is returned when the process callback cannot be registered.
	ErrCallbackRegister = ErrAudioSetup.New("unable to register process callback")

	// ErrActivate is returned when the client cannot be activated.
	ErrActivate = ErrAudioSetup.New("unable to activate audio client")

	// ErrDeactivate is returned when the client cannot be deactivated.
	ErrDeactivate = ErrAudioSetup.New("unable to deactivate audio client")

	// ErrClose is returned when the audio client cannot be closed.
	ErrClose = ErrAudioSetup.New("unable to close audio client")
)
