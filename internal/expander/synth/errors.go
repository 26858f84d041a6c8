package synth

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	ErrSynth         apperrors.Error = apperrors.New("synthesis engine error").SetExitCode(5)
	ErrUnknownEngine apperrors.Error = ErrSynth.New("unknown engine")
	ErrEngineCreate  apperrors.Error = ErrSynth.New("failed to create engine")
	ErrLoad          apperrors.Error = ErrSynth.New("failed to load sound bank")
)
