package nsm

import "github.com/TomatoPi/5FX-Expander/internal/common/apperrors"

var (
	ErrSession          apperrors.Error = apperrors.New("session protocol error").SetExitCode(6)
	ErrBadURL           apperrors.Error = ErrSession.New("invalid session manager url")
	ErrEndpointOpen     apperrors.Error = ErrSession.New("failed to open session endpoint").SetExitCode(3)
	ErrSend             apperrors.Error = ErrSession.New("failed to send session message")
	ErrEndpointClosed   apperrors.Error = ErrSend.New("session endpoint closed")
	ErrBadArguments     apperrors.Error = ErrSession.New("malformed session message")
	ErrBadState         apperrors.Error = ErrSession.New("invalid controller state")
	ErrOpenTimeout      apperrors.Error = ErrSession.New("timed out waiting for open")
	ErrAnnounceRejected apperrors.Error = ErrSession.New("session manager rejected announce")
)
