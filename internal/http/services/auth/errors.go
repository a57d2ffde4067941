package auth

import "errors"

// Errores de dominio. Los controllers los traducen a status/mensaje por endpoint.
var (
	ErrEmailTaken           = errors.New("email is taken")
	ErrLinkExpiredOrInvalid = errors.New("link expired or invalid")
	ErrMissingToken         = errors.New("missing token")
	ErrDirectoryWrite       = errors.New("directory write failed")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrNotificationFailed   = errors.New("notification failed")
	ErrUserNotFound         = errors.New("user not found")
	ErrCredentialMismatch   = errors.New("credential mismatch")
	ErrRecordNotFound       = errors.New("record not found")
	ErrFederationFailed     = errors.New("federation verification failed")
	ErrTokenIssueFailed     = errors.New("failed to issue token")
)

// NotificationError conserva el error del Sender: el cliente recibe su mensaje.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string { return e.Err.Error() }
func (e *NotificationError) Unwrap() error { return e.Err }

// Is hace que errors.Is(err, ErrNotificationFailed) funcione.
func (e *NotificationError) Is(target error) bool { return target == ErrNotificationFailed }
