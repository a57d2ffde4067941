package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/authgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	"github.com/dropDatabas3/authgate/internal/security/password"
)

// Mensajes expuestos al cliente. El frontend los muestra tal cual.
const (
	msgEmailTaken          = "Email is taken"
	msgSignupSent          = "Email has been sent to %s. Follow the instructions to activate your account."
	msgActivationMissing   = "Something went wrong. Try again."
	msgActivationExpired   = "Expired Link. Signup again"
	msgActivationSaveError = "Error saving user in database. Try Signup again"
	msgActivationOK        = "Signup success. Please signin"

	msgSigninUnknownUser = "User with that email does not exist. Please Signup"
	msgSigninMismatch    = "Email and password do not match"

	msgForgotUnknownUser = "User with that email does not exist"
	msgForgotSaveError   = "Database connection error on user password forgot request"
	msgForgotSent        = "Email has been sent to %s. Follow the instructions to reset your password."
	msgResetExpired      = "Expired Link. Try Again."
	msgResetNoRecord     = "Something went wrong. Try later"
	msgResetSaveError    = "Error resetting user password."
	msgResetOK           = "Great! Now you can login with your new password."

	msgGoogleFailed       = "Google login failed. Try again"
	msgGoogleSignupFailed = "User Signup failed with Google."
	msgFacebookFailed     = "Facebook login failed. Try later."
	msgFacebookSaveFailed = "User Signup failed with facebook."

	msgUserNotFound     = "User not found"
	msgUserUpdateFailed = "User update failed"
	msgUnavailable      = "Something went wrong. Try again."
)

func badRequest(code, msg string) *httperrors.AppError {
	return httperrors.New(http.StatusBadRequest, code, msg)
}

// inputError traduce errores de forma (dto) y de política de password a 400.
// ok=false si err no es de ninguno de esos tipos.
func inputError(err error) (*httperrors.AppError, bool) {
	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		return httperrors.ErrValidation.WithMessage(verr.Message).WithDetail(verr.Field), true
	}
	var perr *password.PolicyError
	if errors.As(err, &perr) {
		return httperrors.ErrValidation.WithMessage(perr.Message).WithDetail("password"), true
	}
	return nil, false
}

// commonError cubre los errores que todos los endpoints traducen igual.
func commonError(err error) *httperrors.AppError {
	if appErr, ok := inputError(err); ok {
		return appErr
	}
	var nerr *svc.NotificationError
	switch {
	case errors.As(err, &nerr):
		return badRequest("NOTIFICATION_FAILED", nerr.Error()).WithCause(err)
	case errors.Is(err, svc.ErrDirectoryUnavailable):
		return badRequest("DIRECTORY_UNAVAILABLE", msgUnavailable).WithCause(err)
	case errors.Is(err, svc.ErrTokenIssueFailed):
		return badRequest("TOKEN_ISSUE_FAILED", msgUnavailable).WithCause(err)
	default:
		return badRequest("BAD_REQUEST", msgUnavailable).WithCause(err)
	}
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
}
