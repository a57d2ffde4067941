package auth

import (
	"errors"
	"fmt"
	"net/http"

	dto "github.com/dropDatabas3/authgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// PasswordController maneja PUT /api/forgot-password y PUT /api/reset-password.
type PasswordController struct {
	service svc.PasswordService
}

// NewPasswordController crea el controller de password.
func NewPasswordController(service svc.PasswordService) *PasswordController {
	return &PasswordController{service: service}
}

// Forgot emite el link de reset y lo envía por email.
func (c *PasswordController) Forgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasswordController.Forgot"))

	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	var req dto.ForgotPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.handleForgotError(w, err)
		return
	}

	sentTo, err := c.service.RequestReset(ctx, req.Email)
	if err != nil {
		log.Debug("forgot password failed", logger.Err(err))
		c.handleForgotError(w, err)
		return
	}

	helpers.WriteMessage(w, http.StatusOK, fmt.Sprintf(msgForgotSent, sentTo))
}

// Reset aplica el nuevo password si el link sigue vigente.
func (c *PasswordController) Reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("PasswordController.Reset"))

	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	var req dto.ResetPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		c.handleResetError(w, err)
		return
	}

	if err := c.service.Reset(ctx, req.ResetPasswordLink, req.NewPassword); err != nil {
		log.Debug("password reset failed", logger.Err(err))
		c.handleResetError(w, err)
		return
	}

	helpers.WriteMessage(w, http.StatusOK, msgResetOK)
}

func (c *PasswordController) handleForgotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, badRequest("USER_NOT_FOUND", msgForgotUnknownUser))
	case errors.Is(err, svc.ErrDirectoryWrite):
		httperrors.WriteError(w, badRequest("DIRECTORY_WRITE_FAILED", msgForgotSaveError).WithCause(err))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}

func (c *PasswordController) handleResetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingToken), errors.Is(err, svc.ErrLinkExpiredOrInvalid):
		httperrors.WriteError(w, badRequest("LINK_EXPIRED", msgResetExpired))
	case errors.Is(err, svc.ErrRecordNotFound):
		httperrors.WriteError(w, badRequest("RESET_NOT_FOUND", msgResetNoRecord))
	case errors.Is(err, svc.ErrDirectoryWrite):
		httperrors.WriteError(w, badRequest("DIRECTORY_WRITE_FAILED", msgResetSaveError).WithCause(err))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}
