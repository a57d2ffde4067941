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

// SignupController maneja POST /api/signup y POST /api/account-activation.
type SignupController struct {
	service svc.SignupService
}

// NewSignupController crea el controller de signup.
func NewSignupController(service svc.SignupService) *SignupController {
	return &SignupController{service: service}
}

// Signup deja el registro pendiente y envía el link de activación.
func (c *SignupController) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SignupController.Signup"))

	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req dto.SignupRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.handleSignupError(w, err)
		return
	}

	sentTo, err := c.service.RequestSignup(ctx, svc.SignupInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		log.Debug("signup rejected", logger.Err(err))
		c.handleSignupError(w, err)
		return
	}

	helpers.WriteMessage(w, http.StatusOK, fmt.Sprintf(msgSignupSent, sentTo))
}

// Activate crea el usuario a partir del token de activación.
func (c *SignupController) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SignupController.Activate"))

	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req dto.ActivationRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	u, err := c.service.ActivateAccount(ctx, req.Token)
	if err != nil {
		log.Debug("activation rejected", logger.Err(err))
		c.handleActivationError(w, err)
		return
	}

	log.Info("account activated", logger.UserID(u.ID))
	helpers.WriteMessage(w, http.StatusOK, msgActivationOK)
}

func (c *SignupController) handleSignupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrEmailTaken):
		httperrors.WriteError(w, badRequest("EMAIL_TAKEN", msgEmailTaken))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}

// Los fallos de activación son 401.
func (c *SignupController) handleActivationError(w http.ResponseWriter, err error) {
	unauthorized := func(code, msg string) *httperrors.AppError {
		return httperrors.New(http.StatusUnauthorized, code, msg).WithCause(err)
	}
	switch {
	case errors.Is(err, svc.ErrMissingToken):
		httperrors.WriteError(w, unauthorized("TOKEN_MISSING", msgActivationMissing))
	case errors.Is(err, svc.ErrLinkExpiredOrInvalid):
		httperrors.WriteError(w, unauthorized("LINK_EXPIRED", msgActivationExpired))
	case errors.Is(err, svc.ErrDirectoryWrite):
		httperrors.WriteError(w, unauthorized("ACTIVATION_FAILED", msgActivationSaveError))
	default:
		httperrors.WriteError(w, unauthorized("ACTIVATION_FAILED", msgActivationMissing))
	}
}
