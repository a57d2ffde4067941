package auth

import (
	"errors"
	"net/http"

	dto "github.com/dropDatabas3/authgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// SigninController maneja POST /api/signin.
type SigninController struct {
	service svc.SigninService
}

// NewSigninController crea el controller de signin.
func NewSigninController(service svc.SigninService) *SigninController {
	return &SigninController{service: service}
}

// Signin autentica y devuelve {token, user}.
func (c *SigninController) Signin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SigninController.Signin"))

	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req dto.SigninRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.handleError(w, err)
		return
	}

	res, err := c.service.Signin(ctx, req.Email, req.Password)
	if err != nil {
		log.Debug("signin failed", logger.Err(err))
		c.handleError(w, err)
		return
	}

	log.Info("signin ok", logger.UserID(res.User.ID))
	helpers.WriteJSON(w, http.StatusOK, dto.AuthResponse{Token: res.Token, User: dto.NewUserResponse(res.User)})
}

func (c *SigninController) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, badRequest("USER_NOT_FOUND", msgSigninUnknownUser))
	case errors.Is(err, svc.ErrCredentialMismatch):
		httperrors.WriteError(w, badRequest("INVALID_CREDENTIALS", msgSigninMismatch))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}
