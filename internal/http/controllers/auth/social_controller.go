package auth

import (
	"errors"
	"net/http"

	"github.com/dropDatabas3/authgate/internal/federation"
	dto "github.com/dropDatabas3/authgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// SocialController maneja POST /api/google-login y POST /api/facebook-login.
type SocialController struct {
	service svc.FederatedService
}

// NewSocialController crea el controller de login federado.
func NewSocialController(service svc.FederatedService) *SocialController {
	return &SocialController{service: service}
}

type socialMessages struct {
	failed     string
	saveFailed string
}

var (
	googleMessages   = socialMessages{failed: msgGoogleFailed, saveFailed: msgGoogleSignupFailed}
	facebookMessages = socialMessages{failed: msgFacebookFailed, saveFailed: msgFacebookSaveFailed}
)

// Google valida el ID token de Google Sign-In.
func (c *SocialController) Google(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req dto.GoogleLoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleSocialError(w, err, googleMessages)
		return
	}

	c.login(w, r, federation.ProviderGoogle, federation.Assertion{IDToken: req.IDToken}, googleMessages)
}

// Facebook valida userID + accessToken contra la Graph API.
func (c *SocialController) Facebook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req dto.FacebookLoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		handleSocialError(w, err, facebookMessages)
		return
	}

	c.login(w, r, federation.ProviderFacebook, federation.Assertion{UserID: req.UserID, AccessToken: req.AccessToken}, facebookMessages)
}

func (c *SocialController) login(w http.ResponseWriter, r *http.Request, p federation.Provider, a federation.Assertion, msgs socialMessages) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("SocialController.Login"), logger.Provider(string(p)))

	res, err := c.service.Login(ctx, p, a)
	if err != nil {
		log.Debug("federated login failed", logger.Err(err))
		handleSocialError(w, err, msgs)
		return
	}

	log.Info("federated login ok", logger.UserID(res.User.ID))
	helpers.WriteJSON(w, http.StatusOK, dto.AuthResponse{Token: res.Token, User: dto.NewUserResponse(res.User)})
}

func handleSocialError(w http.ResponseWriter, err error, msgs socialMessages) {
	switch {
	case errors.Is(err, svc.ErrFederationFailed):
		httperrors.WriteError(w, badRequest("FEDERATION_FAILED", msgs.failed).WithCause(err))
	case errors.Is(err, svc.ErrDirectoryWrite):
		httperrors.WriteError(w, badRequest("DIRECTORY_WRITE_FAILED", msgs.saveFailed).WithCause(err))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}
