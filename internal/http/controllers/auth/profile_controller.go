package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/authgate/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/authgate/internal/http/errors"
	"github.com/dropDatabas3/authgate/internal/http/helpers"
	mw "github.com/dropDatabas3/authgate/internal/http/middlewares"
	svc "github.com/dropDatabas3/authgate/internal/http/services/auth"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
)

// ProfileController maneja las rutas protegidas del usuario:
// GET /api/user/{id}, PUT /api/user/update y PUT /api/admin/update.
type ProfileController struct {
	service svc.ProfileService
}

// NewProfileController crea el controller de perfil.
func NewProfileController(service svc.ProfileService) *ProfileController {
	return &ProfileController{service: service}
}

// Read devuelve el perfil pedido. Sólo el propio usuario (o un admin) puede leerlo.
func (c *ProfileController) Read(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	id := chi.URLParam(r, "id")
	self := mw.GetUserID(ctx)
	if id == "" {
		id = self
	}
	if id != self {
		me, err := c.service.Get(ctx, self)
		if err != nil || !me.IsAdmin() {
			httperrors.WriteError(w, badRequest("USER_NOT_FOUND", msgUserNotFound))
			return
		}
	}

	u, err := c.service.Get(ctx, id)
	if err != nil {
		c.handleError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

// Update cambia nombre y, opcionalmente, password del usuario autenticado.
// Bajo /api/admin/update el middleware admin ya validó el rol.
func (c *ProfileController) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ProfileController.Update"))

	if r.Method != http.MethodPut {
		methodNotAllowed(w, "PUT")
		return
	}

	var req dto.UpdateProfileRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		c.handleError(w, err)
		return
	}

	u, err := c.service.Update(ctx, mw.GetUserID(ctx), svc.ProfileInput{Name: req.Name, Password: req.Password})
	if err != nil {
		log.Debug("profile update failed", logger.Err(err))
		c.handleError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.NewUserResponse(u))
}

func (c *ProfileController) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrUserNotFound):
		httperrors.WriteError(w, badRequest("USER_NOT_FOUND", msgUserNotFound))
	case errors.Is(err, svc.ErrDirectoryWrite):
		httperrors.WriteError(w, badRequest("USER_UPDATE_FAILED", msgUserUpdateFailed).WithCause(err))
	default:
		httperrors.WriteError(w, commonError(err))
	}
}
