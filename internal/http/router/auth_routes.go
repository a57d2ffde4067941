package router

import (
	"github.com/go-chi/chi/v5"

	mw "github.com/dropDatabas3/authgate/internal/http/middlewares"
)

// registerAuthRoutes: endpoints públicos del ciclo de cuenta.
func registerAuthRoutes(r chi.Router, d Deps) {
	c := d.Auth

	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore())

		r.Post("/signup", c.Signup.Signup)
		r.Post("/account-activation", c.Signup.Activate)
		r.Post("/signin", c.Signin.Signin)

		r.Put("/forgot-password", c.Password.Forgot)
		r.Put("/reset-password", c.Password.Reset)

		r.Post("/google-login", c.Social.Google)
		r.Post("/facebook-login", c.Social.Facebook)
	})
}

// registerUserRoutes: requieren sesión; /admin además rol admin.
func registerUserRoutes(r chi.Router, d Deps) {
	c := d.Auth

	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.RequireSignin(d.Sessions))

		r.Get("/user/{id}", c.Profile.Read)
		r.Put("/user/update", c.Profile.Update)

		r.With(mw.RequireAdmin(d.Users)).Put("/admin/update", c.Profile.Update)
	})
}
