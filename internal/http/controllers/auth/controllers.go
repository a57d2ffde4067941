// Package auth contiene los controllers HTTP de autenticación: parsean el
// request, validan forma, delegan en services/auth y traducen errores al
// status/mensaje de cada endpoint.
package auth

import svc "github.com/dropDatabas3/authgate/internal/http/services/auth"

// Controllers agrupa todos los controllers del dominio auth.
type Controllers struct {
	Signup   *SignupController
	Signin   *SigninController
	Password *PasswordController
	Social   *SocialController
	Profile  *ProfileController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Signup:   NewSignupController(s.Signup),
		Signin:   NewSigninController(s.Signin),
		Password: NewPasswordController(s.Password),
		Social:   NewSocialController(s.Federated),
		Profile:  NewProfileController(s.Profile),
	}
}
