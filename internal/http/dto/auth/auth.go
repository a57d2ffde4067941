// Package auth contiene los DTOs de los endpoints de autenticación y su
// validación de forma (ozzo-validation). Las reglas de negocio (política de
// password, unicidad) viven en services/auth.
package auth

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
)

const (
	msgNameRequired     = "Name is required"
	msgEmailInvalid     = "Must be a valid email address"
	msgPasswordRequired = "Password is required"
	msgTokenRequired    = "Token is required"
)

// ValidationError es el primer campo inválido, en el orden declarado.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// firstError reduce validation.Errors al primer campo según order.
func firstError(err error, order ...string) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for _, f := range order {
			if e, ok := verrs[f]; ok && e != nil {
				return &ValidationError{Field: f, Message: e.Error()}
			}
		}
	}
	return err
}

func emailRules() []validation.Rule {
	return []validation.Rule{validation.Required.Error(msgEmailInvalid), is.Email.Error(msgEmailInvalid)}
}

// ─── Requests ───

type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignupRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = repository.NormalizeEmail(r.Email)
}

func (r SignupRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error(msgNameRequired), validation.Length(1, 200)),
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, validation.Required.Error(msgPasswordRequired)),
	), "name", "email", "password")
}

type ActivationRequest struct {
	Token string `json:"token"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SigninRequest) Normalize() {
	r.Email = repository.NormalizeEmail(r.Email)
}

func (r SigninRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
		validation.Field(&r.Password, validation.Required.Error(msgPasswordRequired)),
	), "email", "password")
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r *ForgotPasswordRequest) Normalize() {
	r.Email = repository.NormalizeEmail(r.Email)
}

func (r ForgotPasswordRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules()...),
	), "email")
}

// ResetPasswordRequest conserva los nombres de campo que usa el frontend.
type ResetPasswordRequest struct {
	ResetPasswordLink string `json:"resetPasswordLink"`
	NewPassword       string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.ResetPasswordLink, validation.Required.Error(msgTokenRequired)),
		validation.Field(&r.NewPassword, validation.Required.Error(msgPasswordRequired)),
	), "resetPasswordLink", "newPassword")
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

func (r GoogleLoginRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required.Error(msgTokenRequired)),
	), "idToken")
}

type FacebookLoginRequest struct {
	UserID      string `json:"userID"`
	AccessToken string `json:"accessToken"`
}

func (r FacebookLoginRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required.Error("userID is required")),
		validation.Field(&r.AccessToken, validation.Required.Error("accessToken is required")),
	), "userID", "accessToken")
}

// UpdateProfileRequest: name obligatorio, password opcional.
type UpdateProfileRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r UpdateProfileRequest) Validate() error {
	return firstError(validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error(msgNameRequired), validation.Length(1, 200)),
	), "name")
}

// ─── Responses ───

type MessageResponse struct {
	Message string `json:"message"`
}

// UserResponse es la proyección pública del usuario (nunca el hash).
type UserResponse struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func NewUserResponse(u *repository.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}
