package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const maxAccountBodyBytes = 16 << 10

// UserService defines the account operations used by the handler
type UserService interface {
	Register(ctx context.Context, reg entities.Registration) (*entities.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*entities.AuthTokens, error)
	Profile(ctx context.Context, identity *entities.Identity) (*entities.UserProfile, error)
	UpdateProfile(ctx context.Context, identity *entities.Identity, update entities.ProfileUpdate) error
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	Logout(ctx context.Context, accessToken string) error
	ListUsers(ctx context.Context, limit int, paginationToken string) (*entities.UserPage, error)
	GetUser(ctx context.Context, username string) (*entities.UserAccount, error)
	UpdateUser(ctx context.Context, username string, update entities.ProfileUpdate) error
	DisableUser(ctx context.Context, actor *entities.Identity, username string) error
}

// UserHandler serves account self-service and user administration
type UserHandler struct {
	service UserService
	logger  zerolog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(service UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

type credentialsBody struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	ConfirmationCode string `json:"confirmationCode"`
	NewPassword      string `json:"newPassword"`
	OldPassword      string `json:"oldPassword"`
}

// Register handles POST /users/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var reg entities.Registration
	if !decodeAccountBody(w, r, &reg) {
		return
	}

	result, err := h.service.Register(r.Context(), reg)
	if err != nil {
		h.fail(w, err, "register")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Usuario registrado exitosamente. Por favor verifica tu email.",
		"data":    result,
	})
}

// ConfirmSignUp handles POST /users/confirm
func (h *UserHandler) ConfirmSignUp(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeAccountBody(w, r, &body) {
		return
	}

	if err := h.service.ConfirmSignUp(r.Context(), body.Email, body.ConfirmationCode); err != nil {
		h.fail(w, err, "confirm sign up")
		return
	}
	respondWithSuccess(w, "Email verificado exitosamente. Ahora puedes iniciar sesión.")
}

// Login handles POST /users/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeAccountBody(w, r, &body) {
		return
	}

	tokens, err := h.service.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		h.fail(w, err, "login")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Login exitoso",
		"accessToken":  tokens.AccessToken,
		"idToken":      tokens.IDToken,
		"refreshToken": tokens.RefreshToken,
		"expiresIn":    tokens.ExpiresIn,
	})
}

// GetProfile handles GET /users/profile
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	h.respondWithProfile(w, r, "Perfil obtenido exitosamente")
}

// ValidateToken handles GET /users/validate-token. Reaching it means the
// token already passed verification.
func (h *UserHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	h.respondWithProfile(w, r, "Token válido")
}

// UpdateProfile handles PUT /users/profile
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}
	var update entities.ProfileUpdate
	if !decodeAccountBody(w, r, &update) {
		return
	}

	if err := h.service.UpdateProfile(r.Context(), identity, update); err != nil {
		h.fail(w, err, "update profile")
		return
	}
	respondWithSuccess(w, "Atributos de usuario actualizados exitosamente")
}

// ChangePassword handles POST /users/change-password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityOf(w, r); !ok {
		return
	}
	var body credentialsBody
	if !decodeAccountBody(w, r, &body) {
		return
	}

	err := h.service.ChangePassword(r.Context(), middleware.BearerToken(r), body.OldPassword, body.NewPassword)
	if err != nil {
		h.fail(w, err, "change password")
		return
	}
	respondWithSuccess(w, "Contraseña actualizada exitosamente")
}

// ForgotPassword handles POST /users/forgot-password
func (h *UserHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeAccountBody(w, r, &body) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), body.Email); err != nil {
		h.fail(w, err, "forgot password")
		return
	}
	respondWithSuccess(w, "Se ha enviado un código de verificación a tu email para restablecer la contraseña.")
}

// ConfirmForgotPassword handles POST /users/confirm-forgot-password
func (h *UserHandler) ConfirmForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if !decodeAccountBody(w, r, &body) {
		return
	}

	if err := h.service.ConfirmForgotPassword(r.Context(), body.Email, body.ConfirmationCode, body.NewPassword); err != nil {
		h.fail(w, err, "confirm forgot password")
		return
	}
	respondWithSuccess(w, "Contraseña restablecida exitosamente. Ahora puedes iniciar sesión.")
}

// Logout handles POST /users/logout
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), middleware.BearerToken(r)); err != nil {
		h.fail(w, err, "logout")
		return
	}
	respondWithSuccess(w, "Sesión cerrada exitosamente en todos los dispositivos")
}

// ListUsers handles GET /users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))

	page, err := h.service.ListUsers(r.Context(), limit, query.Get("paginationToken"))
	if err != nil {
		h.fail(w, err, "list users")
		return
	}
	users := page.Users
	if users == nil {
		users = []*entities.UserAccount{}
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         "Usuarios obtenidos exitosamente",
		"users":           users,
		"total":           len(users),
		"paginationToken": page.PaginationToken,
		"hasMore":         page.HasMore,
	})
}

// GetUser handles GET /users/{username}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetUser(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, err, "get user")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Usuario obtenido exitosamente",
		"user":    account,
	})
}

// UpdateUser handles PUT /users/{username}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var update entities.ProfileUpdate
	if !decodeAccountBody(w, r, &update) {
		return
	}

	if err := h.service.UpdateUser(r.Context(), r.PathValue("username"), update); err != nil {
		h.fail(w, err, "update user")
		return
	}
	respondWithSuccess(w, "Atributos de usuario actualizados exitosamente")
}

// DisableUser handles DELETE /users/{username}
func (h *UserHandler) DisableUser(w http.ResponseWriter, r *http.Request) {
	actor := middleware.IdentityFromContext(r.Context())
	if err := h.service.DisableUser(r.Context(), actor, r.PathValue("username")); err != nil {
		h.fail(w, err, "disable user")
		return
	}
	respondWithSuccess(w, "Usuario deshabilitado exitosamente")
}

func (h *UserHandler) respondWithProfile(w http.ResponseWriter, r *http.Request, message string) {
	identity, ok := identityOf(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), identity)
	if err != nil {
		h.logger.Error().Err(err).Str("sub", identity.Sub).Msg("profile lookup failed")
		respondWithError(w, http.StatusInternalServerError, apperrors.MessageOf(err))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
		"user":    profile,
	})
}

// fail reports user pool rejections with their own message; anything
// unexpected is logged and hidden.
func (h *UserHandler) fail(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("operation", op).Msg("user request failed")
		respondWithError(w, status, msgInternalError)
		return
	}
	respondWithError(w, status, apperrors.MessageOf(err))
}

func identityOf(w http.ResponseWriter, r *http.Request) (*entities.Identity, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		respondWithError(w, http.StatusUnauthorized, msgUnauthenticated)
		return nil, false
	}
	return identity, true
}

func decodeAccountBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAccountBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Cuerpo de la solicitud inválido")
		return false
	}
	return true
}

func respondWithSuccess(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}
