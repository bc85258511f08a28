package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const (
	defaultUserPageSize = 60
	maxUserPageSize     = 60

	msgInvalidUserType = "userType debe ser 'Propietario', 'Agente' o 'Inquilino'"
	msgUsernameNeeded  = "Username de usuario es requerido"
)

// UserService handles account self-service and user administration
type UserService struct {
	directory providers.UserDirectory
	logger    zerolog.Logger
}

// NewUserService creates a new user service
func NewUserService(directory providers.UserDirectory, logger zerolog.Logger) *UserService {
	return &UserService{
		directory: directory,
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

// Register signs a new account up
func (s *UserService) Register(ctx context.Context, reg entities.Registration) (*entities.SignUpResult, error) {
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Email = normalizeEmail(reg.Email)

	if reg.FirstName == "" || reg.LastName == "" || reg.Email == "" || reg.Password == "" {
		return nil, apperrors.NewValidationError("Todos los campos son obligatorios: firstName, lastName, email, password")
	}
	if reg.UserType != "" && !reg.UserType.Valid() {
		return nil, apperrors.NewValidationError(msgInvalidUserType)
	}

	result, err := s.directory.SignUp(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_sub", result.UserSub).Msg("user registered")
	return result, nil
}

// ConfirmSignUp verifies a pending registration
func (s *UserService) ConfirmSignUp(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return apperrors.NewValidationError("Email y código de confirmación son obligatorios")
	}
	return s.directory.ConfirmSignUp(ctx, email, code)
}

// Login exchanges credentials for tokens
func (s *UserService) Login(ctx context.Context, email, password string) (*entities.AuthTokens, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("Email y contraseña son obligatorios")
	}
	return s.directory.Login(ctx, email, password)
}

// Profile returns the caller's profile as currently stored in the user pool.
// Groups always come from the token.
func (s *UserService) Profile(ctx context.Context, identity *entities.Identity) (*entities.UserProfile, error) {
	account, err := s.directory.GetUser(ctx, usernameOf(identity))
	if err != nil {
		return nil, apperrors.NewInternalError("Error al obtener información del usuario", err)
	}
	return entities.NewUserProfile(identity, account), nil
}

// UpdateProfile changes the caller's own attributes
func (s *UserService) UpdateProfile(ctx context.Context, identity *entities.Identity, update entities.ProfileUpdate) error {
	return s.updateAttributes(ctx, usernameOf(identity), update)
}

// ChangePassword replaces the caller's password
func (s *UserService) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("La contraseña actual y la nueva contraseña son obligatorias")
	}
	return s.directory.ChangePassword(ctx, accessToken, oldPassword, newPassword)
}

// ForgotPassword starts a password reset
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("Email es obligatorio")
	}
	return s.directory.ForgotPassword(ctx, email)
}

// ConfirmForgotPassword completes a password reset
func (s *UserService) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" || newPassword == "" {
		return apperrors.NewValidationError("Email, código de confirmación y nueva contraseña son obligatorios")
	}
	return s.directory.ConfirmForgotPassword(ctx, email, code, newPassword)
}

// Logout revokes every token of the caller
func (s *UserService) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return apperrors.NewValidationError("Token de acceso requerido")
	}
	return s.directory.SignOut(ctx, accessToken)
}

// ListUsers returns one page of accounts. The user pool caps pages at 60.
func (s *UserService) ListUsers(ctx context.Context, limit int, paginationToken string) (*entities.UserPage, error) {
	if limit <= 0 {
		limit = defaultUserPageSize
	}
	if limit > maxUserPageSize {
		limit = maxUserPageSize
	}
	return s.directory.ListUsers(ctx, int32(limit), paginationToken)
}

// GetUser returns any account by username
func (s *UserService) GetUser(ctx context.Context, username string) (*entities.UserAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperrors.NewValidationError(msgUsernameNeeded)
	}
	return s.directory.GetUser(ctx, username)
}

// UpdateUser changes any account's attributes
func (s *UserService) UpdateUser(ctx context.Context, username string, update entities.ProfileUpdate) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperrors.NewValidationError(msgUsernameNeeded)
	}
	return s.updateAttributes(ctx, username, update)
}

// DisableUser blocks an account. Admins cannot disable themselves.
func (s *UserService) DisableUser(ctx context.Context, actor *entities.Identity, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return apperrors.NewValidationError(msgUsernameNeeded)
	}
	if actor != nil && (username == actor.Username || username == actor.Sub) {
		return apperrors.NewValidationError("No puedes deshabilitar tu propia cuenta")
	}

	if err := s.directory.DisableUser(ctx, username); err != nil {
		return err
	}
	s.logger.Info().Str("username", username).Msg("user disabled")
	return nil
}

func (s *UserService) updateAttributes(ctx context.Context, username string, update entities.ProfileUpdate) error {
	if update.UserType != nil && *update.UserType != "" && !update.UserType.Valid() {
		return apperrors.NewValidationError(msgInvalidUserType)
	}
	attrs := update.Attributes()
	if len(attrs) == 0 {
		return apperrors.NewValidationError("No hay datos para actualizar")
	}
	return s.directory.UpdateAttributes(ctx, username, attrs)
}

// usernameOf prefers the pool username and falls back to the subject, which
// the pool also accepts as a username.
func usernameOf(identity *entities.Identity) string {
	if identity.Username != "" {
		return identity.Username
	}
	return identity.Sub
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
