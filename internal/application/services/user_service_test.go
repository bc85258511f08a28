package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/tests/mocks"
)

func TestUserService_Register(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())

	directory.On("SignUp", mock.Anything, mock.MatchedBy(func(r entities.Registration) bool {
		return r.Email == "ana@example.com" && r.FirstName == "Ana"
	})).Return(&entities.SignUpResult{UserSub: "sub-1"}, nil).Once()

	result, err := svc.Register(context.Background(), entities.Registration{
		FirstName: " Ana ", LastName: "García", Email: " ANA@example.com", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", result.UserSub)

	_, err = svc.Register(context.Background(), entities.Registration{FirstName: "Ana", Email: "a@b.c", Password: "pw"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Register(context.Background(), entities.Registration{
		FirstName: "Ana", LastName: "García", Email: "a@b.c", Password: "pw", UserType: "Inversor",
	})
	assert.Equal(t, "userType debe ser 'Propietario', 'Agente' o 'Inquilino'", apperrors.MessageOf(err))
}

func TestUserService_ProfilePrefersPoolAttributes(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())
	identity := &entities.Identity{
		Sub: "sub-1", Email: "old@example.com", Username: "ana", Groups: []string{"admin"},
	}

	directory.On("GetUser", mock.Anything, "ana").Return(&entities.UserAccount{
		Username: "ana",
		Attributes: map[string]string{
			"email": "ana@example.com", "given_name": "Ana", "email_verified": "true", "custom:user_type": "Agente",
		},
	}, nil).Once()

	profile, err := svc.Profile(context.Background(), identity)

	require.NoError(t, err)
	assert.Equal(t, "sub-1", profile.ID)
	assert.Equal(t, "ana@example.com", profile.Email)
	assert.Equal(t, "Ana", profile.FirstName)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Agente", profile.UserType)
	assert.Equal(t, []string{"admin"}, profile.Groups)
}

func TestUserService_ProfileLookupFailure(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())

	directory.On("GetUser", mock.Anything, "sub-1").Return(nil, errors.New("throttled")).Once()

	_, err := svc.Profile(context.Background(), &entities.Identity{Sub: "sub-1"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	assert.Equal(t, "Error al obtener información del usuario", apperrors.MessageOf(err))
}

func TestUserService_UpdateProfile(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())
	identity := &entities.Identity{Sub: "sub-1", Username: "ana"}
	name := "Ana María"
	blank := " "
	owner := entities.UserTypeOwner

	directory.On("UpdateAttributes", mock.Anything, "ana", map[string]string{
		"given_name": "Ana María", "custom:user_type": "Propietario",
	}).Return(nil).Once()

	require.NoError(t, svc.UpdateProfile(context.Background(), identity, entities.ProfileUpdate{
		FirstName: &name, LastName: &blank, UserType: &owner,
	}))

	err := svc.UpdateProfile(context.Background(), identity, entities.ProfileUpdate{LastName: &blank})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	bad := entities.UserType("Inversor")
	err = svc.UpdateProfile(context.Background(), identity, entities.ProfileUpdate{UserType: &bad})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUserService_ListUsersClampsPageSize(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())

	directory.On("ListUsers", mock.Anything, int32(60), "").Return(&entities.UserPage{}, nil).Twice()
	directory.On("ListUsers", mock.Anything, int32(10), "tok").Return(&entities.UserPage{}, nil).Once()

	_, err := svc.ListUsers(context.Background(), 0, "")
	require.NoError(t, err)
	_, err = svc.ListUsers(context.Background(), 500, "")
	require.NoError(t, err)
	_, err = svc.ListUsers(context.Background(), 10, "tok")
	require.NoError(t, err)
}

func TestUserService_DisableUser(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())
	admin := &entities.Identity{Sub: "sub-admin", Username: "root"}

	directory.On("DisableUser", mock.Anything, "ana").Return(nil).Once()

	require.NoError(t, svc.DisableUser(context.Background(), admin, "ana"))

	err := svc.DisableUser(context.Background(), admin, "root")
	assert.Equal(t, "No puedes deshabilitar tu propia cuenta", apperrors.MessageOf(err))

	err = svc.DisableUser(context.Background(), admin, " ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestUserService_RequiredFields(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	svc := services.NewUserService(directory, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Login(ctx, "", "pw")
	assert.Equal(t, "Email y contraseña son obligatorios", apperrors.MessageOf(err))
	assert.Error(t, svc.ConfirmSignUp(ctx, "ana@example.com", " "))
	assert.Error(t, svc.ChangePassword(ctx, "access", "", "new"))
	assert.Error(t, svc.ForgotPassword(ctx, ""))
	assert.Error(t, svc.ConfirmForgotPassword(ctx, "ana@example.com", "123456", ""))
	assert.Error(t, svc.Logout(ctx, ""))
	directory.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}
