package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/pkg/config"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

type mockCognito struct {
	mock.Mock
}

func (m *mockCognito) SignUp(ctx context.Context, in *cip.SignUpInput, _ ...func(*cip.Options)) (*cip.SignUpOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.SignUpOutput)
	return o, args.Error(1)
}

func (m *mockCognito) ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, _ ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.ConfirmSignUpOutput)
	return o, args.Error(1)
}

func (m *mockCognito) InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, _ ...func(*cip.Options)) (*cip.InitiateAuthOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.InitiateAuthOutput)
	return o, args.Error(1)
}

func (m *mockCognito) ChangePassword(ctx context.Context, in *cip.ChangePasswordInput, _ ...func(*cip.Options)) (*cip.ChangePasswordOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.ChangePasswordOutput)
	return o, args.Error(1)
}

func (m *mockCognito) ForgotPassword(ctx context.Context, in *cip.ForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.ForgotPasswordOutput)
	return o, args.Error(1)
}

func (m *mockCognito) ConfirmForgotPassword(ctx context.Context, in *cip.ConfirmForgotPasswordInput, _ ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.ConfirmForgotPasswordOutput)
	return o, args.Error(1)
}

func (m *mockCognito) GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, _ ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.GlobalSignOutOutput)
	return o, args.Error(1)
}

func (m *mockCognito) AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, _ ...func(*cip.Options)) (*cip.AdminGetUserOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.AdminGetUserOutput)
	return o, args.Error(1)
}

func (m *mockCognito) AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, _ ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.AdminUpdateUserAttributesOutput)
	return o, args.Error(1)
}

func (m *mockCognito) AdminDisableUser(ctx context.Context, in *cip.AdminDisableUserInput, _ ...func(*cip.Options)) (*cip.AdminDisableUserOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.AdminDisableUserOutput)
	return o, args.Error(1)
}

func (m *mockCognito) ListUsers(ctx context.Context, in *cip.ListUsersInput, _ ...func(*cip.Options)) (*cip.ListUsersOutput, error) {
	args := m.Called(ctx, in)
	o, _ := args.Get(0).(*cip.ListUsersOutput)
	return o, args.Error(1)
}

var poolConfig = &config.AuthConfig{
	Region:     "us-east-1",
	UserPoolID: "us-east-1_pool",
	ClientID:   "app-client",
}

func newDirectory(t *testing.T, cfg *config.AuthConfig) (*CognitoDirectory, *mockCognito) {
	t.Helper()
	client := new(mockCognito)
	t.Cleanup(func() { client.AssertExpectations(t) })
	return NewCognitoDirectory(client, cfg, zerolog.Nop()).(*CognitoDirectory), client
}

func TestCognitoDirectory_SignUp(t *testing.T) {
	directory, client := newDirectory(t, poolConfig)

	client.On("SignUp", mock.Anything, mock.MatchedBy(func(in *cip.SignUpInput) bool {
		attrs := attributeMap(in.UserAttributes)
		return aws.ToString(in.Username) == "ana@example.com" &&
			aws.ToString(in.ClientId) == "app-client" &&
			in.SecretHash == nil &&
			attrs["email"] == "ana@example.com" &&
			attrs["given_name"] == "Ana" &&
			attrs["custom:user_type"] == "Inquilino"
	})).Return(&cip.SignUpOutput{UserSub: aws.String("sub-1"), UserConfirmed: false}, nil).Once()

	result, err := directory.SignUp(context.Background(), entities.Registration{
		FirstName: "Ana",
		LastName:  "García",
		Email:     "Ana@Example.com",
		Password:  "S3cret!pass",
		UserType:  entities.UserTypeTenant,
	})

	require.NoError(t, err)
	assert.Equal(t, "sub-1", result.UserSub)
	assert.False(t, result.UserConfirmed)
}

func TestCognitoDirectory_LoginWithClientSecret(t *testing.T) {
	cfg := *poolConfig
	cfg.ClientSecret = "client-secret"
	directory, client := newDirectory(t, &cfg)

	mac := hmac.New(sha256.New, []byte("client-secret"))
	mac.Write([]byte("ana@example.comapp-client"))
	wantHash := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	client.On("InitiateAuth", mock.Anything, mock.MatchedBy(func(in *cip.InitiateAuthInput) bool {
		return in.AuthFlow == types.AuthFlowTypeUserPasswordAuth &&
			in.AuthParameters["USERNAME"] == "ana@example.com" &&
			in.AuthParameters["SECRET_HASH"] == wantHash
	})).Return(&cip.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			AccessToken:  aws.String("access"),
			IdToken:      aws.String("id"),
			RefreshToken: aws.String("refresh"),
			ExpiresIn:    3600,
		},
	}, nil).Once()

	tokens, err := directory.Login(context.Background(), "ANA@example.com", "pw")

	require.NoError(t, err)
	assert.Equal(t, "access", tokens.AccessToken)
	assert.Equal(t, "id", tokens.IDToken)
	assert.Equal(t, int32(3600), tokens.ExpiresIn)
}

func TestCognitoDirectory_LoginChallenge(t *testing.T) {
	directory, client := newDirectory(t, poolConfig)

	client.On("InitiateAuth", mock.Anything, mock.Anything).Return(&cip.InitiateAuthOutput{
		ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
	}, nil).Once()

	_, err := directory.Login(context.Background(), "ana@example.com", "temporary")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	assert.Equal(t, "Se requiere cambio de contraseña", apperrors.MessageOf(err))
}

func TestCognitoDirectory_ErrorMapping(t *testing.T) {
	tests := []struct {
		code     string
		wantType apperrors.ErrorType
		wantMsg  string
	}{
		{"UsernameExistsException", apperrors.ErrorTypeConflict, "Ya existe un usuario con este email"},
		{"UserNotFoundException", apperrors.ErrorTypeNotFound, "Usuario no encontrado"},
		{"NotAuthorizedException", apperrors.ErrorTypeUnauthorized, "Credenciales inválidas"},
		{"CodeMismatchException", apperrors.ErrorTypeValidation, "Código de verificación inválido"},
		{"TooManyRequestsException", apperrors.ErrorTypeRateLimited, "Demasiadas solicitudes. Por favor intenta más tarde"},
		{"InternalErrorException", apperrors.ErrorTypeExternal, "Error al procesar la solicitud"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			directory, client := newDirectory(t, poolConfig)
			client.On("ForgotPassword", mock.Anything, mock.Anything).
				Return(nil, &smithy.GenericAPIError{Code: tt.code, Message: "rejected"}).Once()

			err := directory.ForgotPassword(context.Background(), "ana@example.com")

			assert.True(t, apperrors.IsType(err, tt.wantType))
			assert.Equal(t, tt.wantMsg, apperrors.MessageOf(err))
		})
	}

	t.Run("transport failure", func(t *testing.T) {
		directory, client := newDirectory(t, poolConfig)
		client.On("GlobalSignOut", mock.Anything, mock.Anything).Return(nil, errors.New("dial tcp: timeout")).Once()

		err := directory.SignOut(context.Background(), "access")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})
}

func TestCognitoDirectory_GetUserAndList(t *testing.T) {
	directory, client := newDirectory(t, poolConfig)

	client.On("AdminGetUser", mock.Anything, mock.MatchedBy(func(in *cip.AdminGetUserInput) bool {
		return aws.ToString(in.UserPoolId) == "us-east-1_pool" && aws.ToString(in.Username) == "ana"
	})).Return(&cip.AdminGetUserOutput{
		Username:       aws.String("ana"),
		UserStatus:     types.UserStatusTypeConfirmed,
		Enabled:        true,
		UserAttributes: []types.AttributeType{attribute("sub", "sub-1"), attribute("email_verified", "true")},
	}, nil).Once()

	client.On("ListUsers", mock.Anything, mock.MatchedBy(func(in *cip.ListUsersInput) bool {
		return aws.ToInt32(in.Limit) == 2 && in.PaginationToken == nil
	})).Return(&cip.ListUsersOutput{
		Users: []types.UserType{
			{Username: aws.String("ana"), Enabled: true},
			{Username: aws.String("beto"), Enabled: false},
		},
		PaginationToken: aws.String("next"),
	}, nil).Once()

	account, err := directory.GetUser(context.Background(), "ana")
	require.NoError(t, err)
	assert.Equal(t, "CONFIRMED", account.Status)
	assert.Equal(t, "sub-1", account.Attributes["sub"])

	page, err := directory.ListUsers(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Len(t, page.Users, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "next", page.PaginationToken)
	assert.False(t, page.Users[1].Enabled)
}

func TestCognitoDirectory_UpdateAttributesIsOrdered(t *testing.T) {
	directory, client := newDirectory(t, poolConfig)

	client.On("AdminUpdateUserAttributes", mock.Anything, mock.MatchedBy(func(in *cip.AdminUpdateUserAttributesInput) bool {
		return len(in.UserAttributes) == 2 &&
			aws.ToString(in.UserAttributes[0].Name) == "custom:user_type" &&
			aws.ToString(in.UserAttributes[1].Name) == "given_name"
	})).Return(&cip.AdminUpdateUserAttributesOutput{}, nil).Once()

	err := directory.UpdateAttributes(context.Background(), "ana", map[string]string{
		"given_name":       "Ana",
		"custom:user_type": "Agente",
	})
	require.NoError(t, err)
}
