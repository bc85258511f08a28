package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/pkg/config"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

// CognitoAPI is the subset of the user pool client used for account management
type CognitoAPI interface {
	SignUp(ctx context.Context, params *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	ChangePassword(ctx context.Context, params *cip.ChangePasswordInput, optFns ...func(*cip.Options)) (*cip.ChangePasswordOutput, error)
	ForgotPassword(ctx context.Context, params *cip.ForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cip.ConfirmForgotPasswordInput, optFns ...func(*cip.Options)) (*cip.ConfirmForgotPasswordOutput, error)
	GlobalSignOut(ctx context.Context, params *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
	AdminGetUser(ctx context.Context, params *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
	AdminDisableUser(ctx context.Context, params *cip.AdminDisableUserInput, optFns ...func(*cip.Options)) (*cip.AdminDisableUserOutput, error)
	ListUsers(ctx context.Context, params *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
}

// CognitoDirectory manages user pool accounts through the identity provider API
type CognitoDirectory struct {
	client       CognitoAPI
	userPoolID   string
	clientID     string
	clientSecret string
	logger       zerolog.Logger
}

// NewCognitoDirectory creates a new user pool directory
func NewCognitoDirectory(client CognitoAPI, cfg *config.AuthConfig, logger zerolog.Logger) providers.UserDirectory {
	return &CognitoDirectory{
		client:       client,
		userPoolID:   cfg.UserPoolID,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		logger:       logger.With().Str("component", "cognito_directory").Logger(),
	}
}

// SignUp registers a new account keyed by its lowercased email
func (d *CognitoDirectory) SignUp(ctx context.Context, reg entities.Registration) (*entities.SignUpResult, error) {
	username := strings.ToLower(reg.Email)
	attrs := []types.AttributeType{
		attribute(entities.AttrEmail, username),
		attribute(entities.AttrGivenName, reg.FirstName),
		attribute(entities.AttrFamilyName, reg.LastName),
	}
	if reg.UserType != "" {
		attrs = append(attrs, attribute(entities.AttrUserType, string(reg.UserType)))
	}

	out, err := d.client.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(d.clientID),
		Username:       aws.String(username),
		Password:       aws.String(reg.Password),
		UserAttributes: attrs,
		SecretHash:     d.secretHash(username),
	})
	if err != nil {
		return nil, d.classify(err, "sign up")
	}
	return &entities.SignUpResult{
		UserSub:       aws.ToString(out.UserSub),
		UserConfirmed: out.UserConfirmed,
	}, nil
}

// ConfirmSignUp verifies the emailed confirmation code
func (d *CognitoDirectory) ConfirmSignUp(ctx context.Context, email, code string) error {
	username := strings.ToLower(email)
	_, err := d.client.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(d.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		SecretHash:       d.secretHash(username),
	})
	return d.classify(err, "confirm sign up")
}

// Login runs the user password flow
func (d *CognitoDirectory) Login(ctx context.Context, email, password string) (*entities.AuthTokens, error) {
	username := strings.ToLower(email)
	params := map[string]string{
		"USERNAME": username,
		"PASSWORD": password,
	}
	if hash := d.secretHash(username); hash != nil {
		params["SECRET_HASH"] = *hash
	}

	out, err := d.client.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(d.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return nil, d.classify(err, "login")
	}
	if out.ChallengeName == types.ChallengeNameTypeNewPasswordRequired {
		return nil, apperrors.NewUnauthorizedError("Se requiere cambio de contraseña")
	}
	if out.AuthenticationResult == nil {
		return nil, apperrors.NewUnauthorizedError("Desafío de autenticación no soportado: " + string(out.ChallengeName))
	}

	result := out.AuthenticationResult
	return &entities.AuthTokens{
		AccessToken:  aws.ToString(result.AccessToken),
		IDToken:      aws.ToString(result.IdToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresIn:    result.ExpiresIn,
	}, nil
}

// ChangePassword replaces the password of the access token's owner
func (d *CognitoDirectory) ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error {
	_, err := d.client.ChangePassword(ctx, &cip.ChangePasswordInput{
		AccessToken:      aws.String(accessToken),
		PreviousPassword: aws.String(oldPassword),
		ProposedPassword: aws.String(newPassword),
	})
	return d.classify(err, "change password")
}

// ForgotPassword emails a reset code
func (d *CognitoDirectory) ForgotPassword(ctx context.Context, email string) error {
	username := strings.ToLower(email)
	_, err := d.client.ForgotPassword(ctx, &cip.ForgotPasswordInput{
		ClientId:   aws.String(d.clientID),
		Username:   aws.String(username),
		SecretHash: d.secretHash(username),
	})
	return d.classify(err, "forgot password")
}

// ConfirmForgotPassword sets a new password using the emailed reset code
func (d *CognitoDirectory) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	username := strings.ToLower(email)
	_, err := d.client.ConfirmForgotPassword(ctx, &cip.ConfirmForgotPasswordInput{
		ClientId:         aws.String(d.clientID),
		Username:         aws.String(username),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       d.secretHash(username),
	})
	return d.classify(err, "confirm forgot password")
}

// SignOut revokes every token of the access token's owner
func (d *CognitoDirectory) SignOut(ctx context.Context, accessToken string) error {
	_, err := d.client.GlobalSignOut(ctx, &cip.GlobalSignOutInput{
		AccessToken: aws.String(accessToken),
	})
	return d.classify(err, "global sign out")
}

// GetUser loads one account by username
func (d *CognitoDirectory) GetUser(ctx context.Context, username string) (*entities.UserAccount, error) {
	out, err := d.client.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return nil, d.classify(err, "get user")
	}
	return &entities.UserAccount{
		Username:   aws.ToString(out.Username),
		Status:     string(out.UserStatus),
		Enabled:    out.Enabled,
		Attributes: attributeMap(out.UserAttributes),
		CreatedAt:  out.UserCreateDate,
	}, nil
}

// UpdateAttributes overwrites the given attributes of an account
func (d *CognitoDirectory) UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]types.AttributeType, 0, len(names))
	for _, name := range names {
		list = append(list, attribute(name, attrs[name]))
	}

	_, err := d.client.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(d.userPoolID),
		Username:       aws.String(username),
		UserAttributes: list,
	})
	return d.classify(err, "update user attributes")
}

// DisableUser blocks an account from signing in
func (d *CognitoDirectory) DisableUser(ctx context.Context, username string) error {
	_, err := d.client.AdminDisableUser(ctx, &cip.AdminDisableUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	return d.classify(err, "disable user")
}

// ListUsers returns one page of the user pool
func (d *CognitoDirectory) ListUsers(ctx context.Context, limit int32, paginationToken string) (*entities.UserPage, error) {
	in := &cip.ListUsersInput{
		UserPoolId: aws.String(d.userPoolID),
		Limit:      aws.Int32(limit),
	}
	if paginationToken != "" {
		in.PaginationToken = aws.String(paginationToken)
	}

	out, err := d.client.ListUsers(ctx, in)
	if err != nil {
		return nil, d.classify(err, "list users")
	}

	page := &entities.UserPage{
		Users:           make([]*entities.UserAccount, 0, len(out.Users)),
		PaginationToken: aws.ToString(out.PaginationToken),
	}
	page.HasMore = page.PaginationToken != ""
	for _, u := range out.Users {
		page.Users = append(page.Users, &entities.UserAccount{
			Username:   aws.ToString(u.Username),
			Status:     string(u.UserStatus),
			Enabled:    u.Enabled,
			Attributes: attributeMap(u.Attributes),
			CreatedAt:  u.UserCreateDate,
		})
	}
	return page, nil
}

// secretHash is required by app clients that carry a secret
func (d *CognitoDirectory) secretHash(username string) *string {
	if d.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(d.clientSecret))
	mac.Write([]byte(username + d.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

var userPoolErrors = map[string]func(error) *apperrors.AppError{
	"UsernameExistsException": func(error) *apperrors.AppError {
		return apperrors.NewConflictError("Ya existe un usuario con este email")
	},
	"UserNotFoundException": func(error) *apperrors.AppError {
		return apperrors.NewNotFoundError("Usuario no encontrado")
	},
	"NotAuthorizedException": func(error) *apperrors.AppError {
		return apperrors.NewUnauthorizedError("Credenciales inválidas")
	},
	"InvalidPasswordException": func(error) *apperrors.AppError {
		return apperrors.NewValidationError("La contraseña no cumple con los requisitos de seguridad")
	},
	"CodeMismatchException": func(error) *apperrors.AppError {
		return apperrors.NewValidationError("Código de verificación inválido")
	},
	"ExpiredCodeException": func(error) *apperrors.AppError {
		return apperrors.NewValidationError("El código de verificación ha expirado")
	},
	"InvalidParameterException": func(error) *apperrors.AppError {
		return apperrors.NewValidationError("Parámetros inválidos")
	},
	"UserNotConfirmedException": func(error) *apperrors.AppError {
		return apperrors.NewForbiddenError("Usuario no confirmado. Por favor verifica tu email")
	},
	"LimitExceededException": func(err error) *apperrors.AppError {
		return apperrors.NewRateLimitedError("Has excedido el límite de intentos. Por favor intenta más tarde", err)
	},
	"TooManyRequestsException": func(err error) *apperrors.AppError {
		return apperrors.NewRateLimitedError("Demasiadas solicitudes. Por favor intenta más tarde", err)
	},
}

func (d *CognitoDirectory) classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if mapped, ok := userPoolErrors[apiErr.ErrorCode()]; ok {
			d.logger.Debug().Str("operation", op).Str("code", apiErr.ErrorCode()).Msg("user pool rejected request")
			return mapped(err)
		}
	}

	d.logger.Error().Err(err).Str("operation", op).Msg("user pool request failed")
	return apperrors.NewExternalError("Error al procesar la solicitud", err)
}

func attribute(name, value string) types.AttributeType {
	return types.AttributeType{Name: aws.String(name), Value: aws.String(value)}
}

func attributeMap(attrs []types.AttributeType) map[string]string {
	out := make(map[string]string, len(attrs))
	for _, a := range attrs {
		out[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	return out
}
