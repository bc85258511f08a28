package providers

import (
	"context"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
)

// TokenVerifier validates a bearer token issued by the identity provider
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*entities.Identity, error)
}

// UserDirectory manages accounts in the user pool
type UserDirectory interface {
	SignUp(ctx context.Context, reg entities.Registration) (*entities.SignUpResult, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	Login(ctx context.Context, email, password string) (*entities.AuthTokens, error)
	ChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
	// SignOut revokes every token issued to the owner of accessToken
	SignOut(ctx context.Context, accessToken string) error

	GetUser(ctx context.Context, username string) (*entities.UserAccount, error)
	UpdateAttributes(ctx context.Context, username string, attrs map[string]string) error
	DisableUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context, limit int32, paginationToken string) (*entities.UserPage, error)
}
