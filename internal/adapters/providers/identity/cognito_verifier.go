package identity

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	"github.com/observatorio/rentpredict/backend/pkg/config"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

const (
	msgTokenExpired   = "token expired"
	msgBadSignature   = "invalid token signature"
	msgInvalidClaims  = "invalid token claims"
	msgMalformedToken = "invalid token"
)

// CognitoVerifier validates user pool access and id tokens against the
// pool's published key set.
type CognitoVerifier struct {
	keyfunc  jwt.Keyfunc
	issuer   string
	clientID string
}

// NewCognitoVerifier fetches the pool key set and keeps it refreshed in the
// background until ctx is cancelled.
func NewCognitoVerifier(ctx context.Context, cfg *config.AuthConfig) (providers.TokenVerifier, error) {
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{cfg.JWKSURL()})
	if err != nil {
		return nil, fmt.Errorf("failed to load user pool key set: %w", err)
	}
	return NewCognitoVerifierWithKeyfunc(jwks.Keyfunc, cfg.IssuerURL(), cfg.ClientID), nil
}

// NewCognitoVerifierWithKeyfunc builds a verifier around an existing key lookup
func NewCognitoVerifierWithKeyfunc(kf jwt.Keyfunc, issuer, clientID string) *CognitoVerifier {
	return &CognitoVerifier{keyfunc: kf, issuer: issuer, clientID: clientID}
}

// Verify checks signature, issuer, expiry and audience and maps the claims
// onto an Identity.
func (v *CognitoVerifier) Verify(ctx context.Context, token string) (*entities.Identity, error) {
	if token == "" {
		return nil, apperrors.NewUnauthorizedError("Token de acceso requerido")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, v.keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}

	if err := v.checkClient(claims); err != nil {
		return nil, err
	}

	return toIdentity(claims), nil
}

func (v *CognitoVerifier) checkClient(claims jwt.MapClaims) error {
	use, _ := claims["token_use"].(string)
	switch use {
	case "access":
		if v.clientID == "" {
			return nil
		}
		if clientID, _ := claims["client_id"].(string); clientID != v.clientID {
			return apperrors.NewUnauthorizedError(msgInvalidClaims)
		}
	case "id":
		if v.clientID == "" {
			return nil
		}
		aud, err := claims.GetAudience()
		if err != nil || !slices.Contains([]string(aud), v.clientID) {
			return apperrors.NewUnauthorizedError(msgInvalidClaims)
		}
	default:
		return apperrors.NewUnauthorizedError(msgInvalidClaims)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.NewUnauthorizedError(msgTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return apperrors.NewUnauthorizedError(msgBadSignature)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return apperrors.NewUnauthorizedError(msgInvalidClaims)
	default:
		return apperrors.NewUnauthorizedError(msgMalformedToken)
	}
}

func toIdentity(claims jwt.MapClaims) *entities.Identity {
	id := &entities.Identity{
		Sub:        stringClaim(claims, "sub"),
		Email:      stringClaim(claims, "email"),
		GivenName:  stringClaim(claims, "given_name"),
		FamilyName: stringClaim(claims, "family_name"),
		Username:   stringClaim(claims, "username"),
		UserType:   stringClaim(claims, "custom:user_type"),
	}
	if id.Username == "" {
		id.Username = stringClaim(claims, "cognito:username")
	}

	switch verified := claims["email_verified"].(type) {
	case bool:
		id.EmailVerified = verified
	case string:
		id.EmailVerified = verified == "true"
	}

	if groups, ok := claims["cognito:groups"].([]any); ok {
		for _, g := range groups {
			if s, ok := g.(string); ok {
				id.Groups = append(id.Groups, s)
			}
		}
	}
	return id
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}
