package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	"github.com/observatorio/rentpredict/backend/internal/domain/providers"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the caller attached by the auth middleware, or
// nil for anonymous requests.
func IdentityFromContext(ctx context.Context) *entities.Identity {
	identity, _ := ctx.Value(identityKey{}).(*entities.Identity)
	return identity
}

// AuthMiddleware resolves bearer tokens into identities
type AuthMiddleware struct {
	verifier providers.TokenVerifier
	logger   zerolog.Logger
}

// NewAuthMiddleware creates a new auth middleware. A nil verifier rejects
// every protected request.
func NewAuthMiddleware(verifier providers.TokenVerifier, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Authenticate requires a valid bearer token
func (m *AuthMiddleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeAuthError(w, "Token de acceso requerido")
			return
		}
		if m.verifier == nil {
			writeAuthError(w, "authentication is not configured")
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.logger.Debug().Err(err).Msg("rejected bearer token")
			writeAuthError(w, apperrors.MessageOf(err))
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// OptionalAuthenticate attaches the identity of a valid token and lets every
// other request through anonymously.
func (m *AuthMiddleware) OptionalAuthenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || m.verifier == nil {
			next(w, r)
			return
		}

		identity, err := m.verifier.Verify(r.Context(), token)
		if err != nil {
			m.logger.Debug().Err(err).Msg("ignoring invalid bearer token")
			next(w, r)
			return
		}
		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// Authorize lets through authenticated callers that belong to one of groups.
// It must run inside Authenticate.
func (m *AuthMiddleware) Authorize(groups ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				writeAuthError(w, "Acceso no autorizado")
				return
			}
			if len(groups) > 0 && !identity.InGroup(groups...) {
				m.logger.Debug().Str("sub", identity.Sub).Strs("required", groups).Msg("caller lacks group")
				writeJSONError(w, http.StatusForbidden, "Forbidden", "No tienes permisos para acceder a este recurso")
				return
			}
			next(w, r)
		}
	}
}

// BearerToken returns the raw token of the Authorization header
func BearerToken(r *http.Request) string {
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeAuthError(w http.ResponseWriter, message string) {
	writeJSONError(w, http.StatusUnauthorized, "Unauthorized", message)
}

func writeJSONError(w http.ResponseWriter, status int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   kind,
		"message": message,
	})
}
