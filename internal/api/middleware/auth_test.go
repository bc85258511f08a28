package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/tests/mocks"
)

func echoSub(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(identity.Sub))
}

func withToken(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthenticate(t *testing.T) {
	verifier := mocks.NewMockTokenVerifier(t)
	auth := middleware.NewAuthMiddleware(verifier, zerolog.Nop())

	verifier.On("Verify", mock.Anything, "good").Return(&entities.Identity{Sub: "sub-1"}, nil).Once()
	verifier.On("Verify", mock.Anything, "expired").Return(nil, apperrors.NewUnauthorizedError("token expired")).Once()

	rec := httptest.NewRecorder()
	auth.Authenticate(echoSub)(rec, withToken("good"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-1", rec.Body.String())

	rec = httptest.NewRecorder()
	auth.Authenticate(echoSub)(rec, withToken("expired"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")

	rec = httptest.NewRecorder()
	auth.Authenticate(echoSub)(rec, withToken(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token de acceso requerido")
}

func TestOptionalAuthenticate(t *testing.T) {
	verifier := mocks.NewMockTokenVerifier(t)
	auth := middleware.NewAuthMiddleware(verifier, zerolog.Nop())

	verifier.On("Verify", mock.Anything, "forged").Return(nil, apperrors.NewUnauthorizedError("invalid token signature")).Once()

	rec := httptest.NewRecorder()
	auth.OptionalAuthenticate(echoSub)(rec, withToken("forged"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestAuthorize(t *testing.T) {
	verifier := mocks.NewMockTokenVerifier(t)
	auth := middleware.NewAuthMiddleware(verifier, zerolog.Nop())
	adminOnly := auth.Authenticate(auth.Authorize("admin")(echoSub))

	verifier.On("Verify", mock.Anything, "admin").
		Return(&entities.Identity{Sub: "sub-admin", Groups: []string{"Admin"}}, nil).Once()
	verifier.On("Verify", mock.Anything, "tenant").
		Return(&entities.Identity{Sub: "sub-tenant", Groups: []string{"inquilinos"}}, nil).Once()

	rec := httptest.NewRecorder()
	adminOnly(rec, withToken("admin"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-admin", rec.Body.String())

	rec = httptest.NewRecorder()
	adminOnly(rec, withToken("tenant"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "No tienes permisos para acceder a este recurso")

	rec = httptest.NewRecorder()
	auth.Authorize("admin")(echoSub)(rec, withToken(""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Acceso no autorizado")
}
