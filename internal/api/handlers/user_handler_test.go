package handlers_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/observatorio/rentpredict/backend/internal/api/handlers"
	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/application/services"
	"github.com/observatorio/rentpredict/backend/internal/domain/entities"
	apperrors "github.com/observatorio/rentpredict/backend/pkg/errors"
	"github.com/observatorio/rentpredict/backend/tests/mocks"
)

func newUserHandler(t *testing.T) (*handlers.UserHandler, *mocks.MockUserDirectory) {
	directory := mocks.NewMockUserDirectory(t)
	return handlers.NewUserHandler(services.NewUserService(directory, zerolog.Nop()), zerolog.Nop()), directory
}

func asUser(req *http.Request, identity *entities.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

func TestUserHandler_Register(t *testing.T) {
	handler, directory := newUserHandler(t)

	directory.On("SignUp", mock.Anything, mock.Anything).
		Return(&entities.SignUpResult{UserSub: "sub-1", UserConfirmed: false}, nil).Once()

	body := `{"firstName":"Ana","lastName":"García","email":"ana@example.com","password":"S3cret!pass","userType":"Inquilino"}`
	w := httptest.NewRecorder()
	handler.Register(w, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, true, got["success"])
	assert.Equal(t, "sub-1", got["data"].(map[string]interface{})["userSub"])
}

func TestUserHandler_RegisterRejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		poolErr    error
		wantStatus int
		wantMsg    string
	}{
		{"malformed json", `{"email":`, nil, http.StatusBadRequest, "Cuerpo de la solicitud inválido"},
		{"missing fields", `{"email":"ana@example.com"}`, nil, http.StatusBadRequest,
			"Todos los campos son obligatorios: firstName, lastName, email, password"},
		{"duplicate email", `{"firstName":"A","lastName":"B","email":"ana@example.com","password":"x"}`,
			apperrors.NewConflictError("Ya existe un usuario con este email"), http.StatusConflict, "Ya existe un usuario con este email"},
		{"pool outage", `{"firstName":"A","lastName":"B","email":"ana@example.com","password":"x"}`,
			apperrors.NewExternalError("Error al procesar la solicitud", errors.New("503")), http.StatusInternalServerError, "Error interno del servidor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, directory := newUserHandler(t)
			if tt.poolErr != nil {
				directory.On("SignUp", mock.Anything, mock.Anything).Return(nil, tt.poolErr).Once()
			}

			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decodeBody(t, w)
			assert.Equal(t, false, got["success"])
			assert.Equal(t, tt.wantMsg, got["message"])
		})
	}
}

func TestUserHandler_LoginFailureIsUnauthorized(t *testing.T) {
	handler, directory := newUserHandler(t)

	directory.On("Login", mock.Anything, "ana@example.com", "wrong").
		Return(nil, apperrors.NewUnauthorizedError("Credenciales inválidas")).Once()

	w := httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"email":"ana@example.com","password":"wrong"}`)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Credenciales inválidas", decodeBody(t, w)["message"])
}

func TestUserHandler_LoginReturnsTokens(t *testing.T) {
	handler, directory := newUserHandler(t)

	directory.On("Login", mock.Anything, "ana@example.com", "pw").
		Return(&entities.AuthTokens{AccessToken: "a", IDToken: "i", RefreshToken: "r", ExpiresIn: 3600}, nil).Once()

	w := httptest.NewRecorder()
	handler.Login(w, httptest.NewRequest(http.MethodPost, "/users/login",
		strings.NewReader(`{"email":"ana@example.com","password":"pw"}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, "Login exitoso", got["message"])
	assert.Equal(t, "a", got["accessToken"])
	assert.Equal(t, float64(3600), got["expiresIn"])
}

func TestUserHandler_ValidateToken(t *testing.T) {
	handler, directory := newUserHandler(t)
	identity := &entities.Identity{Sub: "sub-1", Username: "ana", Email: "ana@example.com", Groups: []string{"admin"}}

	directory.On("GetUser", mock.Anything, "ana").Return(&entities.UserAccount{
		Username:   "ana",
		Attributes: map[string]string{"given_name": "Ana", "email_verified": "true"},
	}, nil).Once()

	w := httptest.NewRecorder()
	handler.ValidateToken(w, asUser(httptest.NewRequest(http.MethodGet, "/users/validate-token", nil), identity))

	assert.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, "Token válido", got["message"])
	user := got["user"].(map[string]interface{})
	assert.Equal(t, "sub-1", user["id"])
	assert.Equal(t, "Ana", user["firstName"])
	assert.Equal(t, true, user["emailVerified"])
	assert.Equal(t, []interface{}{"admin"}, user["groups"])
}

func TestUserHandler_ProfileLookupFailure(t *testing.T) {
	handler, directory := newUserHandler(t)

	directory.On("GetUser", mock.Anything, "sub-1").Return(nil, errors.New("throttled")).Once()

	w := httptest.NewRecorder()
	handler.GetProfile(w, asUser(httptest.NewRequest(http.MethodGet, "/users/profile", nil), &entities.Identity{Sub: "sub-1"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Error al obtener información del usuario", decodeBody(t, w)["message"])

	w = httptest.NewRecorder()
	handler.GetProfile(w, httptest.NewRequest(http.MethodGet, "/users/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserHandler_ChangePasswordUsesBearerToken(t *testing.T) {
	handler, directory := newUserHandler(t)

	directory.On("ChangePassword", mock.Anything, "access-token", "old", "new").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/users/change-password", strings.NewReader(`{"oldPassword":"old","newPassword":"new"}`))
	req.Header.Set("Authorization", "Bearer access-token")
	w := httptest.NewRecorder()
	handler.ChangePassword(w, asUser(req, &entities.Identity{Sub: "sub-1"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Contraseña actualizada exitosamente", decodeBody(t, w)["message"])
}

func TestUserHandler_AdminRoutes(t *testing.T) {
	handler, directory := newUserHandler(t)
	admin := &entities.Identity{Sub: "sub-admin", Username: "root", Groups: []string{"admin"}}

	directory.On("ListUsers", mock.Anything, int32(60), "").
		Return(&entities.UserPage{Users: []*entities.UserAccount{{Username: "ana"}}}, nil).Once()
	directory.On("GetUser", mock.Anything, "ghost").
		Return(nil, apperrors.NewNotFoundError("Usuario no encontrado")).Once()
	directory.On("DisableUser", mock.Anything, "ana").Return(nil).Once()

	w := httptest.NewRecorder()
	handler.ListUsers(w, httptest.NewRequest(http.MethodGet, "/users", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, float64(1), got["total"])
	assert.Equal(t, false, got["hasMore"])

	w = serve("GET /users/{username}", handler.GetUser, httptest.NewRequest(http.MethodGet, "/users/ghost", nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Usuario no encontrado", decodeBody(t, w)["message"])

	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /users/{username}", handler.DisableUser)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodDelete, "/users/ana", nil), admin))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, asUser(httptest.NewRequest(http.MethodDelete, "/users/root", nil), admin))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No puedes deshabilitar tu propia cuenta", decodeBody(t, w)["message"])
}
