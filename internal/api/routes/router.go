package routes

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/observatorio/rentpredict/backend/internal/api/handlers"
	"github.com/observatorio/rentpredict/backend/internal/api/middleware"
	"github.com/observatorio/rentpredict/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	predictionHandler   *handlers.PredictionHandler
	historyHandler      *handlers.PredictionHistoryHandler
	marketTrendsHandler *handlers.MarketTrendsHandler
	userHandler         *handlers.UserHandler

	adminGroup      string
	auth            *middleware.AuthMiddleware
	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
	logger          zerolog.Logger
}

// RouterOptions carries the cross-cutting pieces of the router. The /users
// routes are mounted only when Users is set.
type RouterOptions struct {
	Users          *handlers.UserHandler
	AdminGroup     string
	Auth           *middleware.AuthMiddleware
	Cache          *middleware.CacheMiddleware
	Metrics        *observability.Metrics
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// NewRouter creates a new router
func NewRouter(
	predictionHandler *handlers.PredictionHandler,
	historyHandler *handlers.PredictionHistoryHandler,
	marketTrendsHandler *handlers.MarketTrendsHandler,
	opts RouterOptions,
) *Router {
	auth := opts.Auth
	if auth == nil {
		auth = middleware.NewAuthMiddleware(nil, opts.Logger)
	}
	adminGroup := opts.AdminGroup
	if adminGroup == "" {
		adminGroup = "admin"
	}
	return &Router{
		mux:                 http.NewServeMux(),
		predictionHandler:   predictionHandler,
		historyHandler:      historyHandler,
		marketTrendsHandler: marketTrendsHandler,
		userHandler:         opts.Users,
		adminGroup:          adminGroup,
		auth:                auth,
		cacheMiddleware:     opts.Cache,
		metrics:             opts.Metrics,
		allowedOrigins:      opts.AllowedOrigins,
		logger:              opts.Logger,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Prediction is open to anonymous callers; a valid token attaches history
	r.mux.HandleFunc("POST /rent/predict", r.auth.OptionalAuthenticate(r.predictionHandler.Predict))

	// History endpoints
	if r.historyHandler != nil {
		h := r.historyHandler
		r.mux.HandleFunc("GET /predictions", r.auth.Authenticate(h.List))
		r.mux.HandleFunc("GET /predictions/recent", r.auth.Authenticate(h.Recent))
		r.mux.HandleFunc("GET /predictions/statistics", r.auth.Authenticate(h.Statistics))
		r.mux.HandleFunc("GET /predictions/favorites", r.auth.Authenticate(h.Favorites))
		r.mux.HandleFunc("GET /predictions/{id}", r.auth.Authenticate(h.Get))
		r.mux.HandleFunc("POST /predictions/{id}/favorite", r.auth.Authenticate(h.ToggleFavorite))
		r.mux.HandleFunc("PUT /predictions/{id}/notes", r.auth.Authenticate(h.UpdateNotes))
		r.mux.HandleFunc("DELETE /predictions/{id}", r.auth.Authenticate(h.Delete))
	}

	// Accounts
	if r.userHandler != nil {
		u := r.userHandler
		r.mux.HandleFunc("POST /users/register", u.Register)
		r.mux.HandleFunc("POST /users/confirm", u.ConfirmSignUp)
		r.mux.HandleFunc("POST /users/login", u.Login)
		r.mux.HandleFunc("POST /users/forgot-password", u.ForgotPassword)
		r.mux.HandleFunc("POST /users/confirm-forgot-password", u.ConfirmForgotPassword)
		r.mux.HandleFunc("POST /users/logout", u.Logout)

		r.mux.HandleFunc("GET /users/profile", r.auth.Authenticate(u.GetProfile))
		r.mux.HandleFunc("PUT /users/profile", r.auth.Authenticate(u.UpdateProfile))
		r.mux.HandleFunc("POST /users/change-password", r.auth.Authenticate(u.ChangePassword))
		r.mux.HandleFunc("GET /users/validate-token", r.auth.Authenticate(u.ValidateToken))

		admin := func(h http.HandlerFunc) http.HandlerFunc {
			return r.auth.Authenticate(r.auth.Authorize(r.adminGroup)(h))
		}
		r.mux.HandleFunc("GET /users", admin(u.ListUsers))
		r.mux.HandleFunc("GET /users/{username}", admin(u.GetUser))
		r.mux.HandleFunc("PUT /users/{username}", admin(u.UpdateUser))
		r.mux.HandleFunc("DELETE /users/{username}", admin(u.DisableUser))
	}

	// Market trends
	r.mux.HandleFunc("GET /market-trends/{barrio}", r.marketTrendsHandler.GetTrends)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(r.logger)(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
