package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ipede/authorization-server/internal/application"
	"github.com/ipede/authorization-server/internal/infrastructure/config"
	"github.com/ipede/authorization-server/internal/infrastructure/database"
	"github.com/ipede/authorization-server/internal/infrastructure/jwt"
	"github.com/ipede/authorization-server/internal/infrastructure/repository"
	"github.com/ipede/authorization-server/internal/interfaces/http/handlers"
	"github.com/ipede/authorization-server/internal/interfaces/http/middleware/auth"
	"github.com/ipede/authorization-server/internal/interfaces/http/middleware/ratelimit"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

type Router struct {
	router  *chi.Mux
	db      *database.Postgres
	sweeper *application.Sweeper
}

func NewRouter(
	db *database.Postgres,
	cfg *config.Config,
	logger *zap.Logger,
) (*Router, error) {
	strategy, err := jwt.NewCompositeStrategy(cfg, logger)
	if err != nil {
		return nil, err
	}
	jwtService := jwt.NewJWTService(strategy, cfg, logger)
	authMiddleware := auth.NewAuthMiddleware(jwtService, logger)

	clientRepo := repository.NewClientRepository(db, logger)
	codeRepo := repository.NewCodeRepository(db, logger)
	requestRepo := repository.NewAuthorizationRequestRepository(db, logger)
	consentRepo := repository.NewConsentRepository(db, logger)
	tokenRepo := repository.NewTokenRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)

	clientService := application.NewClientService(clientRepo, logger)
	authorizeService := application.NewAuthorizeService(clientRepo, requestRepo, codeRepo, consentRepo, logger)
	consentService := application.NewConsentService(authorizeService, requestRepo, clientRepo, consentRepo, logger)
	tokenService := application.NewTokenService(clientService, codeRepo, tokenRepo, userRepo, jwtService, cfg.RefreshTokenDuration, logger)
	oidcService := application.NewOIDCService(userRepo, cfg.Issuer, logger)
	sweeper := application.NewSweeper(codeRepo, requestRepo, tokenRepo, 5*time.Minute, logger)

	authorizeHandler := handlers.NewAuthorizeHandler(authorizeService, authMiddleware, cfg.LoginURL, cfg.ConsentURL, logger)
	tokenHandler := handlers.NewTokenHandler(tokenService, logger)
	oidcHandler := handlers.NewOIDCHandler(oidcService, jwtService, logger)
	consentHandler := handlers.NewConsentHandler(consentService, authMiddleware, logger)
	clientHandler := handlers.NewClientHandler(clientService, logger)

	router := createRouter()

	rateLimiter := ratelimit.NewRateLimiter(100, 200, 3*time.Minute)
	router.Use(rateLimiter.Middleware)

	// Health check endpoints
	router.Group(func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})

		r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := db.Ping(); err != nil {
				logger.Error("Database health check failed", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("Database connection failed"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Ready"))
		})

		r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Alive"))
		})
	})

	// Swagger UI
	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
		httpSwagger.DeepLinking(true),
		httpSwagger.PersistAuthorization(true),
	))

	router.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "docs/swagger.json")
	})

	// Discovery metadata
	router.Group(func(r chi.Router) {
		r.Get("/.well-known/openid-configuration", oidcHandler.GetOpenIDConfigurationHandler)
		r.Get("/.well-known/jwks.json", oidcHandler.GetJWKSHandler)
	})

	// OAuth protocol surface
	router.Route("/oauth", func(r chi.Router) {
		r.Get("/authorize", authorizeHandler.AuthorizeHandler)
		r.Get("/authorize/resume", authorizeHandler.ResumeHandler)
		r.Post("/token", tokenHandler.TokenHandler)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator)
			r.Get("/userinfo", oidcHandler.GetUserInfoHandler)
		})
	})

	// Internal API consumed by the login/consent pages and admins
	router.Route("/api/oauth", func(r chi.Router) {
		// Consent routes authenticate through the session cookie inside the
		// handler, not the Bearer middleware
		r.Get("/consent", consentHandler.GetConsentHandler)
		r.Post("/consent", consentHandler.DecideConsentHandler)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticator)
			r.Use(authMiddleware.RequireRole("ADMIN"))
			r.Post("/clients", clientHandler.CreateClientHandler)
			r.Get("/clients", clientHandler.ListClientsHandler)
			r.Get("/clients/{id}", clientHandler.GetClientHandler)
			r.Post("/clients/{id}/rotate-secret", clientHandler.RotateSecretHandler)
			r.Delete("/clients/{id}", clientHandler.DeleteClientHandler)
		})
	})

	return &Router{
		router:  router,
		db:      db,
		sweeper: sweeper,
	}, nil
}

func createRouter() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))
	return router
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}

// Sweeper exposes the expired-record sweeper for the main loop to run
func (r *Router) Sweeper() *application.Sweeper {
	return r.sweeper
}
