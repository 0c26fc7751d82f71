package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/mora-fusion/server/internal/api/handlers"
	"github.com/mora-fusion/server/internal/api/middleware"
	"github.com/mora-fusion/server/internal/audit"
	"github.com/mora-fusion/server/internal/auth"
	"github.com/mora-fusion/server/internal/config"
	"github.com/mora-fusion/server/internal/domain/accounts"
	"github.com/mora-fusion/server/internal/domain/events"
	"github.com/mora-fusion/server/internal/email"
	"github.com/mora-fusion/server/internal/metrics"
	"github.com/mora-fusion/server/internal/storage/postgres"
)

// Deps carries the storage backends the router wires into services.
// Tests substitute in-memory implementations.
type Deps struct {
	Pool     *pgxpool.Pool
	Accounts accounts.Store
	Audit    audit.Store
	Events   events.Repository
}

func NewRouter(cfg config.Config, logger zerolog.Logger) http.Handler {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return http.NewServeMux()
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		logger.Error().Err(err).Msg("repository init failed")
		return http.NewServeMux()
	}

	return NewRouterWithDeps(cfg, logger, Deps{
		Pool:     pool,
		Accounts: repo.Accounts(),
		Audit:    repo.Audit(),
		Events:   repo.Events(),
	})
}

func NewRouterWithDeps(cfg config.Config, logger zerolog.Logger, deps Deps) http.Handler {
	env := cfg.Environment

	recorder := audit.NewRecorder(deps.Audit, logger)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Server.BaseURL)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	mailer := email.NewService(cfg.Email, logger)

	accountsService := accounts.NewService(deps.Accounts, hasher, tokens, mailer, recorder, accounts.Config{
		LockoutThreshold: cfg.Auth.LockoutThreshold,
		LockoutDuration:  cfg.Auth.LockoutDuration,
		MFAExpiry:        cfg.Auth.MFAExpiry,
	}, logger)
	eventsService := events.NewService(deps.Events, recorder, logger)

	authHandler := handlers.NewAuthHandler(accountsService, env)
	usersHandler := handlers.NewUsersHandler(accountsService, env)
	eventsHandler := handlers.NewEventsHandler(eventsService, env)
	auditHandler := handlers.NewAuditHandler(recorder, env)

	withToken := middleware.TokenAuth(tokens, env)
	adminOnly := middleware.RequireRole(recorder, env, auth.RoleAdmin)
	organizerOrAdmin := middleware.RequireRole(recorder, env, auth.RoleOrganizer, auth.RoleAdmin)
	ownerOnly := middleware.RequireOwnership(deps.Events, recorder, env)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", handlers.Readyz(deps.Pool))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.Handle("POST /api/v1/auth/login", http.HandlerFunc(authHandler.Login))
	mux.Handle("POST /api/v1/auth/verify-mfa", http.HandlerFunc(authHandler.VerifyMFA))

	mux.Handle("POST /api/v1/users", http.HandlerFunc(usersHandler.Register))
	mux.Handle("POST /api/v1/users/me/password", withToken(http.HandlerFunc(usersHandler.ChangePassword)))

	// The gates run outside-in: token, then role, then ownership.
	mux.Handle("GET /api/v1/events", http.HandlerFunc(eventsHandler.List))
	mux.Handle("GET /api/v1/events/{id}", http.HandlerFunc(eventsHandler.Get))
	mux.Handle("POST /api/v1/events", withToken(organizerOrAdmin(http.HandlerFunc(eventsHandler.Create))))
	mux.Handle("PUT /api/v1/events/{id}", withToken(organizerOrAdmin(ownerOnly(http.HandlerFunc(eventsHandler.Update)))))
	mux.Handle("DELETE /api/v1/events/{id}", withToken(organizerOrAdmin(ownerOnly(http.HandlerFunc(eventsHandler.Delete)))))

	mux.Handle("PUT /api/v1/admin/users/{id}/status", withToken(adminOnly(http.HandlerFunc(usersHandler.UpdateStatus))))
	mux.Handle("GET /api/v1/admin/audit-logs", withToken(adminOnly(http.HandlerFunc(auditHandler.List))))

	var handler http.Handler = mux
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}
