package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/kommerce/tradegate/internal/auth/http"
	"github.com/kommerce/tradegate/internal/auth/ledger"
	"github.com/kommerce/tradegate/internal/auth/mailer"
	"github.com/kommerce/tradegate/internal/auth/obs"
	"github.com/kommerce/tradegate/internal/auth/revocation"
	"github.com/kommerce/tradegate/internal/auth/service"
	"github.com/kommerce/tradegate/internal/auth/store"
	"github.com/kommerce/tradegate/internal/auth/store/drivers/sqlite"
	"github.com/kommerce/tradegate/internal/auth/tenant"
	"github.com/kommerce/tradegate/pkg/cryptox"
	"github.com/kommerce/tradegate/pkg/jwtx"
	"github.com/kommerce/tradegate/pkg/slogx"

	"github.com/go-playground/validator/v10"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the auth gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	tenants *tenant.Table
	revoked *revocation.Store

	credentialService   *service.CredentialService
	totpService         *service.TOTPService
	tokenService        *service.TokenService
	passwordService     *service.PasswordService
	signupService       *service.SignupService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "tradegate-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	table, err := tenant.NewTable(cfg.BackendURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to build tenant table: %w", err)
	}
	app.tenants = table

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	signer, verifier, err := InitSessionKeys(app.cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session keys: %w", err)
	}

	app.revoked = revocation.NewStore(cfg.RevocationSweepInterval)
	app.initServices(signer, verifier)
	app.initHTTP()

	obs.Init()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.revoked.Start()
	app.housekeepingService.Start()

	app.logger.Info("auth gateway starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.revoked.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth gateway stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices(signer *jwtx.Signer, verifier *jwtx.Verifier) {
	app.credentialService = &service.CredentialService{Store: app.db}

	app.totpService = &service.TOTPService{
		Store:  app.db,
		Issuer: app.cfg.Issuer,
	}

	app.tokenService = &service.TokenService{
		Signer:   signer,
		Verifier: verifier,
		Revoked:  app.revoked,
		Network:  app.cfg.Network,
		TokenTTL: app.cfg.TokenTTL,
	}

	app.passwordService = &service.PasswordService{
		Store:       app.db,
		Credentials: app.credentialService,
	}

	app.signupService = &service.SignupService{
		Store:    app.db,
		Mailer:   &mailer.LogMailer{Logger: app.logger},
		Recorder: &ledger.LogRecorder{Logger: app.logger},
		Network:  app.cfg.Network,
		Validate: validator.New(),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.AccountRequestTTL,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tenants,
		app.tokenService,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Credentials = app.credentialService
	router.TOTP = app.totpService
	router.Passwords = app.passwordService
	router.Signups = app.signupService
	router.AuthBaseURL = app.cfg.AuthServerURL
	router.PreAuthTTL = app.cfg.PreAuthTTL
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
