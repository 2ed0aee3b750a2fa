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

	httpapi "github.com/harbourlane/foyer/internal/http"
	"github.com/harbourlane/foyer/internal/notify"
	"github.com/harbourlane/foyer/internal/service"
	"github.com/harbourlane/foyer/internal/store"
	"github.com/harbourlane/foyer/internal/store/drivers/sqlite"
	"github.com/harbourlane/foyer/pkg/cryptox"
	"github.com/harbourlane/foyer/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	mailer *notify.Mailer

	audit               *service.AuditRecorder
	authService         *service.AuthService
	accountService      *service.AccountService
	sessionService      *service.SessionService
	guestCodeService    *service.GuestCodeService
	adminService        *service.AdminService
	twoFactorService    *service.TwoFactorService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "foyer",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("foyer starting", "port", app.cfg.Port, "version", BuildVersion)

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
	app.logger.Info("shutting down foyer...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("foyer stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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
func (app *Application) initServices() {
	app.mailer = notify.NewMailer(notify.NewSender(notify.Config{
		Backend:  app.cfg.MailBackend,
		SMTPHost: app.cfg.SMTPHost,
		SMTPPort: app.cfg.SMTPPort,
		SMTPUser: app.cfg.SMTPUser,
		SMTPPass: app.cfg.SMTPPass,
		From:     app.cfg.MailFrom,
	}), app.cfg.BaseURL)

	app.audit = &service.AuditRecorder{Store: app.db}

	app.authService = &service.AuthService{
		Store:         app.db,
		Mailer:        app.mailer,
		Audit:         app.audit,
		SessionSecret: []byte(app.cfg.SessionSecret),
		SessionTTL:    app.cfg.SessionTTL,
	}
	app.accountService = &service.AccountService{
		Store:  app.db,
		Mailer: app.mailer,
		Audit:  app.audit,
	}
	app.sessionService = &service.SessionService{
		Store: app.db,
		Audit: app.audit,
	}
	app.guestCodeService = &service.GuestCodeService{
		Store: app.db,
		Audit: app.audit,
		Auth:  app.authService,
		TTL:   app.cfg.CodeTTL,
	}
	app.adminService = &service.AdminService{
		Store: app.db,
		Audit: app.audit,
	}
	app.twoFactorService = &service.TwoFactorService{
		Store:  app.db,
		Audit:  app.audit,
		Issuer: app.cfg.Issuer,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.Env == "prod",
	)

	router.AuthService = app.authService
	router.AccountService = app.accountService
	router.SessionService = app.sessionService
	router.GuestCodeService = app.guestCodeService
	router.AdminService = app.adminService
	router.TwoFactorService = app.twoFactorService
	router.Audit = app.audit
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
