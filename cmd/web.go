/*
 * Copyright 2025 Muhammad Imran Rafique
 * SPDX-License-Identifier: Apache-2.0
 */
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/flamego/csrf"
	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/muhammadimranrafique/copy-app/api"
	"github.com/muhammadimranrafique/copy-app/db"
	"github.com/muhammadimranrafique/copy-app/query"
	"github.com/muhammadimranrafique/copy-app/routes"
	"github.com/muhammadimranrafique/copy-app/static"
	"github.com/muhammadimranrafique/copy-app/templates"
)

const (
	sessionCookieName = "copyapp_session"
	sessionLifetime   = 7 * 24 * time.Hour
)

var CmdStart = &cli.Command{
	Name:    "start",
	Aliases: []string{"run"},
	Usage:   "Start the web server",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Value:   "3000",
			Sources: cli.EnvVars("PORT"),
			Usage:   "the web server port",
		},
		&cli.StringFlag{
			Name:    "api-base-url",
			Value:   api.DefaultBaseURL,
			Sources: cli.EnvVars("API_BASE_URL"),
			Usage:   "base URL of the business REST backend",
		},
		&cli.StringFlag{
			Name:    "database-url",
			Sources: cli.EnvVars("DATABASE_URL"),
			Usage:   "PostgreSQL connection string for sessions; in-memory sessions when empty",
		},
		&cli.StringFlag{
			Name:    "csrf-secret",
			Sources: cli.EnvVars("CSRF_SECRET"),
			Usage:   "secret used to sign CSRF tokens",
		},
		&cli.DurationFlag{
			Name:    "query-stale-time",
			Value:   query.DefaultStaleTime,
			Sources: cli.EnvVars("QUERY_STALE_TIME"),
			Usage:   "how long backend reads are served from cache",
		},
		&cli.IntFlag{
			Name:    "query-retry-count",
			Value:   query.DefaultRetryCount,
			Sources: cli.EnvVars("QUERY_RETRY_COUNT"),
			Usage:   "retries for failed backend reads (-1 disables retries)",
		},
		&cli.DurationFlag{
			Name:    "api-timeout",
			Value:   api.DefaultTimeout,
			Sources: cli.EnvVars("API_TIMEOUT"),
			Usage:   "timeout for a single backend call",
		},
		&cli.BoolFlag{
			Name:    "trace",
			Sources: cli.EnvVars("COPYAPP_TRACE"),
			Usage:   "write a span per backend call to stderr",
		},
		&cli.BoolFlag{
			Name:  "dev",
			Value: false,
			Usage: "enables development mode (templates from disk, generated CSRF secret)",
		},
	},
	Action: start,
}

// LoadDotEnv reads .env into the environment. It must run before the
// commands parse their flags so the env sources see the values. A missing
// file is not an error.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

type serverConfig struct {
	APIBaseURL      string
	APITimeout      time.Duration
	QueryStaleTime  time.Duration
	QueryRetryCount int
	CSRFSecret      string
	DatabaseSession bool
	Dev             bool
}

func start(ctx context.Context, cmd *cli.Command) (err error) {
	cfg := serverConfig{
		APIBaseURL:      cmd.String("api-base-url"),
		APITimeout:      cmd.Duration("api-timeout"),
		QueryStaleTime:  cmd.Duration("query-stale-time"),
		QueryRetryCount: int(cmd.Int("query-retry-count")),
		CSRFSecret:      cmd.String("csrf-secret"),
		Dev:             cmd.Bool("dev"),
	}
	if cfg.APIBaseURL == "" {
		return errAPIBaseURLRequired
	}
	if cfg.CSRFSecret == "" {
		if !cfg.Dev {
			return errCSRFSecretRequired
		}
		appLogger.Warn("CSRF_SECRET not set, using a random secret for development")
	}

	shutdownTracing, err := setupTracing(cmd.Bool("trace"), os.Stderr)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			appLogger.Warn("Failed to flush traces", "error", err)
		}
	}()

	if databaseURL := cmd.String("database-url"); databaseURL != "" {
		appLogger.Info("Connecting to session database")
		if err := db.Init(ctx, databaseURL); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		appLogger.Info("Syncing session schema")
		if err := db.SyncSchema(ctx); err != nil {
			return fmt.Errorf("failed to sync schema: %w", err)
		}
		cfg.DatabaseSession = true
	} else {
		appLogger.Warn("DATABASE_URL not set, sessions are kept in memory")
	}

	f, err := newServer(cfg)
	if err != nil {
		return err
	}

	port := cmd.String("port")
	appLogger.Info("Starting web server", "port", port, "api", cfg.APIBaseURL, "dev", cfg.Dev)

	srv := &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%s", port),
		Handler:           f,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// The event stream is long lived; the SSE handler manages its own lifetime.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
		ErrorLog:     requestStdLogger,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		appLogger.Info("Shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newServer builds the router with every middleware and route. It does not
// touch the database; cfg.DatabaseSession only selects the session store.
func newServer(cfg serverConfig) (*flamego.Flame, error) {
	client, err := api.New(api.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	svc := &routes.Services{
		API: client,
		Query: query.NewClient(query.Config{
			StaleTime:  cfg.QueryStaleTime,
			RetryCount: cfg.QueryRetryCount,
			Retryable:  api.IsRetryable,
		}),
		Events: routes.NewBroker(),
	}

	f := flamego.New()
	f.Use(flamego.Recovery())

	sessionOptions := session.Options{
		Cookie: session.CookieOptions{
			Name:     sessionCookieName,
			HTTPOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	if cfg.DatabaseSession {
		sessionOptions.Initer = db.PostgresSessionIniter()
		sessionOptions.Config = db.PostgresSessionConfig{Lifetime: sessionLifetime}
	} else {
		sessionOptions.Config = session.MemoryConfig{Lifetime: sessionLifetime}
	}
	f.Use(session.Sessioner(sessionOptions))

	f.Use(csrf.Csrfer(csrf.Options{Secret: cfg.CSRFSecret}))

	templateOptions := template.Options{FuncMaps: templateFuncMaps()}
	if cfg.Dev {
		templateOptions.Directory = "templates"
	} else {
		fs, err := template.EmbedFS(templates.Templates, ".", []string{".html"})
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		templateOptions.FileSystem = fs
	}
	f.Use(template.Templater(templateOptions))

	f.Use(flamego.Static(flamego.StaticOptions{
		FileSystem: http.FS(static.Static),
		Prefix:     "static",
	}))

	f.Map(svc.Events)
	f.Use(routes.RequestLogger)
	f.Use(routes.PrivateHeaders())
	f.Use(routes.SessionMetadataMiddleware())
	f.Use(routes.CSRFInjector())
	f.Use(routes.FlashInjector())
	f.Use(routes.BindBackend(svc))
	f.Use(routes.UserContextInjector())

	registerRoutes(f)

	return f, nil
}

func registerRoutes(f *flamego.Flame) {
	// Public routes (no authentication required)
	f.Get("/login", routes.LoginForm)
	f.Post("/login", csrf.Validate, routes.Login)
	f.Get("/logout", routes.Logout)
	f.Get("/events", routes.Events)

	// Protected routes (require authentication)
	f.Group("", func() {
		f.Get("/", routes.Dashboard)

		f.Get("/leaders", routes.Leaders)
		f.Post("/leaders", csrf.Validate, routes.CreateLeader)
		f.Get("/leaders/{id}/edit", routes.EditLeaderForm)
		f.Post("/leaders/{id}/edit", csrf.Validate, routes.UpdateLeader)
		f.Post("/leaders/{id}/delete", csrf.Validate, routes.DeleteLeader)
		f.Get("/leaders/{id}/vcard", routes.LeaderVCard)
		f.Get("/leaders/{id}/payments/export", routes.ExportLeaderPayments)

		f.Get("/products", routes.Products)
		f.Post("/products", csrf.Validate, routes.CreateProduct)

		f.Get("/orders", routes.Orders)
		f.Post("/orders", csrf.Validate, routes.CreateOrder)
		f.Get("/orders/{id}/edit", routes.EditOrderForm)
		f.Post("/orders/{id}/edit", csrf.Validate, routes.UpdateOrder)
		f.Get("/orders/{id}/delete", routes.DeleteOrderConfirm)
		f.Post("/orders/{id}/delete", csrf.Validate, routes.DeleteOrder)
		f.Get("/orders/{id}/invoice", routes.OrderInvoice)

		f.Get("/payments", routes.Payments)
		f.Post("/payments", csrf.Validate, routes.CreatePayment)
		f.Get("/payments/{id}/edit", routes.EditPaymentForm)
		f.Post("/payments/{id}/edit", csrf.Validate, routes.UpdatePayment)
		f.Post("/payments/{id}/delete", csrf.Validate, routes.DeletePayment)
		f.Get("/payments/{id}/receipt", routes.PaymentReceiptPage)
		f.Get("/payments/{id}/receipt.pdf", routes.PaymentReceiptPDF)

		f.Get("/expenses", routes.Expenses)
		f.Post("/expenses", csrf.Validate, routes.CreateExpense)
		f.Get("/expenses/{id}/edit", routes.EditExpenseForm)
		f.Post("/expenses/{id}/edit", csrf.Validate, routes.UpdateExpense)
		f.Post("/expenses/{id}/delete", csrf.Validate, routes.DeleteExpense)

		f.Get("/ledger", routes.LedgerPage)
		f.Get("/ledger/export", routes.LedgerExport)

		f.Get("/settings", routes.Settings)
		f.Post("/settings", csrf.Validate, routes.UpdateSettings)
		f.Post("/settings/devices/sign-out", csrf.Validate, routes.SignOutOtherDevices)
	}, routes.RequireAuth)

	f.NotFound(routes.NotFound)
}
