package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/primadev/licensehub/internal/auth"
	"github.com/primadev/licensehub/internal/catalog"
	catalogStore "github.com/primadev/licensehub/internal/catalog/store"
	"github.com/primadev/licensehub/internal/config"
	"github.com/primadev/licensehub/internal/database"
	apiHttp "github.com/primadev/licensehub/internal/http"
	"github.com/primadev/licensehub/internal/http/health"
	invoiceHandler "github.com/primadev/licensehub/internal/http/invoice"
	paymentHandler "github.com/primadev/licensehub/internal/http/payment"
	storeHandler "github.com/primadev/licensehub/internal/http/store"
	txHandler "github.com/primadev/licensehub/internal/http/transaction"
	"github.com/primadev/licensehub/internal/idempotency"
	"github.com/primadev/licensehub/internal/invoice"
	licenseStore "github.com/primadev/licensehub/internal/license/store"
	"github.com/primadev/licensehub/internal/notify"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/reconcile"
	reconcileStore "github.com/primadev/licensehub/internal/reconcile/store"
	"github.com/primadev/licensehub/internal/transaction"
	txStore "github.com/primadev/licensehub/internal/transaction/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.ConnectionString(), database.Options{
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		ConnLifetime: cfg.DB.ConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	seed, err := catalog.LoadSeed(cfg.Catalog.SeedFile)
	if err != nil {
		return fmt.Errorf("failed to load catalog seed: %w", err)
	}

	location, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, using UTC", "timezone", cfg.App.Timezone, "error", err)
		location = time.UTC
	}

	publicURL := strings.TrimRight(cfg.App.PublicBaseURL, "/")

	gateway := payment.New(payment.Options{
		ServerKey:    cfg.Midtrans.ServerKey,
		IsProduction: cfg.Midtrans.IsProduction,
		CoreBaseURL:  cfg.Midtrans.CoreBaseURL,
		SnapBaseURL:  cfg.Midtrans.SnapBaseURL,
		Timeout:      cfg.Midtrans.Timeout,
	})

	mailer := notify.NewEmailJS(notify.Options{
		ServiceID:      cfg.EmailJS.ServiceID,
		TemplateID:     cfg.EmailJS.TemplateID,
		PublicKey:      cfg.EmailJS.PublicKey,
		PrivateKey:     cfg.EmailJS.PrivateKey,
		Endpoint:       cfg.EmailJS.Endpoint,
		Brand:          cfg.App.Name,
		InvoiceBaseURL: publicURL + "/api/v1/invoices",
		Logger:         logger,
	})
	if !mailer.Enabled() {
		logger.Warn("emailjs is not configured, license emails are disabled")
	}

	var (
		licenses = licenseStore.New(db)

		catalogService     = catalog.NewService(catalogStore.New(db), seed, logger)
		transactionService = transaction.NewService(txStore.New(db), gateway, catalogService, licenses, publicURL)
		engine             = reconcile.NewEngine(reconcileStore.New(db), mailer, logger)
		verifier           = reconcile.NewVerifier(gateway, engine)
	)

	var (
		storeH       = storeHandler.NewHandler(transactionService, catalogService, verifier, cfg.Midtrans.ClientKey, cfg.Midtrans.IsProduction)
		paymentH     = paymentHandler.NewHandler(gateway, engine, verifier, transactionService)
		invoiceH     = invoiceHandler.NewHandler(licenses, invoice.NewRenderer(invoice.Options{Location: location}))
		transactionH = txHandler.NewHandler(transactionService, verifier)
	)

	opts := apiHttp.Options{
		AllowedOrigins: cfg.App.AllowedOrigins,
		Logger:         logger,
	}

	if cfg.Admin.JWTSecret != "" {
		adminVerifier, err := auth.NewVerifier(cfg.Admin.JWTSecret, cfg.Admin.Issuer)
		if err != nil {
			return fmt.Errorf("failed to configure admin auth: %w", err)
		}

		opts.Admin = adminVerifier
	} else {
		logger.Warn("ADMIN_JWT_SECRET is not set, admin api is disabled")
	}

	if cfg.Redis.URL != "" {
		client, err := idempotency.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer client.Close()

		opts.Idempotency = idempotency.NewRedisStore(client, cfg.Redis.IdempotencyTTL)
	}

	router := apiHttp.New(apiHttp.Handlers{
		Health:       health.Handler(db),
		Store:        storeH,
		Payments:     paymentH,
		Invoices:     invoiceH,
		Transactions: transactionH,
	}, opts)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("starting server", "addr", srv.Addr, "production", cfg.Midtrans.IsProduction)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
