package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/primadev/licensehub/internal/http/invoice"
	appmw "github.com/primadev/licensehub/internal/http/middleware"
	"github.com/primadev/licensehub/internal/http/payment"
	"github.com/primadev/licensehub/internal/http/store"
	"github.com/primadev/licensehub/internal/http/transaction"
)

type Handlers struct {
	Health       http.HandlerFunc
	Store        *store.Handler
	Payments     *payment.Handler
	Invoices     *invoice.Handler
	Transactions *transaction.Handler
}

type Options struct {
	AllowedOrigins []string
	// Idempotency enables Idempotency-Key replay on order creation when set.
	Idempotency appmw.IdempotencyStore
	Admin       appmw.TokenVerifier
	Logger      *slog.Logger
}

func New(h Handlers, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders: []string{"X-Idempotent-Replayed"},
		MaxAge:         300,
	}))

	router.Get("/health", h.Health)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/store", func(r chi.Router) {
			if opts.Idempotency != nil {
				r.Use(appmw.Idempotency(opts.Idempotency, opts.Logger))
			}

			h.Store.Routes(r)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.Payments.Routes(r)
		})

		r.Route("/webhooks", h.Payments.WebhookRoutes)

		r.Route("/invoices", h.Invoices.Routes)

		r.Route("/admin", func(r chi.Router) {
			if opts.Admin == nil {
				r.HandleFunc("/*", func(w http.ResponseWriter, _ *http.Request) {
					http.Error(w, "admin api disabled", http.StatusNotFound)
				})

				return
			}

			r.Use(appmw.RequireAdmin(opts.Admin))
			r.Route("/transactions", h.Transactions.Routes)
		})
	})

	return router
}
