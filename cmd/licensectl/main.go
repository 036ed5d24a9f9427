package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/primadev/licensehub/internal/auth"
	"github.com/primadev/licensehub/internal/catalog"
	catalogStore "github.com/primadev/licensehub/internal/catalog/store"
	"github.com/primadev/licensehub/internal/config"
	"github.com/primadev/licensehub/internal/database"
	"github.com/primadev/licensehub/internal/notify"
	"github.com/primadev/licensehub/internal/payment"
	"github.com/primadev/licensehub/internal/reconcile"
	reconcileStore "github.com/primadev/licensehub/internal/reconcile/store"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "licensectl",
		Short:         "Operator tooling for the license backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(os.Stderr, "warning: loading .env:", err)
			}
		},
	}

	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func tokenCmd() *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Mint an admin API bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			v, err := auth.NewVerifier(cfg.Admin.JWTSecret, cfg.Admin.Issuer)
			if err != nil {
				return err
			}

			token, err := v.Sign(args[0], ttl, time.Now())
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)

			return nil
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")

	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(_ *config.Config, db *sql.DB) error {
				return database.Migrate(cmd.Context(), db)
			})
		},
	}
}

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the product catalog",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "import [file]",
		Short: "Upsert products from a JSON or YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			products, err := catalog.ParseSeed(f, catalog.FormatFromPath(args[0]))
			if err != nil {
				return err
			}

			return withDB(cmd.Context(), func(_ *config.Config, db *sql.DB) error {
				if err := catalogStore.New(db).UpsertProducts(cmd.Context(), products); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "imported %d products\n", len(products))

				return nil
			})
		},
	})

	return cmd
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile [orderId]",
		Short: "Verify an order with the gateway and apply it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(cfg *config.Config, db *sql.DB) error {
				logger := cfg.Log.NewLogger()

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
					InvoiceBaseURL: strings.TrimRight(cfg.App.PublicBaseURL, "/") + "/api/v1/invoices",
					Logger:         logger,
				})

				engine := reconcile.NewEngine(reconcileStore.New(db), mailer, logger)

				res, err := reconcile.NewVerifier(gateway, engine).Verify(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(res)
			})
		},
	}
}

func withDB(ctx context.Context, fn func(cfg *config.Config, db *sql.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.New(ctx, cfg.ConnectionString(), database.Options{
		MaxOpenConns: 2,
		MaxIdleConns: 1,
		ConnLifetime: time.Minute,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(cfg, db)
}
