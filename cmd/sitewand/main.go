package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/joho/godotenv"
	"github.com/sitewandlabs/sitewand/internal/checkout"
	"github.com/sitewandlabs/sitewand/internal/config"
	"github.com/sitewandlabs/sitewand/internal/migration"
	"github.com/sitewandlabs/sitewand/internal/notification"
	"github.com/sitewandlabs/sitewand/internal/observability"
	"github.com/sitewandlabs/sitewand/internal/redis"
	"github.com/sitewandlabs/sitewand/internal/server"
	"github.com/sitewandlabs/sitewand/internal/stripe"
	"github.com/sitewandlabs/sitewand/internal/submission"
	"github.com/sitewandlabs/sitewand/internal/webhook"
	"github.com/sitewandlabs/sitewand/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "sitewand",
		Short:   "Sitewand checkout service CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the checkout API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		fx.Provide(newStripeClient),
		db.Module,
		redis.Module,
		submission.Module,
		notification.Module,
		checkout.Module,
		webhook.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func newStripeClient(cfg config.Config) *stripe.Client {
	return stripe.New(cfg.Stripe.APIKey, cfg.Stripe.BaseURL)
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
