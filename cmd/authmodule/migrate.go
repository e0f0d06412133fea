package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/PaulFidika/authmodule/config"
	"github.com/PaulFidika/authmodule/jobs"
	migrations "github.com/PaulFidika/authmodule/migrations/postgres"
	pgstore "github.com/PaulFidika/authmodule/storage/postgres"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply the users and operate_log schema, plus River's tables when the river sink is selected.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}

	ctx := cmd.Context()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	db := pgstore.OpenBun(pool)
	defer db.Close()

	if err := migrations.Up(ctx, db, log); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	if cfg.Oplog.Sink == config.SinkRiver {
		if err := jobs.Migrate(ctx, pool); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "river migrations").Wrap(err)
		}
	}
	cmd.Println("Migrations completed successfully")
	return nil
}
