package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/hugh/fieldops/internal/auth"
	"github.com/hugh/fieldops/internal/database"
	"github.com/hugh/fieldops/pkg/config"
	"github.com/hugh/fieldops/pkg/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fieldctl",
		Short:         "fieldops operations tool",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newGenKeyCmd(),
		newCreateUserCmd(),
		newCreateOrgCmd(),
		newAddMemberCmd(),
		newQueuesCmd(),
	)
	return cmd
}

// env is what most subcommands need: configuration, a logger and the database.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func connect() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := util.NewLogger(cfg.Server.Env)

	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

func (e *env) Close() {
	if err := database.Close(e.db); err != nil {
		e.logger.Warn("closing database", "error", err)
	}
}

func (e *env) services() (*auth.Service, *auth.OrgService) {
	jwtService := auth.NewJWTService(e.cfg.JWT.Secret, e.cfg.JWT.Expiry())
	return auth.NewService(e.db, jwtService), auth.NewOrgService(e.db)
}

// withEnv connects before running fn and closes the connection afterwards.
func withEnv(fn func(ctx context.Context, cmd *cobra.Command, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := connect()
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd.Context(), cmd, e)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
