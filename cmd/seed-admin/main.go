// Command seed-admin creates the first ADMIN account. It is idempotent: an
// existing account with the same email is left untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type seedOptions struct {
	Email    string
	Password string
	Name     string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "seed-admin:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		return errors.New("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return err
		}
	}

	created, err := seedAdmin(ctx, repository.NewPostgresStore(pg.PoolHandle()), opts, cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	if created {
		logger.Info("admin created", zap.String("email", opts.Email))
	} else {
		logger.Info("admin already exists", zap.String("email", opts.Email))
	}
	return nil
}

func parseFlags(args []string) (seedOptions, error) {
	var opts seedOptions
	flagSet := pflag.NewFlagSet("seed-admin", pflag.ContinueOnError)
	flagSet.StringVar(&opts.Email, "email", os.Getenv("SEED_ADMIN_EMAIL"), "admin email (env SEED_ADMIN_EMAIL)")
	flagSet.StringVar(&opts.Password, "password", os.Getenv("SEED_ADMIN_PASSWORD"), "admin password (env SEED_ADMIN_PASSWORD)")
	flagSet.StringVar(&opts.Name, "name", envOr("SEED_ADMIN_NAME", "Admin"), "display name (env SEED_ADMIN_NAME)")
	if err := flagSet.Parse(args); err != nil {
		return opts, err
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return opts, fmt.Errorf("unexpected argument: %s", extra[0])
	}

	opts.Email = strings.TrimSpace(opts.Email)
	opts.Name = strings.TrimSpace(opts.Name)
	if opts.Email == "" || opts.Password == "" {
		return opts, errors.New("--email and --password are required")
	}
	if opts.Name == "" {
		opts.Name = "Admin"
	}
	return opts, nil
}

// seedAdmin reports whether a new account was created.
func seedAdmin(ctx context.Context, store repository.Store, opts seedOptions, bcryptCost int) (bool, error) {
	_, err := store.Users().GetByEmail(ctx, opts.Email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := auth.HashPassword(opts.Password, bcryptCost)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{Email: opts.Email, Name: opts.Name, Role: domain.RoleAdmin, PasswordHash: hash}
	if err := store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}
	return true, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
