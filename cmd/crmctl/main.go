package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/service"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		logger.Fatal("POSTGRES_DSN is required")
	}

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if err := run(ctx, cfg, pg, logger, args[0], args[1:]); err != nil {
		logger.Fatal("command failed", zap.String("command", args[0]), zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger, command string, args []string) error {
	if command == "migrate" {
		return migrate(pg, logger, args)
	}

	deps := service.Dependencies{
		Repos:      repository.NewPostgres(pg.PoolHandle()),
		Dispatcher: events.NewInMemoryDispatcher(),
		Logger:     logger,
	}
	switch command {
	case "create-admin":
		return createAdmin(ctx, cfg, deps, args)
	case "list-users":
		return listUsers(ctx, cfg, deps)
	case "seed":
		return seed(ctx, deps, logger, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func migrate(pg *persistence.Postgres, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("migrate requires one of: up, down, version")
	}

	m, err := persistence.NewMigrator(pg.PoolHandle(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("close migrator", zap.Error(err))
		}
	}()

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate subcommand %q", args[0])
	}
}

func createAdmin(ctx context.Context, cfg *config.Config, deps service.Dependencies, args []string) error {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	username := fs.String("username", "admin", "admin username")
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return fmt.Errorf("-email and -password are required")
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Dependencies: deps,
		Tokens:       auth.NewTokenManager(cfg.Auth),
		Revocations:  auth.NewMemoryRevocationStore(),
	})
	operator := &domain.Principal{Username: "crmctl", Role: domain.RoleAdmin}
	user, err := authService.Register(ctx, operator, service.RegisterInput{
		Username: *username,
		Email:    *email,
		Password: *password,
		Role:     string(domain.RoleAdmin),
	})
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s (id %d)\n", user.Username, user.ID)
	return nil
}

func listUsers(ctx context.Context, cfg *config.Config, deps service.Dependencies) error {
	users, err := service.NewUserService(cfg.Auth, deps, auth.NewMemoryRevocationStore()).List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tROLE\tACTIVE\tCUSTOMER")
	for _, u := range users {
		customer := "-"
		if u.CustomerID != nil {
			customer = fmt.Sprint(*u.CustomerID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Email, u.Role, u.IsActive, customer)
	}
	return w.Flush()
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Usage: crmctl <command> [flags]

Commands:
  migrate up|down|version      manage the schema
  create-admin -email -password [-username]
                               create an admin account
  list-users                   print every account
  seed [-customers N]          insert sample customers, interactions and ratings
`)
}
