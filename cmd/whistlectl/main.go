package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/whistle-api/internal/models"
	"github.com/noah-isme/whistle-api/internal/repository"
	"github.com/noah-isme/whistle-api/internal/service"
	"github.com/noah-isme/whistle-api/pkg/cache"
	"github.com/noah-isme/whistle-api/pkg/config"
	"github.com/noah-isme/whistle-api/pkg/database"
	"github.com/noah-isme/whistle-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "whistlectl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "whistlectl",
		Short:        "Whistle API administration CLI",
		Long:         `whistlectl applies database migrations and manages accounts and site_admin membership.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd(), newUserCmd(), newGroupCmd())
	return cmd
}

// withDB loads configuration, opens the database and runs fn.
// cliEnv carries the connections a command runs against.
type cliEnv struct {
	cfg  *config.Config
	db   *sqlx.DB
	logr *zap.Logger

	closers []func() error
}

func withDB(ctx context.Context, fn func(ctx context.Context, env *cliEnv) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	env := &cliEnv{cfg: cfg, db: db, logr: logr}
	defer env.close()

	ctx = service.WithRequestMeta(ctx, models.RequestMeta{IP: "127.0.0.1", UserAgent: "whistlectl"})
	return fn(ctx, env)
}

func (e *cliEnv) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}

// dashboardCache connects to the dashboard cache so account changes can invalidate it.
// An unreachable Redis leaves the cache disabled; entries then expire on their TTL.
func (e *cliEnv) dashboardCache(ctx context.Context) *service.CacheService {
	client, err := cache.NewRedis(ctx, e.cfg.Redis)
	if err != nil {
		e.logr.Warn("redis unavailable, dashboard cache not invalidated", zap.Error(err))
		client = nil
	}
	repo := repository.NewCacheRepository(client)
	e.closers = append(e.closers, repo.Close)
	return service.NewCacheService(repo, nil, e.cfg.Dashboard.CacheTTL, e.logr, client != nil)
}

func (e *cliEnv) userService(ctx context.Context) *service.UserService {
	users := repository.NewUserRepository(e.db)
	return service.NewUserService(users, service.NewAuditService(users, e.logr), e.dashboardCache(ctx), nil, e.logr)
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
					return database.Migrate(ctx, env.db.DB)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
					return database.Rollback(ctx, env.db.DB)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
					v, err := database.Version(ctx, env.db.DB)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
	)
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var req service.CreateUserRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an active account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("WHISTLE_USER_PASSWORD")
			}
			return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				user, err := env.userService(ctx).Create(ctx, nil, req)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&req.Email, "email", "", "Account email")
	create.Flags().StringVar(&req.FullName, "name", "", "Full name")
	create.Flags().StringVar(&req.Password, "password", "", "Password (defaults to $WHISTLE_USER_PASSWORD)")
	create.Flags().BoolVar(&req.IsSuperuser, "superuser", false, "Send the account to the admin site after login")
	create.Flags().BoolVar(&req.SiteAdmin, "site-admin", false, "Add the account to the site_admin group")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("name")

	del := &cobra.Command{
		Use:   "delete <id|email>",
		Short: "Delete an account; its reports are kept without a reporter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
				svc := env.userService(ctx)
				user, err := svc.Lookup(ctx, args[0])
				if err != nil {
					return describe(err)
				}
				if err := svc.Delete(ctx, nil, user.ID); err != nil {
					return describe(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", user.Email)
				return nil
			})
		},
	}

	cmd.AddCommand(create, del)
	return cmd
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site-admin",
		Short: "Manage site_admin membership",
	}
	change := func(use, short string, apply func(context.Context, *service.UserService, string) error) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <id|email>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, env *cliEnv) error {
					svc := env.userService(ctx)
					user, err := svc.Lookup(ctx, args[0])
					if err != nil {
						return describe(err)
					}
					if err := apply(ctx, svc, user.ID); err != nil {
						return describe(err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", use, user.Email)
					return nil
				})
			},
		}
	}
	cmd.AddCommand(
		change("grant", "Add an account to site_admin", func(ctx context.Context, s *service.UserService, id string) error {
			return s.GrantSiteAdmin(ctx, nil, id)
		}),
		change("revoke", "Remove an account from site_admin and end its sessions", func(ctx context.Context, s *service.UserService, id string) error {
			return s.RevokeSiteAdmin(ctx, nil, id)
		}),
	)
	return cmd
}
