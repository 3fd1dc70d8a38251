// Command runclubctl performs one-off administrative tasks against the
// RunClub credential store: seeding the role catalog and granting roles
// directly, which is how the first Admin is created.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iliyamo/runclub-api/internal/config"
	"github.com/iliyamo/runclub-api/internal/database"
	"github.com/iliyamo/runclub-api/internal/repository"
	"github.com/iliyamo/runclub-api/internal/service"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "runclubctl",
		Short:         "RunClub administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load before reading config")

	cmd.AddCommand(rolesCmd(), usersCmd())
	return cmd
}

func rolesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "roles", Short: "Manage the role catalog"}

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the Admin, Coach and Runner roles if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.AuthService) error {
				if err := svc.EnsureRoleCatalog(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "role catalog seeded")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the role catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.AuthService) error {
				entries, err := svc.ListRoles(ctx)
				if err != nil {
					return err
				}
				for _, e := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", e.ID, e.Name)
				}
				return nil
			})
		},
	})
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage user accounts"}

	var email, role string
	promote := &cobra.Command{
		Use:   "promote",
		Short: "Grant a role to the account registered under --email",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), func(ctx context.Context, svc *service.AuthService) error {
				u, err := svc.AssignRoleByEmail(ctx, email, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) now has roles %v\n", u.Email, u.ID, u.Roles)
				return nil
			})
		},
	}
	promote.Flags().StringVar(&email, "email", "", "Login email of the account")
	promote.Flags().StringVar(&role, "role", "Admin", "Role to grant (Admin, Coach, Runner)")
	_ = promote.MarkFlagRequired("email")

	cmd.AddCommand(promote)
	return cmd
}

// withService opens the configured store and runs fn with an AuthService
// that has no session manager; none of the CLI operations issue tokens.
func withService(parent context.Context, fn func(context.Context, *service.AuthService) error) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverMySQL {
		return fmt.Errorf("runclubctl needs STORE_DRIVER=%s, got %q", config.DriverMySQL, cfg.StoreDriver)
	}

	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := service.NewAuthService(repository.NewUserRepo(db), repository.NewRoleRepo(db), nil, service.Options{
		BcryptCost: cfg.BcryptCost,
		Logger:     logger,
	})
	return fn(ctx, svc)
}
