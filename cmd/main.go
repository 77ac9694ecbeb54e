package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"clinic-backend/cmd/bootstrap"
	"clinic-backend/pkg/jwt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinic",
		Short: "Clinic consultation flow backend",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and websocket server",
		Run: func(cmd *cobra.Command, args []string) {
			app, err := bootstrap.New(context.Background())
			if err != nil {
				logrus.Fatalf("Failed to initialize application: %v", err)
			}
			app.Serve(withWorker)
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "also process delayed wait-time jobs in this process")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Process delayed wait-time jobs only",
		Run: func(cmd *cobra.Command, args []string) {
			app, err := bootstrap.New(context.Background())
			if err != nil {
				logrus.Fatalf("Failed to initialize worker: %v", err)
			}
			app.Work()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Migrate(true, 0)
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return bootstrap.Migrate(false, steps)
		},
	}
	downCmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(upCmd, downCmd)
	return cmd
}

// tokenCmd signs an access token with the configured secret, for local testing
// against a running server without the identity service.
func tokenCmd() *cobra.Command {
	var (
		userID   string
		roleID   int
		clinicID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap.Setup()
			if err != nil {
				return err
			}

			uid, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			var cid *uuid.UUID
			if clinicID != "" {
				parsed, err := uuid.Parse(clinicID)
				if err != nil {
					return fmt.Errorf("invalid --clinic: %w", err)
				}
				cid = &parsed
			}

			token, _, err := jwt.NewJWTService(cfg.JWT).GenerateAccessToken(uid, roleID, cid, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().IntVar(&roleID, "role", 0, "role id (1 admin, 2 doctor)")
	cmd.Flags().StringVar(&clinicID, "clinic", "", "clinic id")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
