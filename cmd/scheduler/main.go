// Command scheduler runs the weekly advice aggregation: a calendar loop with
// an operator API (serve), a single synchronous run (run-once), and a helper
// for minting OPERATOR_TOKEN_HASH values (hash-token).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnshRaj112/serenify-journal/internal/config"
	"github.com/AnshRaj112/serenify-journal/internal/handlers"
	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/routes"
	"github.com/AnshRaj112/serenify-journal/pkg/logger"
	"github.com/AnshRaj112/serenify-journal/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scheduler",
		Short:         "Weekly advice scheduler",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newRunOnceCmd(), newHashTokenCmd())
	return root
}

// loadConfig reads and validates the environment and starts the logger.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the calendar trigger and the operator API until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer func() {
				if err != nil {
					logger.Error("scheduler stopped", zap.Error(err))
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if cfg.OperatorTokenHash == "" {
				logger.Warn("⚠️  OPERATOR_TOKEN_HASH not set, manual triggers are disabled")
			}
			r := chi.NewRouter()
			r.Use(middleware.SecurityHeaders)
			routes.SetupOperatorRoutes(r, handlers.NewOperator(ctx, a.scheduler, a.cache), middleware.RequireOperator(cfg.OperatorTokenHash))

			srv := &http.Server{
				Addr:              ":" + cfg.OperatorPort,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				logger.Info("🚀 Scheduler operator API running", zap.String("port", cfg.OperatorPort))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
					stop()
				}
			}()

			// Start returns once ctx is done and any in-flight run has finished.
			a.scheduler.Start(ctx)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown operator API: %w", err)
			}
			select {
			case err := <-errCh:
				return fmt.Errorf("operator API: %w", err)
			default:
				return nil
			}
		},
	}
}

func newRunOnceCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "run-once",
		Short: "Run one fleet aggregation synchronously and print its summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ref := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				ref = t.UTC()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, accepted, err := a.scheduler.TriggerAndWait(ctx, ref, models.TriggerCLI)
			if !accepted {
				if err != nil {
					return err
				}
				return errors.New("another advice run is in progress")
			}
			printSummary(cmd, summary)
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference instant (RFC3339); defaults to now")
	return cmd
}

func printSummary(cmd *cobra.Command, s models.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s week of %s (reference %s) took %s\n",
		s.RunID, s.WeekOf.Format("2006-01-02"), s.Reference.Format(time.RFC3339), s.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "users=%d created=%d no_posts=%d no_output=%d duplicate=%d failed=%d\n",
		s.Users, s.Created, s.SkippedNoPosts, s.SkippedNoOutput, s.SkippedDuplicate, s.Failed)
	for _, f := range s.Failures {
		fmt.Fprintf(out, "  user %d: %s\n", f.UserID, f.Error)
	}
	if s.DirectoryError != "" {
		fmt.Fprintf(out, "directory error: %s\n", s.DirectoryError)
	}
	if s.Cancelled {
		fmt.Fprintln(out, "cancelled before every user was processed")
	}
}

func newHashTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the argon2id hash of an operator token for OPERATOR_TOKEN_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
