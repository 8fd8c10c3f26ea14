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

	"github.com/spf13/cobra"

	"github.com/imadgeboyega/kiekky-matchcore/internal/common/database"
)

// serveCmd runs the scheduled jobs and the ops server until interrupted
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled sweeps and the ops server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("========================================")
			log.Println("🚀 Starting Kiekky match core")
			log.Println("========================================")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			log.Println("🔨 Running database migrations...")
			if err := database.RunMigrations(ctx, a.db); err != nil {
				return err
			}
			log.Println("✅ Database migrations completed")

			if err := a.scheduler.Start(ctx); err != nil {
				return err
			}

			srv := &http.Server{
				Addr:         ":" + cfg.OpsPort,
				Handler:      a.opsRouter(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				log.Printf("🌐 Ops server listening on :%s", cfg.OpsPort)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-ctx.Done():
				log.Println("🛑 Shutting down...")
			case err := <-serverErr:
				stop()
				return fmt.Errorf("ops server failed: %w", err)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Printf("Ops server forced to shutdown: %v", err)
			}

			log.Println("✅ Shutdown complete")
			return nil
		},
	}
}

// sweepCmd expires lapsed windows and sends reminders once
func sweepCmd() *cobra.Command {
	var skipReminders bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire lapsed match windows and send expiry reminders once",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs := []string{jobExpireWindows}
			if !skipReminders {
				jobs = append(jobs, jobReminders)
			}
			return runJobsOnce(cmd.Context(), jobs...)
		},
	}

	cmd.Flags().BoolVar(&skipReminders, "skip-reminders", false, "only expire windows")
	return cmd
}

func detectGhostingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect-ghosting",
		Short: "Scan idle conversations for ghosting once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobsOnce(cmd.Context(), jobGhosting)
		},
	}
}

// matchCmd opens windows for a user's high-scoring candidates
func matchCmd() *cobra.Command {
	var userID int64
	var minScore float64

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Create match windows for a user's high-scoring candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-score") {
				minScore = cfg.HighMatchMinScore
			}

			a, err := bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			windows, err := a.windows.CreateWindowsForHighMatches(cmd.Context(), userID, minScore)
			if err != nil {
				return err
			}
			for _, w := range windows {
				fmt.Printf("%s\t%d\t%d\t%.2f\t%s\n", w.PublicID, w.UserAID, w.UserBID, w.CompatibilityScore, w.ExpiresAt.Format(time.RFC3339))
			}
			log.Printf("✅ Created %d match windows for user %d", len(windows), userID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user to create windows for")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum compatibility score (defaults to HIGH_MATCH_MIN_SCORE)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDBFromURL(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			log.Println("🔨 Running database migrations...")
			if err := database.RunMigrations(cmd.Context(), db); err != nil {
				return err
			}
			log.Println("✅ Database migrations completed")
			return nil
		},
	}
}

func runJobsOnce(ctx context.Context, names ...string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	var errs []error
	for _, name := range names {
		if err := a.scheduler.RunOnce(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
