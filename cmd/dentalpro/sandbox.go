package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
	"github.com/Multiverse88/Dentalpro/internal/platform/db"
	"github.com/Multiverse88/Dentalpro/internal/sandbox"
)

// sandboxStore opens Postgres when DATABASE_URL is set and falls back to the
// in-memory store. The returned func releases the pool.
func (a *app) sandboxStore(ctx context.Context) (sandbox.Store, func(), error) {
	if a.cfg.DatabaseURL == "" {
		a.logger.Info().Msg("DATABASE_URL not set, using in-memory store")
		return sandbox.NewMemoryStore(), func() {}, nil
	}
	pool, err := a.pool(ctx)
	if err != nil {
		return nil, nil, err
	}
	n, err := db.NewMigrator(pool, sandbox.Migrations()).Up(ctx)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}
	a.logger.Info().Int("applied", n).Msg("database migrations up to date")
	return sandbox.NewPGStore(pool), pool.Close, nil
}

func (a *app) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, db.PoolConfig{
		URL:       a.cfg.DatabaseURL,
		MaxConns:  a.cfg.DBMaxConns,
		MinConns:  a.cfg.DBMinConns,
		AppName:   "dentalpro-sandbox",
		SlowQuery: 200 * time.Millisecond,
		Logger:    a.logger,
	})
}

func sandboxCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local DentalPro API for development and tests",
	}
	cmd.AddCommand(sandboxServeCmd(a), sandboxMigrateCmd(a), sandboxSeedCmd(a))
	return cmd
}

func sandboxServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sandbox API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateSandbox(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			ctx := cmd.Context()
			store, release, err := a.sandboxStore(ctx)
			if err != nil {
				return err
			}
			defer release()

			if seed, _ := cmd.Flags().GetBool("seed"); seed {
				res, err := sandbox.NewSeeder(store, sandbox.DefaultSeedConfig(), sandbox.WithSeedLogger(a.logger)).Seed(ctx)
				if err != nil {
					return fmt.Errorf("seed: %w", err)
				}
				fmt.Fprintf(a.out, "Seeded %d patients. Log in as %s / %s\n",
					res.Patients, sandbox.DefaultSeedConfig().DemoEmail, sandbox.DefaultSeedConfig().DemoPassword)
			}

			e := sandbox.NewServer(sandbox.ServerConfig{
				Store:       store,
				Tokens:      auth.NewIssuer([]byte(a.cfg.JWTSigningKey), "dentalpro-sandbox"),
				Logger:      a.logger,
				CORSOrigins: a.cfg.CORSOrigins,
			})
			return sandbox.Serve(ctx, e, ":"+a.cfg.SandboxPort, a.logger)
		},
	}
	cmd.Flags().Bool("seed", false, "load demo data before serving")
	return cmd
}

func sandboxMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run sandbox database migrations",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, sandbox.Migrations()).Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(a.out, "Applied %d migration(s).\n", count)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, sandbox.Migrations()).Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			t := newTable(a.out, "Version", "Name", "Status", "Applied at")
			for _, s := range statuses {
				state, at := "pending", ""
				if s.Applied {
					state = "applied"
					if s.AppliedAt != nil {
						at = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				t.Append([]string{fmt.Sprint(s.Version), s.Name, state, at})
			}
			t.Render()
			return nil
		},
	}

	cmd.AddCommand(up, status)
	return cmd
}

func sandboxSeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo data into the sandbox database",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			if _, err := db.NewMigrator(pool, sandbox.Migrations()).Up(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			flags := cmd.Flags()
			cfg := sandbox.DefaultSeedConfig()
			cfg.Reset, _ = flags.GetBool("reset")
			cfg.PatientCount, _ = flags.GetInt("patients")
			cfg.Seed, _ = flags.GetInt64("seed")

			res, err := sandbox.NewSeeder(sandbox.NewPGStore(pool), cfg, sandbox.WithSeedLogger(a.logger)).Seed(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(a.out, "Users", "Patients", "Treatments", "Records", "Appointments", "Queue")
			t.Append([]string{
				fmt.Sprint(res.Users), fmt.Sprint(res.Patients), fmt.Sprint(res.Treatments),
				fmt.Sprint(res.Records), fmt.Sprint(res.Appointments), fmt.Sprint(res.QueueEntries),
			})
			t.Render()
			fmt.Fprintf(a.out, "Log in as %s / %s\n", cfg.DemoEmail, cfg.DemoPassword)
			return nil
		},
	}
	f := cmd.Flags()
	f.Bool("reset", false, "empty the database first")
	f.Int("patients", sandbox.DefaultSeedConfig().PatientCount, "number of patients")
	f.Int64("seed", 0, "random seed (0 seeds from the clock)")
	return cmd
}
