package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kavishka-rasanjana/Transit-Guard/internal/dashboard"
	"github.com/spf13/cobra"
)

const storeCloseTimeout = 5 * time.Second

// runWithApp loads configuration, opens the store and hands a ready App to fn.
// The context is cancelled on SIGINT or SIGTERM.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logOut := os.Stdout
	if cmd.Name() == "export" {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, nil))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), storeCloseTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error("failed to close store", "err", err)
		}
	}()

	app, err := newApp(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"store", store.Name(),
		"data_root", cfg.DataRoot,
		"dashboard_source", cfg.DashboardSource,
	)
	return fn(ctx, app)
}

func newRootCommand() *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		return runWithApp(cmd, func(ctx context.Context, app *App) error {
			return app.serve(ctx)
		})
	}

	rootCmd := &cobra.Command{
		Use:           "transitguard",
		Short:         "Passenger complaint intake API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE:  serve,
		},
		seedCommand(),
		seedMockReportsCommand(),
		reconcileCommand(),
		exportCommand(),
	)
	return rootCmd
}

func seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the location and violation type catalogs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				for _, seed := range []catalogSeed{app.locationSeed(), app.violationTypeSeed()} {
					n, err := app.runSeed(ctx, seed)
					switch {
					case errors.Is(err, errAlreadySeeded):
						fmt.Fprintf(cmd.OutOrStdout(), "%s: already seeded\n", seed.name)
					case err != nil:
						return fmt.Errorf("seed %s: %w", seed.name, err)
					default:
						fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted %d rows\n", seed.name, n)
					}
				}
				return nil
			})
		},
	}
}

func seedMockReportsCommand() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed-mock-reports",
		Short: "Insert generated violation reports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				n, err := app.seedMockReports(ctx, count)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "inserted %d mock reports\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "number of reports to insert")
	return cmd
}

func reconcileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Remove orphaned evidence files once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				result, err := app.reconcileEvidence(ctx, app.now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d staged and %d unreferenced upload files\n", result.StagingRemoved, result.UploadsRemoved)
				return nil
			})
		},
	}
}

func exportCommand() *cobra.Command {
	var format, out, window string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard complaint set as csv, geojson, pdf or xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				from, to, err := dashboard.Window{Range: window}.Bounds(app.now())
				if err != nil {
					return err
				}
				complaints, err := app.complaints(ctx, complaintScope{from: from, to: to})
				if err != nil {
					return err
				}
				artifact, err := buildExport(strings.ToLower(format), complaints, app.now())
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(artifact.Body)
					return err
				}
				if err := os.WriteFile(out, artifact.Body, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				app.log.Info("export written", "format", format, "path", out, "complaints", len(complaints))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", exportFormatCSV, "csv, geojson, pdf or xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output path, stdout when empty")
	cmd.Flags().StringVar(&window, "range", dashboard.RangeAll, "last7, last30, last90 or all")
	return cmd
}
