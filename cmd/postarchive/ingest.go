package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-post-archive/internal/config"
	"github.com/tbourn/go-post-archive/internal/monitor"
	"github.com/tbourn/go-post-archive/internal/observability"
	"github.com/tbourn/go-post-archive/internal/runner"
	"github.com/tbourn/go-post-archive/internal/sysutil"
)

var (
	ingestWorkers       int
	ingestRate          float64
	ingestProgressEvery int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <archive.zip|records.jsonl> [more paths...]",
	Short: "Load post archives into the database",
	Long: `Ingest walks the given zip archives and JSONL files newest first and
writes every record in its own transaction. Replaying an archive is safe:
records already in the store are skipped without touching their rows.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "concurrent ingest workers (overrides WORKERS)")
	ingestCmd.Flags().Float64Var(&ingestRate, "rate", 0, "records per second, 0 = unthrottled (overrides RATE_RPS)")
	ingestCmd.Flags().IntVar(&ingestProgressEvery, "progress-every", 0, "records between progress lines (overrides PROGRESS_EVERY)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warn().Str("signal", sig.String()).Msg("shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdown(flushCtx)
	}()

	db, err := openDB(cfg, cfg.Database.AutoMigrate)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	opts := runner.Options{
		Workers:       cfg.Loader.Workers,
		QueueDepth:    cfg.Loader.QueueDepth,
		RateRPS:       cfg.Loader.RateRPS,
		ProgressEvery: cfg.Loader.ProgressEvery,
	}
	if ingestWorkers > 0 {
		opts.Workers = ingestWorkers
	}
	if cmd.Flags().Changed("rate") {
		opts.RateRPS = ingestRate
	}
	if ingestProgressEvery > 0 {
		opts.ProgressEvery = int64(ingestProgressEvery)
	}

	r := runner.New(db, opts)

	if cfg.Monitor.ListenAddr != "" {
		srv := monitor.New(db, r.Progress(), monitor.Options{
			Addr:           cfg.Monitor.ListenAddr,
			AllowedOrigins: cfg.Monitor.AllowedOrigins,
			TraceRoutes:    cfg.OTEL.Enabled,
			ServiceName:    cfg.OTEL.ServiceName,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("monitor server failed")
			}
		}()
	}

	summary, err := r.Run(ctx, args)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d records failed; re-run to retry them", summary.Failed)
	}
	return nil
}
