package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"captiond/internal/assemblyai"
	"captiond/internal/config"
	"captiond/internal/server"
	"captiond/internal/transcriber"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcription HTTP service",
	Long: `Serve the transcription API over HTTP: multipart upload on /transcribe,
caption export on /export, plus /health, /metrics, and /progress/{id}.`,
	RunE: runServe,
}

var (
	serveAddr      string
	serveTTL       time.Duration
	serveMaxConns  int64
	serveRetries   int
	serveRateLimit int
)

func init() {
	defaults := config.Default()

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8000", "listen address")
	serveCmd.Flags().DurationVar(&serveTTL, "cache-ttl", defaults.CacheTTL, "transcription result cache TTL")
	serveCmd.Flags().Int64Var(&serveMaxConns, "max-connections", defaults.MaxConnections, "max concurrent upstream calls")
	serveCmd.Flags().IntVar(&serveRetries, "max-retries", defaults.MaxRetries, "max retries per upstream call")
	serveCmd.Flags().IntVar(&serveRateLimit, "rate-limit", defaults.RateLimitPerMin, "API requests per minute")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	cfg.CacheTTL = serveTTL
	cfg.MaxConnections = serveMaxConns
	cfg.MaxRetries = serveRetries
	cfg.RateLimitPerMin = serveRateLimit

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider := transcriber.NewProvider(assemblyai.NewClient(
		assemblyai.WithPollInterval(cfg.PollInterval),
	))
	sink := &transcriber.CounterSink{}
	coord := transcriber.New(provider, cfg, sink)
	srv := server.New(cfg, coord, sink)

	httpServer := &http.Server{
		Addr:    serveAddr,
		Handler: srv.Handler(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("listening", "addr", serveAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
