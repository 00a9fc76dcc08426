package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/diskmap/internal/config"
	"github.com/freeeve/diskmap/internal/httpapi"
	"github.com/freeeve/diskmap/internal/ingest"
	"github.com/freeeve/diskmap/internal/logx"
	"github.com/freeeve/diskmap/internal/store"
)

// parseSize parses a size string like "512m", "4g", "1024" into bytes
func parseSize(s string) int64 {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "0" {
		return 0
	}

	multiplier := int64(1)
	if strings.HasSuffix(s, "k") {
		multiplier = 1024
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "m") {
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	} else if strings.HasSuffix(s, "g") {
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n * multiplier
}

func main() {
	var (
		configPath  = flag.String("config", "", "YAML config file")
		dir         = flag.String("dir", "", "store root directory (overrides config)")
		addr        = flag.String("addr", "", "listen address (overrides config)")
		compression = flag.String("compression", "", "none|gzip|zstd (overrides config)")
		maxBody     = flag.String("max-body", "", "largest accepted value, e.g. 64m (overrides config)")
		ingestDir   = flag.String("ingest-dir", "", "directory to watch for files to store (empty = disabled)")
		jsonLogs    = flag.Bool("json", false, "log JSON lines instead of console output")
	)
	flag.Parse()

	logger := logx.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	cfg.ApplyEnv()
	if *dir != "" {
		cfg.Dir = *dir
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *compression != "" {
		cfg.Compression = *compression
	}
	if *ingestDir != "" {
		cfg.IngestDir = *ingestDir
	}
	if n := parseSize(*maxBody); n > 0 {
		cfg.MaxBodySize = n
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	level, _ := logx.ParseLevel(cfg.LogLevel)
	if *jsonLogs {
		logger = logx.NewJSON(os.Stdout, level)
	} else {
		logger = logx.NewConsole(os.Stdout, level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// run serves the store described by cfg until ctx is cancelled. The store is
// closed on every return path, which removes a temporary root.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	storeLog := logger.With().Str("component", "store").Logger()
	sc, err := cfg.StoreConfig(&storeLog)
	if err != nil {
		return err
	}
	st, err := store.Open[[]byte](sc, store.BytesCodec{})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	logger.Info().
		Str("dir", st.Dir()).
		Stringer("compression", st.Compression()).
		Int("entries", st.Size()).
		Msg("opened store")

	// Ingest worker, if configured
	worker, err := ingest.NewWorker(ingest.Config{
		WatchDir: cfg.IngestDir,
		Logger:   logger.With().Str("component", "ingest").Logger(),
	}, st)
	if err != nil {
		return fmt.Errorf("create ingest worker: %w", err)
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      httpapi.NewRouter(logger, st, cfg.MaxBodySize),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if worker != nil {
		g.Go(func() error {
			if err := worker.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats := st.Stats()
	logger.Info().
		Uint64("reads", stats.Reads).
		Uint64("writes", stats.Writes).
		Uint64("removes", stats.Removes).
		Msg("shutdown complete")
	return nil
}
