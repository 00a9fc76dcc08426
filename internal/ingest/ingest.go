// Package ingest stores files dropped into a spool directory.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Putter is the part of a store the worker writes through.
type Putter interface {
	Put(key string, value []byte) error
}

// Config configures the ingest worker.
type Config struct {
	WatchDir     string         // Directory to watch for files
	ProcessedDir string         // Directory to move stored files to
	NumWorkers   int            // Files stored in parallel (default runtime.NumCPU())
	PollInterval time.Duration  // How often to check for new files
	Logger       zerolog.Logger // Logger
}

// Worker watches a folder and stores each file under its name.
type Worker struct {
	cfg Config
	st  Putter
	log zerolog.Logger
}

// NewWorker creates a new ingest worker. It returns nil when WatchDir is empty.
func NewWorker(cfg Config, st Putter) (*Worker, error) {
	if cfg.WatchDir == "" {
		return nil, nil // Disabled
	}
	if cfg.ProcessedDir == "" {
		cfg.ProcessedDir = filepath.Join(cfg.WatchDir, "processed")
	}
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = runtime.NumCPU()
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}

	// Ensure directories exist
	if err := os.MkdirAll(cfg.WatchDir, 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ProcessedDir, 0755); err != nil {
		return nil, err
	}

	return &Worker{
		cfg: cfg,
		st:  st,
		log: cfg.Logger,
	}, nil
}

// Run polls the watch directory until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Str("watch_dir", w.cfg.WatchDir).
		Str("processed_dir", w.cfg.ProcessedDir).
		Dur("poll", w.cfg.PollInterval).
		Msg("ingest worker started")

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Poll(ctx); err != nil {
				w.log.Warn().Err(err).Msg("process files failed")
			}
		}
	}
}

// Poll stores every file currently in the watch directory and moves the
// stored ones to the processed directory. It returns how many were stored.
// Files that fail are logged and left for the next poll.
func (w *Worker) Poll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	entries, err := os.ReadDir(w.cfg.WatchDir)
	if err != nil {
		return 0, err
	}

	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return 0, nil
	}
	sort.Strings(files)

	numWorkers := min(w.cfg.NumWorkers, len(files))
	w.log.Debug().Int("files", len(files)).Int("workers", numWorkers).Msg("found files to ingest")

	type fileResult struct {
		name string
		err  error
	}

	fileChan := make(chan string, len(files))
	resultChan := make(chan fileResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileChan {
				if err := ctx.Err(); err != nil {
					resultChan <- fileResult{name: name, err: err}
					continue
				}
				resultChan <- fileResult{name: name, err: w.storeFile(name)}
			}
		}()
	}

	for _, name := range files {
		fileChan <- name
	}
	close(fileChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var stored, failed int
	for result := range resultChan {
		if result.err != nil {
			w.log.Error().Err(result.err).Str("file", result.name).Msg("ingest failed")
			failed++
			continue
		}

		srcPath := filepath.Join(w.cfg.WatchDir, result.name)
		destPath := filepath.Join(w.cfg.ProcessedDir, result.name)
		if err := os.Rename(srcPath, destPath); err != nil {
			w.log.Warn().Err(err).Str("file", result.name).Msg("move to processed failed")
		}
		stored++
	}

	w.log.Info().Int("stored", stored).Int("failed", failed).Msg("ingest batch complete")
	return stored, ctx.Err()
}

func (w *Worker) storeFile(name string) error {
	data, err := os.ReadFile(filepath.Join(w.cfg.WatchDir, name))
	if err != nil {
		return err
	}
	return w.st.Put(name, data)
}
