// Package cli implements the diskmap command-line tool.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/freeeve/diskmap/internal/config"
	"github.com/freeeve/diskmap/internal/logx"
	"github.com/freeeve/diskmap/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	Dir         string
	Compression string
	MaxDepth    int
	Verbose     bool
}

// NewRootCommand creates the root command for the diskmap CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "diskmap",
		Short: "Inspect and edit a diskmap store",
		Long: `diskmap manages a filesystem-backed key-value store: one file per key,
sharded into single-character directories, optionally compressed.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.Dir, "dir", "d", defaults.Dir, "store root directory")
	cmd.PersistentFlags().StringVarP(&opts.Compression, "compression", "c", defaults.Compression, "entry compression (none|gzip|zstd)")
	cmd.PersistentFlags().IntVar(&opts.MaxDepth, "max-depth", defaults.MaxDepth, "shard directory levels")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(NewPutCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewHasCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSizeCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewEraseCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

// resolveConfig layers the config file, the environment and explicitly set
// flags, in that order.
func resolveConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()

	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.Dir = opts.Dir
	}
	if flags.Changed("compression") {
		cfg.Compression = opts.Compression
	}
	if flags.Changed("max-depth") {
		cfg.MaxDepth = opts.MaxDepth
	}
	if opts.Verbose {
		cfg.LogLevel = zerolog.DebugLevel.String()
	}
	return cfg, cfg.Validate()
}

// openStore opens the byte-valued store the command operates on. The
// caller must Close it.
func openStore(opts *RootOptions, cmd *cobra.Command) (*store.Store[[]byte], error) {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("--dir must not be empty")
	}

	level, err := logx.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if !opts.Verbose && level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}
	logger := logx.NewConsole(cmd.ErrOrStderr(), level)

	sc, err := cfg.StoreConfig(&logger)
	if err != nil {
		return nil, err
	}
	return store.Open[[]byte](sc, store.BytesCodec{})
}

// withStore opens the store, runs fn and closes the store.
func withStore(opts *RootOptions, cmd *cobra.Command, fn func(st *store.Store[[]byte]) error) error {
	st, err := openStore(opts, cmd)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}
