package cli

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/diskmap/internal/store"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Store every file below dir, keyed by its slash-separated relative path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := listFiles(args[0])
			if err != nil {
				return err
			}
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(max(workers, 1))
				for _, f := range files {
					g.Go(func() error {
						if err := ctx.Err(); err != nil {
							return err
						}
						data, err := os.ReadFile(f.path)
						if err != nil {
							return err
						}
						return st.Put(f.key, data)
					})
				}
				if err := g.Wait(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d files\n", len(files))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&workers, "workers", "w", runtime.NumCPU(), "files read in parallel")
	return cmd
}

type importFile struct {
	path string
	key  string
}

// listFiles returns the regular files below root with their keys.
func listFiles(root string) ([]importFile, error) {
	var files []importFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, importFile{path: path, key: filepath.ToSlash(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	return files, nil
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <csv|->",
		Short: "Write key,bytes for every entry as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if args[0] != "-" {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				writer := csv.NewWriter(out)
				if err := writer.Write([]string{"key", "bytes"}); err != nil {
					return fmt.Errorf("write header: %w", err)
				}
				for _, key := range st.Keys() {
					v, err := st.Get(key)
					if err != nil {
						return keyError(key, err)
					}
					if err := writer.Write([]string{key, strconv.Itoa(len(v))}); err != nil {
						return fmt.Errorf("write row: %w", err)
					}
				}
				writer.Flush()
				return writer.Error()
			})
		},
	}
}
