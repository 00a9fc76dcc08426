package cli

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/freeeve/diskmap/internal/store"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize entries and disk usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				entries := st.Size()
				bytes, dirs := diskUsage(st.Dir())

				p := message.NewPrinter(language.English)
				out := cmd.OutOrStdout()
				p.Fprintf(out, "dir:          %s\n", st.Dir())
				p.Fprintf(out, "compression:  %s\n", st.Compression())
				p.Fprintf(out, "entries:      %d\n", entries)
				p.Fprintf(out, "directories:  %d\n", dirs)
				p.Fprintf(out, "bytes:        %d\n", bytes)
				return nil
			})
		},
	}
}

// diskUsage sums file sizes and counts shard directories below root,
// excluding root itself. Unreadable entries are skipped.
func diskUsage(root string) (bytes int64, dirs int) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root {
				dirs++
			}
			return nil
		}
		if info, err := d.Info(); err == nil {
			bytes += info.Size()
		}
		return nil
	})
	return bytes, dirs
}
