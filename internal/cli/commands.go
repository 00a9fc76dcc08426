package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/freeeve/diskmap/internal/store"
)

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> [file|-]",
		Short: "Store a file (or stdin) under key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			}
			data, err := io.ReadAll(src)
			if err != nil {
				return fmt.Errorf("read value: %w", err)
			}
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				return st.Put(args[0], data)
			})
		},
	}
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Write the value stored under key to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				v, err := st.Get(args[0])
				if err != nil {
					return keyError(args[0], err)
				}
				_, err = cmd.OutOrStdout().Write(v)
				return err
			})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "rm <key>...",
		Short: "Remove keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				for _, key := range args {
					if !force && !st.ContainsKey(key) {
						return keyError(key, store.ErrNotFound)
					}
					if _, err := st.Remove(key); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "ignore missing keys")
	return cmd
}

// NewHasCommand creates the has command.
func NewHasCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Print whether key has an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), st.ContainsKey(args[0]))
				return err
			})
		},
	}
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored keys (sanitized form), sorted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				out := cmd.OutOrStdout()
				for _, k := range st.Keys() {
					if _, err := fmt.Fprintln(out, k); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

// NewSizeCommand creates the size command.
func NewSizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Print the number of entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), st.Size())
				return err
			})
		},
	}
}

// NewEraseCommand creates the erase command.
func NewEraseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "erase",
		Short: "Delete every entry and the store directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				return st.Erase()
			})
		},
	}
}

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path <key>",
		Short: "Print the file that holds key's entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(rootOpts, cmd, func(st *store.Store[[]byte]) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), st.Path(args[0]))
				return err
			})
		},
	}
}

func keyError(key string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%q: %w", key, err)
	}
	return err
}
