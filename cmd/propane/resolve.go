package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/propanelib/propane/compose"
	"github.com/propanelib/propane/emit"
	"github.com/propanelib/propane/validate"
)

func resolveCmd(opts *rootOptions) *cobra.Command {
	var (
		version string
		sets    []string
	)

	cmd := &cobra.Command{
		Use:   "resolve <category> <name>",
		Short: "Resolve a fragment and emit its CFEngine body",
		Long: `Resolve merges a fragment with its ancestors, applies parameter
bindings and prints the composed CFEngine body on standard output.

Without --version the highest registered version is used. Bindings are
supplied as --set key=value; list parameters take comma-separated
values.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, name := args[0], args[1]

			raw, err := parseSetFlags(sets)
			if err != nil {
				return err
			}

			cat, _, err := loadCatalog(opts)
			if err != nil {
				return err
			}

			snap := cat.Snapshot()
			resolver := compose.NewResolver(snap)

			root, err := snap.Lookup(category, name, version)
			if err != nil {
				return err
			}
			params, err := resolver.MergedParameters(root)
			if err != nil {
				return err
			}
			bindings, err := validate.ParseBindings(root.Identity, params, raw)
			if err != nil {
				return err
			}

			resolved, err := resolver.Resolve(cmd.Context(), category, name, version, bindings)
			if err != nil {
				return err
			}

			text, err := emit.Emit(resolved)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Fragment version (default: highest)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Parameter binding key=value (repeatable)")

	return cmd
}

// parseSetFlags splits repeated --set key=value flags into a raw
// binding map.
func parseSetFlags(sets []string) (map[string]string, error) {
	raw := make(map[string]string, len(sets))
	for _, s := range sets {
		key, value, found := strings.Cut(s, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set %q (want key=value)", s)
		}
		raw[key] = value
	}
	return raw, nil
}
