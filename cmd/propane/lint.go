package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/propanelib/propane/body"
	"github.com/propanelib/propane/compose"
)

func lintCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check every catalog fragment",
		Long: `Lint loads the catalog and checks each fragment: parents must
exist, the inheritance graph must be acyclic, and every $(param)
reference in an attribute must name a declared or inherited parameter.
Local invariants (unique keys, typed defaults, well-formed constraints)
are enforced at load time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, _, err := loadCatalog(opts)
			if err != nil {
				return err
			}
			problems := lintCatalog(cat)
			for _, p := range problems {
				fmt.Fprintln(cmd.ErrOrStderr(), p)
			}
			if len(problems) > 0 {
				// Summarize; the first problem rides along so the exit
				// code reflects its kind.
				return fmt.Errorf("%d problem(s) found in %d fragment(s): %w",
					len(problems), cat.Len(), problems[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d fragment(s)\n", cat.Len())
			return nil
		},
	}
	return cmd
}

// linterSource is the subset of the catalog the linter needs.
type linterSource interface {
	List(category string) []*body.Fragment
	Lookup(category, name, version string) (*body.Fragment, error)
}

// lintCatalog checks every fragment and returns one error per problem
// found. An empty result means the catalog is clean. Errors keep their
// underlying kind so callers can map them to exit codes.
func lintCatalog(cat linterSource) []error {
	resolver := compose.NewResolver(cat)
	var problems []error

	for _, f := range cat.List("") {
		if err := resolver.Check(f); err != nil {
			problems = append(problems, err)
			continue
		}

		params, err := resolver.MergedParameters(f)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		declared := make(map[string]bool, len(params))
		for _, p := range params {
			declared[p.Name] = true
		}

		for _, a := range f.Attributes {
			for _, name := range compose.References(a.Value) {
				if !declared[name] {
					problems = append(problems, fmt.Errorf(
						"fragment %s: attribute %q: %w: $(%s) names no declared parameter",
						f.Identity, a.Key, compose.ErrUnresolvedReference, name))
				}
			}
		}
	}
	return problems
}
