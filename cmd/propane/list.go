package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [category]",
		Short: "List catalog fragments",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category := ""
			if len(args) == 1 {
				category = args[0]
			}

			cat, _, err := loadCatalog(opts)
			if err != nil {
				return err
			}

			fragments := cat.List(category)
			if len(fragments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no fragments found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CATEGORY\tNAME\tVERSION\tPARENTS\tPARAMS\tATTRS")
			for _, f := range fragments {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					f.Identity.Category,
					f.Identity.Name,
					f.Identity.Version,
					len(f.Parents),
					len(f.Parameters),
					len(f.Attributes))
			}
			return w.Flush()
		},
	}
	return cmd
}
