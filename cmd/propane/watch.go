package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/propanelib/propane/catalog"
	"github.com/propanelib/propane/loader"
)

func watchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-lint the catalog whenever a definition file changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			watcher, err := loader.NewWatcher(cfg.Catalog.Paths, cfg.Watch.Debounce, slog.Default())
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Stop()

			// Initial pass so problems show before the first change.
			relint(cmd, cfg.Catalog.Paths)

			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events():
					if !ok {
						return nil
					}
					slog.Info("Definition change detected",
						"path", event.Path,
						"removed", event.Removed)
					relint(cmd, cfg.Catalog.Paths)
				}
			}
		},
	}
	return cmd
}

// relint reloads the catalog from scratch and reports problems. Load
// failures (parse errors, duplicates) are reported but do not stop the
// watch loop.
func relint(cmd *cobra.Command, paths []string) {
	cat := catalog.New()
	n, err := loader.LoadGlobs(paths, cat)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "load: %v\n", err)
		return
	}

	problems := lintCatalog(cat)
	for _, p := range problems {
		fmt.Fprintln(cmd.ErrOrStderr(), p)
	}
	if len(problems) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d fragment(s)\n", n)
	}
}
