package main

import (
	"fmt"
	"io"

	"github.com/matthacksteiner/kinderlosfrei/internal/app"
	"github.com/spf13/cobra"
)

func newSyncCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the content tree from the CMS",
		Long: `Sync mirrors global.json, index.json and every page of every language
into the content directory. A full resync runs on the first run, when the
sync state is unusable or when --full is given; otherwise only changed
documents are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			o, err := app.NewOrchestrator(app.OptionsFromConfig(cfg, logger))
			if err != nil {
				return fmt.Errorf("failed to create orchestrator: %w", err)
			}
			defer o.Close()

			res, err := o.Run(cmd.Context(), app.RunOptions{})
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	addSyncFlags(cmd)
	return cmd
}

// printResult writes a short human readable summary of a run
func printResult(w io.Writer, res *app.Result) {
	switch {
	case res.Phase == app.PhaseFailed:
		fmt.Fprintf(w, "Sync failed (%s mode)\n", res.Mode)
	case res.UpToDate():
		fmt.Fprintln(w, "Content is up to date")
	default:
		fmt.Fprintf(w, "Synced %d of %d files (%s mode", res.ChangedFiles, res.TotalFiles, res.Mode)
		if res.FellBack {
			fmt.Fprint(w, " after incremental fallback")
		}
		fmt.Fprintln(w, ")")
	}

	for _, s := range res.Skipped {
		fmt.Fprintf(w, "  skipped %s/%s: HTTP %d\n", s.Pass, s.URI, s.StatusCode)
	}
	if res.Pruned > 0 {
		fmt.Fprintf(w, "  dropped %d removed resources from the sync state\n", res.Pruned)
	}
}
