package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/matthacksteiner/kinderlosfrei/internal/app"
	"github.com/matthacksteiner/kinderlosfrei/internal/manifest"
	"github.com/spf13/cobra"
)

func newManifestCmd(g *globalFlags) *cobra.Command {
	var continueOnError bool

	cmd := &cobra.Command{
		Use:   "manifest <file>",
		Short: "Sync every site listed in a manifest",
		Long: `Manifest syncs several CMS installations, each into its own content
directory, as listed in a YAML or JSON manifest:

  sites:
    - name: main
      url: https://cms.example.com
      content_dir: ./sites/main/public/content
  options:
    concurrency: 2
    continue_on_error: true`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			m, err := manifest.Load(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("continue-on-error") {
				m.Options.ContinueOnError = continueOnError
			}

			base := app.OptionsFromConfig(cfg, logger)
			results, err := app.RunManifest(cmd.Context(), m, base, app.RunOptions{ForceFullSync: cfg.Sync.ForceFull})
			printManifestResults(cmd.OutOrStdout(), results)
			return err
		},
	}
	addSyncFlags(cmd)
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep syncing other sites after a failure")
	return cmd
}

func printManifestResults(w io.Writer, results []app.SiteResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tMODE\tCHANGED\tTOTAL\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Error != nil {
			status = r.Error.Error()
		}
		mode, changed, total := "-", 0, 0
		if r.Result != nil {
			mode = string(r.Result.Mode)
			changed, total = r.Result.ChangedFiles, r.Result.TotalFiles
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", r.Site.Label(), mode, changed, total, status)
	}
	_ = tw.Flush()
}
