package main

import (
	"github.com/spf13/cobra"
)

func newPrebuildCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prebuild",
		Short: "Run the content sync before a site build",
		Long: `Prebuild restores the sync state from the build cache, then syncs.
Nothing happens in development mode (NODE_ENV=development). On a tolerant
host (NETLIFY set) a failed sync is logged and the build continues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeCache, err := newAdapter(cmd, g)
			if err != nil {
				return err
			}
			defer closeCache()

			if err := a.OnPreBuild(cmd.Context()); err != nil {
				return err
			}
			if res := a.LastResult(); res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return nil
		},
	}
	addSyncFlags(cmd)
	return cmd
}

func newPostbuildCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "postbuild",
		Short: "Store the sync state in the build cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeCache, err := newAdapter(cmd, g)
			if err != nil {
				return err
			}
			defer closeCache()

			return a.OnPostBuild(cmd.Context())
		},
	}
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build -- <command> [args...]",
		Short: "Sync, run the site generator, then store the sync state",
		Example: `  kirbysync build -- npm run build
  kirbysync build --full -- astro build`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, closeCache, err := newAdapter(cmd, g)
			if err != nil {
				return err
			}
			defer closeCache()

			return a.Build(cmd.Context(), args)
		},
	}
	addSyncFlags(cmd)
	return cmd
}
