package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/matthacksteiner/kinderlosfrei/internal/cache"
	"github.com/matthacksteiner/kinderlosfrei/internal/output"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/spf13/cobra"
)

func newStateCmd(g *globalFlags) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}

			m := state.NewManager(state.ManagerOptions{
				Path:   utils.ExpandPath(cfg.StateFile()),
				Logger: logger,
			})
			out := cmd.OutOrStdout()

			loadErr := m.Load(cmd.Context())
			switch {
			case errors.Is(loadErr, state.ErrStateNotFound):
				fmt.Fprintf(out, "No sync state at %s, the next sync is a full sync\n", m.Path())
				return nil
			case loadErr != nil:
				fmt.Fprintf(out, "Sync state at %s is unusable (%v), the next sync is a full sync\n", m.Path(), loadErr)
				return nil
			}

			if raw {
				data, err := m.Bytes()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			snap := m.Snapshot()
			fmt.Fprintf(out, "State file:  %s\n", m.Path())
			fmt.Fprintf(out, "Version:     %s\n", snap.Version)
			if snap.LastSync != nil {
				fmt.Fprintf(out, "Last sync:   %s\n", snap.LastSync.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "Last sync:   never")
			}
			fmt.Fprintf(out, "Resources:   %d\n", snap.HashCount())

			dir := utils.ExpandPath(cfg.Content.Directory)
			files, size, err := output.NewWriter(output.WriterOptions{BaseDir: dir, Logger: logger}).Stats()
			if err != nil {
				return fmt.Errorf("scan content directory: %w", err)
			}
			fmt.Fprintf(out, "Content:     %d files, %s in %s\n", files, humanize.Bytes(uint64(size)), dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "json", false, "Print the state file as JSON")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete the sync state so the next sync is a full sync",
		Long: `Clear removes the local sync state file. When the build cache is enabled
and the API URL is known, the cached copy is removed too so the next
prebuild cannot restore it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			path := utils.ExpandPath(cfg.StateFile())
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("remove sync state: %w", err)
			}
			fmt.Fprintf(out, "Removed %s\n", path)

			if cfg.API.BaseURL == "" {
				return nil
			}
			c, closeCache, err := openCache(cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()
			if c == nil {
				return nil
			}

			key := cache.StateKey(cfg.API.BaseURL, utils.ExpandPath(cfg.Content.Directory))
			if err := c.Delete(cmd.Context(), key); err != nil {
				return fmt.Errorf("remove cached sync state: %w", err)
			}
			fmt.Fprintln(out, "Removed cached sync state")
			return nil
		},
	})
	return cmd
}
