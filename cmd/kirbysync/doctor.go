package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/cache"
	"github.com/matthacksteiner/kinderlosfrei/internal/config"
	"github.com/matthacksteiner/kinderlosfrei/internal/discovery"
	"github.com/matthacksteiner/kinderlosfrei/internal/fetcher"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/matthacksteiner/kinderlosfrei/pkg/version"
	"github.com/spf13/cobra"
)

func newDoctorCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and CMS connectivity",
		Long:  "Verifies the configuration, reaches the CMS API and checks that the content and state directories are writable.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Checking kirbysync setup...")

			fmt.Fprint(out, "  Config: ")
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				fmt.Fprintf(out, "FAILED (%v)\n", err)
				return errors.New("some checks failed")
			}
			fmt.Fprintf(out, "OK (mode %s)\n", cfg.Build.Mode)

			allPassed := true

			fmt.Fprint(out, "  CMS API: ")
			if langs, err := checkCMS(cmd.Context(), cfg, logger); err != nil {
				fmt.Fprintf(out, "FAILED (%v)\n", err)
				allPassed = false
			} else {
				fmt.Fprintf(out, "OK (%s, languages %s)\n", cfg.API.BaseURL, strings.Join(langs, ", "))
			}

			fmt.Fprint(out, "  Content directory: ")
			allPassed = reportWritable(out, utils.ExpandPath(cfg.Content.Directory)) && allPassed

			fmt.Fprint(out, "  State directory: ")
			allPassed = reportWritable(out, utils.ExpandPath(cfg.Cache.StateDir)) && allPassed

			fmt.Fprint(out, "  Sync state: ")
			m := state.NewManager(state.ManagerOptions{Path: utils.ExpandPath(cfg.StateFile())})
			if err := m.Load(cmd.Context()); err != nil {
				fmt.Fprintf(out, "NONE (%v, next sync is full)\n", err)
			} else {
				fmt.Fprintf(out, "OK (%d resources)\n", m.Snapshot().HashCount())
			}

			fmt.Fprint(out, "  Build cache: ")
			if !cfg.Cache.Enabled {
				fmt.Fprintln(out, "DISABLED")
			} else {
				reportCache(out, utils.ExpandPath(cfg.Cache.Directory))
			}

			if cfg.Build.Tolerant {
				fmt.Fprintf(out, "  Tolerant host: %s is set, sync failures will not fail builds\n", cfg.Build.TolerantEnv)
			}

			fmt.Fprintln(out)
			if !allPassed {
				fmt.Fprintln(out, "Some checks failed. Please resolve the issues above.")
				return errors.New("some checks failed")
			}
			fmt.Fprintln(out, "All checks passed!")
			return nil
		},
	}
}

// checkCMS fetches and validates global.json with a single attempt
func checkCMS(ctx context.Context, cfg *config.Config, logger *utils.Logger) ([]string, error) {
	if cfg.API.BaseURL == "" {
		return nil, errors.New("api.base_url is not set (KIRBY_URL)")
	}

	timeout := min(cfg.API.Timeout, 10*time.Second)
	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout: timeout,
		Retries: 1,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := discovery.NewDiscoverer(client, cfg.API.BaseURL, logger).Discover(ctx)
	if err != nil {
		return nil, err
	}
	return res.Languages, nil
}

// reportWritable prints whether dir can be created and written to
func reportWritable(out io.Writer, dir string) bool {
	if err := checkWritable(dir); err != nil {
		fmt.Fprintf(out, "FAILED (%v)\n", err)
		return false
	}
	fmt.Fprintf(out, "OK (%s)\n", dir)
	return true
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".kirbysync-doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// reportCache prints how many sync states the build cache holds. Problems
// only warn since builds run without a cache.
func reportCache(out io.Writer, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		fmt.Fprintln(out, "WARN (will be created on first use)")
		return
	}

	c, err := cache.NewBadgerCache(cache.Options{Directory: dir})
	if err != nil {
		fmt.Fprintf(out, "WARN (%v)\n", err)
		return
	}
	defer c.Close()

	n, err := c.Count(cache.PrefixState + ":")
	if err != nil {
		fmt.Fprintf(out, "WARN (%v)\n", err)
		return
	}
	fmt.Fprintf(out, "OK (%s, %d cached sync states)\n", dir, n)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Get().String())
		},
	}
}
