package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthacksteiner/kinderlosfrei/internal/app"
	"github.com/matthacksteiner/kinderlosfrei/internal/build"
	"github.com/matthacksteiner/kinderlosfrei/internal/cache"
	"github.com/matthacksteiner/kinderlosfrei/internal/config"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/matthacksteiner/kinderlosfrei/pkg/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every command
type globalFlags struct {
	cfgFile string
	envFile string
	verbose bool
}

// flagKeys maps command line flags onto configuration keys
var flagKeys = map[string]string{
	"url":            "api.base_url",
	"timeout":        "api.timeout",
	"retries":        "api.retries",
	"backoff":        "api.backoff",
	"content-dir":    "content.directory",
	"state-dir":      "cache.state_dir",
	"log-format":     "logging.format",
	"log-level":      "logging.level",
	"full":           "sync.force_full",
	"concurrency":    "sync.concurrency",
	"canonical-hash": "sync.canonical_hash",
	"dedupe-default": "sync.dedupe_default",
	"progress":       "sync.progress",
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "kirbysync",
		Short: "Mirror Kirby CMS content to disk for static site builds",
		Long: `kirbysync downloads the JSON content tree of a Kirby headless CMS into
the content directory of a static site, in every language the CMS publishes.

The first run and forced runs resync everything. Later runs compare content
hashes and only rewrite documents that changed.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.cfgFile, "config", "", "config file (default is ./config.yaml or ~/.kirbysync/config.yaml)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file loaded before the environment")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose output")
	pf.StringP("url", "u", "", "CMS API base URL (KIRBY_URL)")
	pf.StringP("content-dir", "o", config.DefaultContentDir, "Content directory")
	pf.String("state-dir", config.DefaultStateDir, "Directory of the sync state file and lock")
	pf.Duration("timeout", config.DefaultTimeout, "Request timeout")
	pf.Int("retries", config.DefaultRetries, "Attempts per request")
	pf.String("backoff", config.DefaultBackoff, "Retry backoff (fixed or exponential)")
	pf.String("log-format", config.DefaultLogFormat, "Log format (pretty or json)")
	pf.String("log-level", config.DefaultLogLevel, "Log level")

	root.AddCommand(
		newSyncCmd(g),
		newPrebuildCmd(g),
		newPostbuildCmd(g),
		newBuildCmd(g),
		newManifestCmd(g),
		newStateCmd(g),
		newDoctorCmd(g),
		newVersionCmd(),
	)
	return root
}

// addSyncFlags registers the flags of commands that run a sync
func addSyncFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("full", false, "Force a full resync (FORCE_FULL_SYNC)")
	f.IntP("concurrency", "j", config.DefaultConcurrency, "Language passes run at once")
	f.Bool("canonical-hash", false, "Ignore key order when comparing content")
	f.Bool("dedupe-default", false, "Fetch the default language once for both destinations")
	f.Bool("progress", false, "Show progress bars")
	f.Bool("no-lock", false, "Do not take the sync lock")
}

// loadConfig loads the configuration with the command's flags bound on top
func loadConfig(cmd *cobra.Command, g *globalFlags) (*config.Config, *utils.Logger, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	cfg, err := config.LoadWithOptions(v, config.LoadOptions{
		ConfigFile: g.cfgFile,
		EnvFile:    g.envFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if noLock, _ := cmd.Flags().GetBool("no-lock"); noLock {
		cfg.Sync.Lock = false
	}

	return cfg, app.NewLogger(cfg, g.verbose), nil
}

// openCache opens the build cache when enabled. The returned func closes it.
func openCache(cfg *config.Config, logger *utils.Logger) (domain.Cache, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	c, err := cache.NewBadgerCache(cache.Options{
		Directory: utils.ExpandPath(cfg.Cache.Directory),
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open build cache: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

// newAdapter creates the build adapter and its cache
func newAdapter(cmd *cobra.Command, g *globalFlags) (*build.Adapter, func(), error) {
	cfg, logger, err := loadConfig(cmd, g)
	if err != nil {
		return nil, nil, err
	}

	c, closeCache, err := openCache(cfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Build cache unavailable, continuing without it")
		c, closeCache = nil, func() {}
	}

	a, err := build.NewAdapter(build.Options{
		Config: cfg,
		Cache:  c,
		Logger: logger,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err != nil {
		closeCache()
		return nil, nil, err
	}
	return a, closeCache, nil
}
