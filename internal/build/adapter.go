// Package build runs content syncs as part of a static site build: before the
// site generator (prebuild), after it (postbuild) or wrapped around it.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/matthacksteiner/kinderlosfrei/internal/app"
	"github.com/matthacksteiner/kinderlosfrei/internal/cache"
	"github.com/matthacksteiner/kinderlosfrei/internal/config"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Adapter connects the sync orchestrator to the build lifecycle
type Adapter struct {
	cfg    *config.Config
	sync   app.OrchestratorOptions
	cache  domain.Cache
	logger *utils.Logger
	stdout io.Writer
	stderr io.Writer

	last *app.Result
}

// Options contains options for creating an Adapter
type Options struct {
	Config *config.Config
	// Sync overrides the orchestrator options derived from Config
	Sync *app.OrchestratorOptions
	// Cache persists the sync state between builds; nil disables it
	Cache  domain.Cache
	Logger *utils.Logger
	// Stdout and Stderr receive the build command output
	Stdout io.Writer
	Stderr io.Writer
}

// NewAdapter creates a new build adapter
func NewAdapter(opts Options) (*Adapter, error) {
	if opts.Config == nil {
		return nil, errors.New("build adapter requires a configuration")
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	var syncOpts app.OrchestratorOptions
	if opts.Sync != nil {
		syncOpts = *opts.Sync
	} else {
		syncOpts = app.OptionsFromConfig(opts.Config, logger)
	}
	if syncOpts.Logger == nil {
		syncOpts.Logger = logger
	}

	a := &Adapter{
		cfg:    opts.Config,
		sync:   syncOpts,
		cache:  opts.Cache,
		logger: logger.WithComponent("build"),
		stdout: opts.Stdout,
		stderr: opts.Stderr,
	}
	if a.stdout == nil {
		a.stdout = os.Stdout
	}
	if a.stderr == nil {
		a.stderr = os.Stderr
	}
	return a, nil
}

// OnPreBuild syncs the content tree before the site generator runs. It is a
// no-op in development mode. A failed sync fails the build unless the
// tolerant hosting flag is set.
func (a *Adapter) OnPreBuild(ctx context.Context) error {
	if a.cfg.Build.IsDevelopment() {
		a.logger.Info().Msg("Development mode: skipping content sync")
		return nil
	}

	if utils.TrimBaseURL(a.sync.APIBaseURL) == "" {
		if a.cfg.Build.Tolerant {
			a.logger.Warn().Msg("CMS API base URL is not set, skipping content sync")
			return nil
		}
		return domain.ErrMissingBaseURL
	}

	a.restoreState(ctx)

	o, err := app.NewOrchestrator(a.sync)
	if err != nil {
		return a.tolerate(fmt.Errorf("content sync: %w", err))
	}
	defer o.Close()

	res, err := o.Run(ctx, app.RunOptions{ForceFullSync: a.cfg.Sync.ForceFull})
	a.last = res
	if err != nil {
		return a.tolerate(fmt.Errorf("content sync: %w", err))
	}
	return nil
}

// OnPostBuild persists the sync state into the build cache
func (a *Adapter) OnPostBuild(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}

	m := state.NewManager(state.ManagerOptions{Path: a.sync.StateFile, Logger: a.logger})
	if err := m.Load(ctx); err != nil {
		a.logger.Debug().Err(err).Str("path", m.Path()).Msg("No usable sync state to cache")
		return nil
	}

	data, err := m.Bytes()
	if err != nil {
		return fmt.Errorf("encode sync state: %w", err)
	}
	if err := a.cache.Set(ctx, a.cacheKey(), data, a.cfg.Cache.TTL); err != nil {
		return fmt.Errorf("store sync state in cache: %w", err)
	}

	a.logger.Info().Str("path", m.Path()).Msg("Sync state stored in build cache")
	return nil
}

// Build runs prebuild, the site generator command and postbuild. A postbuild
// failure is logged and does not fail the build.
func (a *Adapter) Build(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("build command is required")
	}

	if err := a.OnPreBuild(ctx); err != nil {
		return err
	}

	a.logger.Info().Strs("command", argv).Msg("Running build command")
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = a.stdout
	cmd.Stderr = a.stderr
	cmd.Env = os.Environ()
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build command %q: %w", argv[0], err)
	}

	if err := a.OnPostBuild(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to persist sync state")
	}
	return nil
}

// LastResult returns the result of the most recent prebuild sync, if any
func (a *Adapter) LastResult() *app.Result {
	return a.last
}

// restoreState seeds the local state file from the build cache when the
// workspace starts without one.
func (a *Adapter) restoreState(ctx context.Context) {
	if a.cache == nil || a.cfg.Sync.ForceFull {
		return
	}

	m := state.NewManager(state.ManagerOptions{Path: a.sync.StateFile, Logger: a.logger})
	if m.Exists() {
		return
	}

	data, err := a.cache.Get(ctx, a.cacheKey())
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			a.logger.Warn().Err(err).Msg("Failed to read sync state from cache")
		}
		return
	}

	if err := m.Restore(data); err != nil {
		a.logger.Warn().Err(err).Msg("Cached sync state is unusable, ignoring")
		return
	}
	if err := m.Save(ctx); err != nil {
		a.logger.Warn().Err(err).Str("path", m.Path()).Msg("Failed to write restored sync state")
		return
	}
	a.logger.Info().Str("path", m.Path()).Msg("Restored sync state from build cache")
}

func (a *Adapter) tolerate(err error) error {
	if !a.cfg.Build.Tolerant {
		return err
	}
	a.logger.Warn().Err(err).Str("env", a.cfg.Build.TolerantEnv).Msg("Continuing build despite content sync failure")
	return nil
}

func (a *Adapter) cacheKey() string {
	return cache.StateKey(a.sync.APIBaseURL, a.sync.ContentDir)
}
