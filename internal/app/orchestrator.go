package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/matthacksteiner/kinderlosfrei/internal/discovery"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/fetcher"
	"github.com/matthacksteiner/kinderlosfrei/internal/output"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Orchestrator mirrors the content tree of one CMS into one content directory
type Orchestrator struct {
	baseURL    string
	fetcher    domain.Fetcher
	discoverer *discovery.Discoverer
	writer     *output.Writer
	state      *state.Manager
	logger     *utils.Logger
	opts       OrchestratorOptions
	closer     io.Closer
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	APIBaseURL string
	ContentDir string
	// StateFile defaults to .kirbysync/kirby-sync-state.json
	StateFile string
	Logger    *utils.Logger

	// Fetcher defaults to an HTTP client with FetchOptions
	Fetcher      domain.Fetcher
	FetchOptions fetcher.ClientOptions
	// Filesystem overrides the on-disk content directory
	Filesystem billy.Filesystem

	ForceFullSync    bool
	CanonicalHash    bool
	SkipMissingPages bool
	StrictWrites     bool
	DedupeDefault    bool
	// Concurrency is the number of language passes run at once
	Concurrency  int
	CleanExclude []string

	// Lock takes an advisory lock on LockPath for the whole run
	Lock     bool
	LockPath string

	ShowProgress   bool
	ProgressOutput io.Writer

	// Clock defaults to time.Now
	Clock func() time.Time
}

// RunOptions are per-run overrides
type RunOptions struct {
	ForceFullSync bool
}

// NewOrchestrator creates a new orchestrator with the given options
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	base := utils.TrimBaseURL(opts.APIBaseURL)
	if base == "" {
		return nil, domain.ErrMissingBaseURL
	}
	if !utils.IsHTTPURL(base) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidURL, base)
	}
	if opts.ContentDir == "" {
		return nil, fmt.Errorf("content directory is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if opts.StateFile == "" {
		opts.StateFile = filepath.Join(".kirbysync", state.StateFileName)
	}
	if opts.LockPath == "" {
		opts.LockPath = filepath.Join(filepath.Dir(opts.StateFile), ".kirbysync.lock")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.ProgressOutput == nil {
		opts.ProgressOutput = os.Stderr
	}

	o := &Orchestrator{
		baseURL: base,
		logger:  logger.WithComponent("sync"),
		opts:    opts,
	}

	o.fetcher = opts.Fetcher
	if o.fetcher == nil {
		clientOpts := opts.FetchOptions
		if clientOpts.Retries == 0 {
			clientOpts = fetcher.DefaultClientOptions()
		}
		clientOpts.Logger = logger
		client, err := fetcher.NewClient(clientOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create fetch client: %w", err)
		}
		o.fetcher = client
		o.closer = client
	}

	o.discoverer = discovery.NewDiscoverer(o.fetcher, base, logger)
	o.writer = output.NewWriter(output.WriterOptions{
		BaseDir:    opts.ContentDir,
		Filesystem: opts.Filesystem,
		Strict:     opts.StrictWrites,
		Logger:     logger,
	})
	o.state = state.NewManager(state.ManagerOptions{
		Path:   opts.StateFile,
		Logger: logger,
	})

	return o, nil
}

// Run executes one sync. Full mode is used when forced, on first run or when
// the state cannot be loaded; otherwise an incremental run is attempted and
// restarted once in full mode if it fails.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	start := o.opts.Clock()
	r := &run{
		o:      o,
		result: &Result{RunID: uuid.NewString()},
	}
	r.logger = o.logger.WithRunID(r.result.RunID)
	r.result.enter(PhaseIdle)

	if o.opts.Lock {
		unlock, err := acquireLock(o.opts.LockPath)
		if err != nil {
			r.result.enter(PhaseFailed)
			return r.result, err
		}
		defer unlock()
	}

	r.result.enter(PhaseDiscovering)
	force := opts.ForceFullSync || o.opts.ForceFullSync
	r.result.Mode = o.selectMode(ctx, r.logger, force)

	var err error
	if r.result.Mode == ModeIncremental {
		err = r.incremental(ctx)
		if err != nil && canFallBack(ctx, err) {
			r.logger.Warn().Err(err).Msg("Incremental sync failed, falling back to full sync")
			r.result.FellBack = true
			r.result.Mode = ModeFull
			r.result.resetCounters()
			err = r.full(ctx)
		}
	} else {
		err = r.full(ctx)
	}

	r.result.Duration = o.opts.Clock().Sub(start)
	r.result.State = o.state.Snapshot()

	if err != nil {
		r.result.enter(PhaseFailed)
		r.logger.Error().Err(err).Str("mode", string(r.result.Mode)).Msg("Sync failed")
		return r.result, err
	}

	r.result.enter(PhaseDone)
	event := r.logger.Info().
		Str("mode", string(r.result.Mode)).
		Int("changed", r.result.ChangedFiles).
		Int("total", r.result.TotalFiles).
		Int("skipped", len(r.result.Skipped)).
		Dur("duration", r.result.Duration)
	if r.result.UpToDate() {
		event.Msg("Content is up to date")
	} else {
		event.Msg("Sync completed")
	}
	return r.result, nil
}

func (o *Orchestrator) selectMode(ctx context.Context, logger *utils.Logger, force bool) Mode {
	loadErr := o.state.Load(ctx)
	switch {
	case force:
		logger.Info().Msg("Full sync forced")
		return ModeFull
	case errors.Is(loadErr, state.ErrStateNotFound):
		logger.Info().Msg("No previous sync state, running full sync")
		return ModeFull
	case loadErr != nil:
		logger.Warn().Err(loadErr).Msg("Sync state unusable, running full sync")
		return ModeFull
	case o.state.LastSync() == nil:
		logger.Info().Msg("No completed sync recorded, running full sync")
		return ModeFull
	}
	logger.Info().Time("last_sync", *o.state.LastSync()).Msg("Running incremental sync")
	return ModeIncremental
}

// canFallBack reports whether a failed incremental run may be retried in
// full mode. Invalid CMS configuration would fail again and cancellation
// must stop the run.
func canFallBack(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !domain.IsInvalidConfig(err) && !errors.Is(err, domain.ErrSyncLocked)
}

// State returns the state manager, for inspection and the build cache
func (o *Orchestrator) State() *state.Manager {
	return o.state
}

// BaseURL returns the normalized API base URL
func (o *Orchestrator) BaseURL() string {
	return o.baseURL
}

// Close releases all resources held by the orchestrator
func (o *Orchestrator) Close() error {
	if o.closer != nil {
		return o.closer.Close()
	}
	return nil
}
