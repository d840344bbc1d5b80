package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/matthacksteiner/kinderlosfrei/internal/manifest"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// SiteResult represents the result of syncing one manifest site
type SiteResult struct {
	Site     manifest.Site
	Result   *Result
	Error    error
	Duration time.Duration
}

// RunManifest syncs every site of the manifest, at most
// Options.Concurrency at a time. base supplies the settings sites do not
// override.
func RunManifest(ctx context.Context, m *manifest.Config, base OrchestratorOptions, runOpts RunOptions) ([]SiteResult, error) {
	startTime := time.Now()
	logger := base.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger = logger.WithComponent("manifest")

	total := len(m.Sites)
	logger.Info().
		Int("sites", total).
		Bool("continue_on_error", m.Options.ContinueOnError).
		Msg("Starting manifest execution")

	results := make([]SiteResult, total)
	var firstError error
	var firstErrorMu sync.Mutex

	runCtx := ctx
	var cancel context.CancelFunc
	if !m.Options.ContinueOnError {
		runCtx, cancel = context.WithCancel(ctx)
		defer cancel()
	}

	var bar *progressbar.ProgressBar
	if base.ShowProgress {
		if base.ProgressOutput != nil {
			bar = utils.NewProgressBarTo(base.ProgressOutput, total, utils.DescSites)
		} else {
			bar = utils.NewProgressBar(total, utils.DescSites)
		}
		defer bar.Finish()
	}

	indexes := make([]int, total)
	for i := range indexes {
		indexes[i] = i
	}

	errs := utils.ParallelForEach(runCtx, indexes, m.Options.Concurrency, func(ctx context.Context, idx int) error {
		site := m.Sites[idx]
		siteStart := time.Now()

		res, err := runSite(ctx, site, siteOptions(site, m.Options, base), runOpts)
		results[idx] = SiteResult{
			Site:     site,
			Result:   res,
			Error:    err,
			Duration: time.Since(siteStart),
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if err != nil {
			logger.Error().
				Err(err).
				Str("site", site.Label()).
				Dur("duration", results[idx].Duration).
				Msg("Site sync failed")

			firstErrorMu.Lock()
			if firstError == nil {
				firstError = fmt.Errorf("site %s failed: %w", site.Label(), err)
			}
			firstErrorMu.Unlock()
			if cancel != nil {
				cancel()
			}
			return err
		}

		logger.Info().
			Str("site", site.Label()).
			Int("changed", res.ChangedFiles).
			Dur("duration", results[idx].Duration).
			Msg("Site sync completed")
		return nil
	})

	// sites that never started because of cancellation
	for i, err := range errs {
		if results[i].Site.URL == "" {
			results[i] = SiteResult{Site: m.Sites[i], Error: err}
		}
	}

	siteErrs := make([]error, total)
	for i, r := range results {
		siteErrs[i] = r.Error
	}
	failed := len(utils.CollectErrors(siteErrs))

	logger.Info().
		Dur("total_duration", time.Since(startTime)).
		Int("total", total).
		Int("success", total-failed).
		Int("failed", failed).
		Msg("Manifest execution completed")

	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	if firstError != nil {
		return results, fmt.Errorf("manifest completed with %d/%d failures: %w", failed, total, firstError)
	}
	return results, nil
}

func runSite(ctx context.Context, site manifest.Site, opts OrchestratorOptions, runOpts RunOptions) (*Result, error) {
	o, err := NewOrchestrator(opts)
	if err != nil {
		return nil, err
	}
	defer o.Close()

	return o.Run(ctx, runOpts)
}

// siteOptions derives the options of one site from the shared base
func siteOptions(site manifest.Site, mo manifest.Options, base OrchestratorOptions) OrchestratorOptions {
	opts := base
	opts.APIBaseURL = site.URL
	opts.ContentDir = site.ContentDir
	opts.Filesystem = nil
	opts.StateFile = filepath.Join(site.StateDir(mo.StateDir), state.StateFileName)
	opts.LockPath = ""
	opts.ShowProgress = false
	if base.Logger != nil {
		opts.Logger = base.Logger.WithSite(site.Label())
	}

	if site.ForceFullSync != nil {
		opts.ForceFullSync = *site.ForceFullSync
	}
	if site.CanonicalHash != nil {
		opts.CanonicalHash = *site.CanonicalHash
	}
	if site.DedupeDefault != nil {
		opts.DedupeDefault = *site.DedupeDefault
	}
	return opts
}
