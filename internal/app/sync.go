package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/matthacksteiner/kinderlosfrei/internal/discovery"
	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/state"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// run carries the state of a single Orchestrator.Run call
type run struct {
	o      *Orchestrator
	logger *utils.Logger
	result *Result
}

// full discovers languages, wipes the content directory and the hash map,
// then writes every resource. Discovery runs first so an unreachable CMS
// leaves the previous content tree in place.
func (r *run) full(ctx context.Context) error {
	disc, err := r.o.discoverer.Discover(ctx)
	if err != nil {
		return err
	}

	r.result.enter(PhaseFullSyncing)

	if err := r.o.writer.Clean(".", r.o.opts.CleanExclude...); err != nil {
		return fmt.Errorf("clean content directory: %w", err)
	}
	r.o.state.Reset(r.o.opts.Clock())

	if err := r.runPasses(ctx, disc, true); err != nil {
		return err
	}

	r.save(ctx)
	return nil
}

// incremental writes only resources whose fingerprint changed or whose
// destination file is missing.
func (r *run) incremental(ctx context.Context) error {
	disc, err := r.o.discoverer.Discover(ctx)
	if err != nil {
		return err
	}

	r.result.enter(PhaseIncrementalSyncing)

	if err := r.runPasses(ctx, disc, false); err != nil {
		return err
	}

	total, seen := r.o.state.Stats()
	r.logger.Debug().Int("tracked", total).Int("seen", seen).Msg("Checked tracked resources")
	if pruned := r.o.state.PruneUnseen(); pruned > 0 {
		r.result.Pruned = pruned
		r.logger.Info().Int("pruned", pruned).Msg("Dropped hashes of removed resources")
	}
	r.o.state.Touch(r.o.opts.Clock())
	r.save(ctx)
	return nil
}

// save persists the state; a failure only costs the next run a full sync
func (r *run) save(ctx context.Context) {
	if err := r.o.state.Save(ctx); err != nil {
		r.logger.Warn().Err(err).Str("path", r.o.state.Path()).Msg("Failed to save sync state")
	}
}

// runPasses walks every language pass. With concurrency 1 passes run in
// order: default language first, then translations as listed by the CMS.
func (r *run) runPasses(ctx context.Context, disc *discovery.Result, unconditional bool) error {
	passes := discovery.Passes(disc.Global, r.o.opts.DedupeDefault)
	stats := make([]PassStats, len(passes))

	if r.o.opts.Concurrency <= 1 || len(passes) == 1 {
		for i, pass := range passes {
			s, err := r.runPass(ctx, pass, disc.GlobalRaw, unconditional)
			if err != nil {
				return err
			}
			stats[i] = s
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.o.opts.Concurrency)
		for i, pass := range passes {
			g.Go(func() error {
				s, err := r.runPass(gctx, pass, disc.GlobalRaw, unconditional)
				if err != nil {
					return err
				}
				stats[i] = s
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	for _, s := range stats {
		r.result.addPass(s)
	}
	return nil
}

// runPass syncs global.json, index.json and every page of one pass, in that
// order. The unprefixed global.json is reused from discovery.
func (r *run) runPass(ctx context.Context, pass domain.Pass, rootGlobal []byte, unconditional bool) (PassStats, error) {
	logger := r.logger.WithLanguage(pass.Name())
	stats := PassStats{Pass: pass.Name()}

	globalURL := discovery.ResourceURL(r.o.baseURL, pass.Prefix, "global")
	global := rootGlobal
	if pass.Prefix != "" {
		raw, err := r.o.fetcher.FetchJSON(ctx, globalURL)
		if err != nil {
			return stats, fmt.Errorf("pass %s: global.json: %w", pass.Name(), err)
		}
		global = raw
	}
	if err := r.syncResource(pass, "global", globalURL, global, unconditional, &stats); err != nil {
		return stats, fmt.Errorf("pass %s: %w", pass.Name(), err)
	}

	indexRaw, index, err := r.o.discoverer.FetchIndex(ctx, pass.Prefix)
	if err != nil {
		return stats, fmt.Errorf("pass %s: index.json: %w", pass.Name(), err)
	}
	indexURL := discovery.ResourceURL(r.o.baseURL, pass.Prefix, "index")
	if err := r.syncResource(pass, "index", indexURL, indexRaw, unconditional, &stats); err != nil {
		return stats, fmt.Errorf("pass %s: %w", pass.Name(), err)
	}

	var bar *progressbar.ProgressBar
	if r.o.opts.ShowProgress {
		bar = utils.NewProgressBarTo(r.o.opts.ProgressOutput, len(index), utils.DescSyncing+" "+pass.Name())
		defer bar.Finish()
	}

	for _, page := range index {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		outcome, err := r.syncPage(ctx, pass, page, unconditional, &stats)
		switch outcome {
		case PageFatal:
			return stats, fmt.Errorf("pass %s: page %s: %w", pass.Name(), page.URI, err)
		case PageSkipped:
			logger.WithURL(discovery.ResourceURL(r.o.baseURL, pass.Prefix, page.URI)).
				Warn().Err(err).Str("uri", page.URI).Msg("Page unavailable, skipping")
		}
		stats.Pages++
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	logger.Debug().
		Int("pages", stats.Pages).
		Int("changed", stats.ChangedFiles).
		Int("total", stats.TotalFiles).
		Msg("Pass completed")
	return stats, nil
}

// syncPage fetches and writes one page. Section pages embed their items, so
// a single fetch covers them.
func (r *run) syncPage(ctx context.Context, pass domain.Pass, page domain.PageSummary, unconditional bool, stats *PassStats) (PageOutcome, error) {
	url := discovery.ResourceURL(r.o.baseURL, pass.Prefix, page.URI)

	raw, err := r.o.fetcher.FetchJSON(ctx, url)
	if err != nil {
		if r.o.opts.SkipMissingPages && ctx.Err() == nil && domain.IsPermanentClientError(err) {
			stats.Skipped = append(stats.Skipped, skipped(pass, page.URI, url, err))
			return PageSkipped, err
		}
		return PageFatal, err
	}

	if err := r.syncResource(pass, page.URI, url, raw, unconditional, stats); err != nil {
		return PageFatal, err
	}
	return PageOK, nil
}

func skipped(pass domain.Pass, uri, url string, err error) SkippedResource {
	s := SkippedResource{Pass: pass.Name(), URI: uri, URL: url, Reason: err.Error()}
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		s.StatusCode = fetchErr.StatusCode
	}
	return s
}

// syncResource applies the write gate to one fetched document and records
// its fingerprint under url. Unconditional mode writes every destination;
// change-aware mode writes all destinations when the fingerprint changed and
// otherwise only those whose file is missing.
func (r *run) syncResource(pass domain.Pass, name, url string, raw []byte, unconditional bool, stats *PassStats) error {
	fingerprint, err := state.Fingerprint(raw, r.o.opts.CanonicalHash)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", url, err)
	}

	changed := unconditional || r.o.state.HasChanged(url, fingerprint)
	complete := true
	for _, dest := range pass.Destinations {
		rel := discovery.ResourcePath(dest, name)
		stats.TotalFiles++
		if !changed && r.o.writer.Exists(rel) {
			continue
		}
		written, err := r.o.writer.WriteJSON(rel, raw)
		if err != nil {
			return err
		}
		if !written {
			complete = false
			continue
		}
		stats.ChangedFiles++
	}

	// a skipped destination keeps the old hash so the next run rewrites it
	if complete {
		r.o.state.Record(url, fingerprint)
	}
	return nil
}
