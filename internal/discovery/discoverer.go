package discovery

import (
	"context"
	"fmt"

	"github.com/matthacksteiner/kinderlosfrei/internal/domain"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// Result is the outcome of discovering a site's languages
type Result struct {
	Global *domain.GlobalConfig
	// GlobalRaw is the unprefixed global.json exactly as fetched
	GlobalRaw []byte
	Languages []string
}

// Discoverer fetches and parses the discovery documents of one CMS
type Discoverer struct {
	fetcher domain.Fetcher
	baseURL string
	logger  *utils.Logger
}

// NewDiscoverer creates a Discoverer for the API at baseURL
func NewDiscoverer(fetcher domain.Fetcher, baseURL string, logger *utils.Logger) *Discoverer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Discoverer{
		fetcher: fetcher,
		baseURL: utils.TrimBaseURL(baseURL),
		logger:  logger.WithComponent("discovery"),
	}
}

// Discover fetches the unprefixed global.json and validates it
func (d *Discoverer) Discover(ctx context.Context) (*Result, error) {
	url := ResourceURL(d.baseURL, "", "global")
	raw, err := d.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch site configuration: %w", err)
	}

	global, err := ParseGlobal(raw)
	if err != nil {
		return nil, err
	}

	langs := Languages(global)
	WarnInvalidCodes(d.logger, langs)

	d.logger.Debug().
		Str("default", global.DefaultLanguage.Code).
		Strs("languages", langs).
		Msg("Discovered languages")

	return &Result{
		Global:    global,
		GlobalRaw: raw,
		Languages: langs,
	}, nil
}

// FetchIndex fetches and parses the index of lang; an empty lang means the
// unprefixed default-language index.
func (d *Discoverer) FetchIndex(ctx context.Context, lang string) ([]byte, domain.ContentIndex, error) {
	url := ResourceURL(d.baseURL, lang, "index")
	raw, err := d.fetcher.FetchJSON(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	index, err := ParseIndex(raw, d.logger)
	if err != nil {
		return nil, nil, domain.NewFetchError(url, 0, err)
	}
	return raw, index, nil
}

// BaseURL returns the normalized API base
func (d *Discoverer) BaseURL() string {
	return d.baseURL
}
