package utils

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Standard progress bar descriptions
const (
	DescSyncing = "Syncing"
	DescSites   = "Sites"
)

// NewProgressBar creates a consistently styled progress bar.
//
// Use -1 as total for unknown totals (spinner mode). Known totals show the
// count and iterations/second.
//
// Example:
//
//	bar := utils.NewProgressBar(len(index), utils.DescSyncing+" de")
//	defer bar.Finish()
func NewProgressBar(total int, description string) *progressbar.ProgressBar {
	return newProgressBar(total, description)
}

// NewProgressBarTo is NewProgressBar rendering to w
func NewProgressBarTo(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return newProgressBar(total, description, progressbar.OptionSetWriter(w))
}

func newProgressBar(total int, description string, extra ...progressbar.Option) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
	} else {
		opts = append(opts,
			progressbar.OptionShowIts(),
		)
	}

	return progressbar.NewOptions(total, append(opts, extra...)...)
}
