package app

import (
	"github.com/matthacksteiner/kinderlosfrei/internal/config"
	"github.com/matthacksteiner/kinderlosfrei/internal/fetcher"
	"github.com/matthacksteiner/kinderlosfrei/internal/utils"
)

// OptionsFromConfig maps the loaded configuration onto orchestrator options
func OptionsFromConfig(cfg *config.Config, logger *utils.Logger) OrchestratorOptions {
	return OrchestratorOptions{
		APIBaseURL: cfg.API.BaseURL,
		ContentDir: utils.ExpandPath(cfg.Content.Directory),
		StateFile:  utils.ExpandPath(cfg.StateFile()),
		Logger:     logger,
		FetchOptions: fetcher.ClientOptions{
			Timeout:       cfg.API.Timeout,
			Retries:       cfg.API.Retries,
			RetryDelay:    cfg.API.RetryDelay,
			MaxRetryDelay: cfg.API.MaxRetryDelay,
			Backoff:       fetcher.BackoffMode(cfg.API.Backoff),
			UserAgent:     cfg.API.UserAgent,
		},
		ForceFullSync:    cfg.Sync.ForceFull,
		CanonicalHash:    cfg.Sync.CanonicalHash,
		SkipMissingPages: cfg.Sync.SkipMissingPages,
		StrictWrites:     cfg.Sync.StrictWrites,
		DedupeDefault:    cfg.Sync.DedupeDefault,
		Concurrency:      cfg.Sync.Concurrency,
		CleanExclude:     cfg.Content.CleanExclude,
		Lock:             cfg.Sync.Lock,
		LockPath:         utils.ExpandPath(cfg.LockFile()),
		ShowProgress:     cfg.Sync.Progress,
	}
}

// NewLogger builds the logger described by the logging section
func NewLogger(cfg *config.Config, verbose bool) *utils.Logger {
	return utils.NewLogger(utils.LoggerOptions{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: verbose,
	})
}
