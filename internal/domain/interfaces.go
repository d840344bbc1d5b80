package domain

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_interfaces.go -package=mocks . Fetcher,Cache

// Fetcher retrieves JSON documents from the CMS API
type Fetcher interface {
	// FetchJSON returns the raw JSON body of url, retrying transient failures
	FetchJSON(ctx context.Context, url string) ([]byte, error)
}

// Cache defines the interface for the external build cache
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks if a key exists in cache
	Has(ctx context.Context, key string) bool
	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error
	// Close releases cache resources
	Close() error
}
