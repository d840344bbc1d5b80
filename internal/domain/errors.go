package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors
var (
	// ErrResourceUnavailable indicates a resource could not be fetched after all attempts
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrInvalidJSON indicates the response body is not valid JSON
	ErrInvalidJSON = errors.New("invalid JSON response")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheExpired indicates the cached entry has expired
	ErrCacheExpired = errors.New("cache entry expired")

	// ErrInvalidURL indicates an invalid URL was provided
	ErrInvalidURL = errors.New("invalid URL")

	// ErrMissingBaseURL indicates the CMS API base URL is not configured
	ErrMissingBaseURL = errors.New("CMS API base URL is not configured")

	// ErrWriteFailed indicates writing output failed
	ErrWriteFailed = errors.New("write failed")

	// ErrSyncLocked indicates another process is syncing the same content directory
	ErrSyncLocked = errors.New("sync already running for this content directory")
)

// FetchError represents an error during fetching
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch error for %s", e.URL)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RetryableError marks a transient failure the fetch client retries
type RetryableError struct {
	Err        error
	RetryAfter time.Duration // 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode > 0 {
		return IsTransientStatus(fetchErr.StatusCode)
	}

	return false
}

// IsTransientStatus reports whether an HTTP status is worth another attempt
func IsTransientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return code >= 500 && code <= 599
}

// IsPermanentClientError reports whether err carries a non-transient 4xx
// status, which means the resource itself is missing or forbidden.
func IsPermanentClientError(err error) bool {
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	code := fetchErr.StatusCode
	return code >= 400 && code < 500 && !IsTransientStatus(code)
}

// InvalidConfigError indicates the CMS global configuration is unusable.
// A sync never falls back to full mode on this error.
type InvalidConfigError struct {
	Field   string
	Message string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid CMS configuration: %s: %s", e.Field, e.Message)
}

// NewInvalidConfigError creates a new InvalidConfigError
func NewInvalidConfigError(field, message string) *InvalidConfigError {
	return &InvalidConfigError{
		Field:   field,
		Message: message,
	}
}

// IsInvalidConfig reports whether err is an InvalidConfigError
func IsInvalidConfig(err error) bool {
	var cfgErr *InvalidConfigError
	return errors.As(err, &cfgErr)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// WriteError represents a failure to persist a content file
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrWriteFailed) match any WriteError
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}

// NewWriteError creates a new WriteError
func NewWriteError(path string, err error) *WriteError {
	return &WriteError{
		Path: path,
		Err:  err,
	}
}
