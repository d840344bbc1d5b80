package manifest

import "errors"

// Sentinel errors for the manifest package
var (
	// ErrNoSites indicates the manifest has no sites defined
	ErrNoSites = errors.New("manifest must contain at least one site")

	// ErrEmptyURL indicates a site is missing the required URL field
	ErrEmptyURL = errors.New("site URL cannot be empty")

	// ErrEmptyContentDir indicates a site is missing its content directory
	ErrEmptyContentDir = errors.New("site content_dir cannot be empty")

	// ErrDuplicateContentDir indicates two sites would write the same tree
	ErrDuplicateContentDir = errors.New("content_dir used by more than one site")

	// ErrDuplicateName indicates two sites share a name and thus a state file
	ErrDuplicateName = errors.New("site name used more than once")

	// ErrInvalidFormat indicates the manifest file is not valid YAML or JSON
	ErrInvalidFormat = errors.New("manifest must be valid YAML or JSON")

	// ErrFileNotFound indicates the manifest file does not exist
	ErrFileNotFound = errors.New("manifest file not found")

	// ErrUnsupportedExt indicates an unsupported file extension
	ErrUnsupportedExt = errors.New("unsupported file extension (use .yaml, .yml, or .json)")
)
