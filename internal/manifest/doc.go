// Package manifest loads multi-site manifests. A manifest lists several CMS
// installations, each mirrored into its own content directory, so one
// kirbysync invocation can refresh all of them.
//
// # Manifest Format
//
// Manifests can be written in YAML or JSON format:
//
//	sites:
//	  - name: main
//	    url: https://cms.example.com
//	    content_dir: ./sites/main/public/content
//	  - url: https://cms.other.example.com
//	    content_dir: ./sites/other/public/content
//	    force_full_sync: true
//	options:
//	  continue_on_error: true
//	  concurrency: 2
//
// Load expands ${VAR} references from the environment before decoding.
//
// # Error Handling
//
// The package defines sentinel errors for common failure cases:
//   - ErrNoSites: manifest has no sites defined
//   - ErrEmptyURL, ErrEmptyContentDir: a site is missing a required field
//   - ErrDuplicateContentDir, ErrDuplicateName: two sites would collide
//   - ErrInvalidFormat: file is not valid YAML/JSON
//   - ErrFileNotFound: manifest file does not exist
//   - ErrUnsupportedExt: unsupported file extension
package manifest
