package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// PrefixState marks sync state entries
const PrefixState = "state"

// apiIdentity reduces an API base URL to host and path. Scheme, default
// ports, query and fragment do not identify a CMS.
func apiIdentity(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(strings.ToLower(rawURL), "/")
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(host, port)
	}

	p := strings.TrimSuffix(path.Clean("/"+u.Path), "/")
	return host + p
}

// StateKey generates the cache key of the sync state belonging to one API
// and content directory pair. Two sites sharing a cache never collide.
func StateKey(apiURL, contentDir string) string {
	hash := sha256.Sum256([]byte(apiIdentity(apiURL) + "\n" + filepath.Clean(contentDir)))
	return PrefixState + ":" + hex.EncodeToString(hash[:])
}
