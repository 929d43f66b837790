// Package registry holds the versioned asset manifest for the offline cache.
package registry

import "fmt"

const cachePrefix = "expireguard-v"

// Generation is one versioned set of precached assets. The deployer bumps
// Version on every asset-affecting deployment.
type Generation struct {
	Version int
	Assets  []string
}

// CacheName returns the cache storage key for a generation version,
// e.g. "expireguard-v3".
func CacheName(version int) string {
	return fmt.Sprintf("%s%d", cachePrefix, version)
}

// CachePattern matches every generation cache key.
func CachePattern() string { return cachePrefix + "*" }

// ParseCacheName extracts the version from a cache storage key. The second
// return is false when the key is not a generation cache.
func ParseCacheName(key string) (int, bool) {
	var v int
	if _, err := fmt.Sscanf(key, cachePrefix+"%d", &v); err != nil {
		return 0, false
	}
	return v, true
}

// DefaultAssets is the precache manifest for the app shell.
var DefaultAssets = []string{
	"/",
	"/index.html",
	"/icon-192.png",
	"/icon-512.png",
}
