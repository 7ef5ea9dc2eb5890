// Package env resolves the on-disk locations the orchestrator works in.
package env

import (
	"os"
	"path/filepath"
)

// CacheDir returns the source-cache root, creating it if needed.
// COREBUILD_CACHE overrides the default under the user cache directory.
func CacheDir() (string, error) {
	if dir := os.Getenv("COREBUILD_CACHE"); dir != "" {
		return dir, ensureDir(dir)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(userCacheDir, "corebuild")
	return dir, ensureDir(dir)
}

// PrefixDir returns the shared install prefix, creating it if needed.
// COREBUILD_PREFIX overrides; the default sits next to the source cache so
// a clean run removes everything in one place.
func PrefixDir() (string, error) {
	if dir := os.Getenv("COREBUILD_PREFIX"); dir != "" {
		return dir, ensureDir(dir)
	}
	cacheDir, err := CacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(cacheDir, "prefix")
	return dir, ensureDir(dir)
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o700)
}
