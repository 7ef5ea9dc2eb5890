package env

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCacheDirOverride(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "cache")
	t.Setenv("COREBUILD_CACHE", tempDir)

	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir() returned error: %v", err)
	}
	if dir != tempDir {
		t.Errorf("CacheDir() = %q, want %q", dir, tempDir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("directory was not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("CacheDir() created a file instead of a directory")
	}
}

func TestCacheDirDefault(t *testing.T) {
	t.Setenv("COREBUILD_CACHE", "")
	os.Unsetenv("COREBUILD_CACHE")

	dir, err := CacheDir()
	if err != nil {
		t.Fatalf("CacheDir() returned error: %v", err)
	}

	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(userCacheDir, "corebuild"); dir != want {
		t.Errorf("CacheDir() = %q, want %q", dir, want)
	}
}

func TestPrefixDirFollowsCache(t *testing.T) {
	cache := filepath.Join(t.TempDir(), "cache")
	t.Setenv("COREBUILD_CACHE", cache)
	t.Setenv("COREBUILD_PREFIX", "")
	os.Unsetenv("COREBUILD_PREFIX")

	dir, err := PrefixDir()
	if err != nil {
		t.Fatalf("PrefixDir() returned error: %v", err)
	}
	if want := filepath.Join(cache, "prefix"); dir != want {
		t.Errorf("PrefixDir() = %q, want %q", dir, want)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("prefix directory not created: %v", err)
	}
}

func TestPrefixDirOverride(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "install-root")
	t.Setenv("COREBUILD_PREFIX", prefix)

	dir, err := PrefixDir()
	if err != nil {
		t.Fatalf("PrefixDir() returned error: %v", err)
	}
	if dir != prefix {
		t.Errorf("PrefixDir() = %q, want %q", dir, prefix)
	}
}
