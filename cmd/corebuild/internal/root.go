package internal

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iowarp/corebuild/internal/config"
	"github.com/iowarp/corebuild/internal/env"
	"github.com/iowarp/corebuild/internal/registry"
)

var rootCmd = &cobra.Command{
	Use:   "corebuild",
	Short: "corebuild builds and installs the iowarp-core native components",
	Long: `corebuild fetches, configures, compiles and installs the iowarp-core
C++ components in dependency order against a shared install prefix.`,
	SilenceUsage: true,
}

var (
	flagPrefix   string
	flagCacheDir string
	flagManifest string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagPrefix, "prefix", "", "shared install prefix (default: managed under the cache directory)")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "source and build cache directory")
	rootCmd.PersistentFlags().StringVar(&flagManifest, "manifest", "", "YAML component manifest merged over the built-in catalog")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

// loadSetup resolves config, registry and directories shared by the
// subcommands. Flag values win over config file and environment.
func loadSetup() (cfg *config.Config, reg *registry.Registry, cacheDir, prefix string, err error) {
	cfg, err = config.Load()
	if err != nil {
		return nil, nil, "", "", err
	}

	cacheDir = flagCacheDir
	if cacheDir == "" {
		cacheDir = cfg.CacheDir
	}
	if cacheDir == "" {
		cacheDir, err = env.CacheDir()
		if err != nil {
			return nil, nil, "", "", err
		}
	} else if err = os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, nil, "", "", err
	}

	prefix = flagPrefix
	if prefix == "" {
		prefix = cfg.Prefix
	}
	if prefix == "" {
		prefix, err = env.PrefixDir()
		if err != nil {
			return nil, nil, "", "", err
		}
	} else if err = os.MkdirAll(prefix, 0o755); err != nil {
		return nil, nil, "", "", err
	}

	reg = registry.Default()
	manifest := flagManifest
	if manifest == "" {
		manifest = cfg.Manifest
	}
	if manifest != "" {
		if err := registry.LoadFile(reg, manifest); err != nil {
			return nil, nil, "", "", err
		}
	}
	return cfg, reg, cacheDir, prefix, nil
}
