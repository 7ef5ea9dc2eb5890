package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iowarp/corebuild/internal/build"
	"github.com/iowarp/corebuild/internal/toolchain"
	"github.com/iowarp/corebuild/internal/vcs"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove all fetched sources, build trees and installed artifacts",
	Long:  `Clean deletes every registered component's source checkout, build tree and prefix namespace, and resets persisted state.`,
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	_, reg, cacheDir, prefix, err := loadSetup()
	if err != nil {
		return err
	}
	b := build.New(reg, vcs.NewGitVCS(), &toolchain.ExecRunner{}, cacheDir, prefix, build.Options{})
	if err := b.Clean(); err != nil {
		return err
	}
	fmt.Printf("cleaned %s and %s\n", cacheDir, prefix)
	return nil
}
