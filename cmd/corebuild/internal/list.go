package internal

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iowarp/corebuild/internal/build"
	"github.com/iowarp/corebuild/internal/toolchain"
	"github.com/iowarp/corebuild/internal/vcs"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show installed components with their revisions and flags",
	RunE:  runList,
}

var listAll bool

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include components that are not installed")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	_, reg, cacheDir, prefix, err := loadSetup()
	if err != nil {
		return err
	}
	b := build.New(reg, vcs.NewGitVCS(), &toolchain.ExecRunner{}, cacheDir, prefix, build.Options{})

	installed := make(map[string]build.InstalledInfo)
	for _, info := range b.Installed() {
		installed[info.Name] = info
	}
	states := b.States()

	bold := color.New(color.Bold)
	for _, name := range reg.Names() {
		info, ok := installed[name]
		if !ok {
			if listAll {
				fmt.Printf("%s\t%s\n", name, states[name])
			}
			continue
		}
		rev := info.Rev
		if rev == "" {
			rev = "(unknown)"
		}
		bold.Printf("%s", name)
		fmt.Printf("\t%s", rev)
		if len(info.Flags) > 0 {
			fmt.Printf("\t%s", strings.Join(info.Flags, " "))
		}
		fmt.Println()
	}
	return nil
}
