package internal

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iowarp/corebuild/internal/build"
	"github.com/iowarp/corebuild/internal/toolchain"
	"github.com/iowarp/corebuild/internal/vcs"
)

var buildCmd = &cobra.Command{
	Use:   "build [components...]",
	Short: "Build and install components in dependency order",
	Long: `Build fetches, configures, compiles and installs the requested
components (default: all) into the shared prefix. Components already
installed at the same revision and flags are skipped.`,
	RunE: runBuild,
}

var (
	buildSkipExisting bool
	buildForce        []string
	buildParallel     int
	buildJobs         int
	buildKeepGoing    bool
	buildClean        bool
	buildVerbose      bool
)

func init() {
	buildCmd.Flags().BoolVar(&buildSkipExisting, "skip-existing", true, "Skip components whose persisted install is still valid")
	buildCmd.Flags().StringArrayVar(&buildForce, "force-rebuild", nil, "Rebuild this component and everything depending on it (repeatable)")
	buildCmd.Flags().IntVar(&buildParallel, "parallel", 0, "Number of independent components built concurrently (default 1)")
	buildCmd.Flags().IntVarP(&buildJobs, "jobs", "j", 0, "Compile jobs per component (default: all cores)")
	buildCmd.Flags().BoolVar(&buildKeepGoing, "keep-going", false, "Continue building branches independent of a failed component")
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove all fetched, built and installed artifacts first")
	buildCmd.Flags().BoolVarP(&buildVerbose, "verbose", "v", false, "Stream toolchain output")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, reg, cacheDir, prefix, err := loadSetup()
	if err != nil {
		return err
	}

	parallel := buildParallel
	if parallel == 0 {
		parallel = cfg.Parallel
	}
	jobs := buildJobs
	if jobs == 0 {
		jobs = cfg.Jobs
	}
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	var gitOpts []vcs.GitOption
	if cfg.GitPath != "" {
		gitOpts = append(gitOpts, vcs.WithGitPath(cfg.GitPath))
	}

	runner := &toolchain.ExecRunner{}
	if buildVerbose {
		runner.Stdout = os.Stdout
	}

	b := build.New(reg, vcs.NewGitVCS(gitOpts...), runner, cacheDir, prefix, build.Options{
		SkipExisting: buildSkipExisting,
		ForceRebuild: buildForce,
		Parallel:     parallel,
		KeepGoing:    buildKeepGoing,
		Jobs:         jobs,
		Generator:    cfg.Generator,
	})
	progress := color.New(color.FgCyan)
	b.Logf = func(format string, args ...any) {
		progress.Printf(format+"\n", args...)
	}

	if buildClean {
		if err := b.Clean(); err != nil {
			return fmt.Errorf("clean: %w", err)
		}
	}

	if err := b.Build(cmd.Context(), args...); err != nil {
		// Toolchain diagnostics pass through untouched.
		var berr *build.BuildError
		if errors.As(err, &berr) && !buildVerbose {
			fmt.Fprint(os.Stderr, string(berr.Output))
		}
		return err
	}

	color.New(color.FgGreen).Printf("all components installed under %s\n", prefix)
	return nil
}
