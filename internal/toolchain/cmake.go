package toolchain

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives the configure/build/install workflow for one component.
// Prerequisite roots are passed through CMAKE_PREFIX_PATH on each invocation
// instead of mutating the process environment, so concurrent builds do not
// interfere.
type CMake struct {
	runner     Runner
	sourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	jobs       int
	prefixPath []string
	defines    map[string]defineValue
}

// NewCMake returns a ready-to-use CMake driver.
func NewCMake(runner Runner, sourceDir, buildDir, installDir string) *CMake {
	return &CMake{
		runner:     runner,
		sourceDir:  sourceDir,
		buildDir:   buildDir,
		installDir: installDir,
		defines:    make(map[string]defineValue),
	}
}

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Jobs sets the compile parallelism passed to cmake --build --parallel.
func (c *CMake) Jobs(n int) { c.jobs = n }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Use adds root to the prefix search path so configure can discover a
// dependency installed there.
func (c *CMake) Use(root string) {
	c.prefixPath = append(c.prefixPath, root)
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
func (c *CMake) Configure(ctx context.Context, args ...string) ([]byte, error) {
	if err := os.MkdirAll(c.buildDir, 0o755); err != nil {
		return nil, err
	}
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)
	return c.runner.Run(ctx, c.buildDir, c.env(), "cmake", cmakeArgs...)
}

// Build runs "cmake --build <build>" with optional extra arguments.
func (c *CMake) Build(ctx context.Context, args ...string) ([]byte, error) {
	cmakeArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	if c.jobs > 0 {
		cmakeArgs = append(cmakeArgs, "--parallel", strconv.Itoa(c.jobs))
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.runner.Run(ctx, c.buildDir, c.env(), "cmake", cmakeArgs...)
}

// Install runs "cmake --install <build>" into prefix.
func (c *CMake) Install(ctx context.Context, prefix string, args ...string) ([]byte, error) {
	cmakeArgs := []string{"--install", c.buildDir}
	if prefix == "" {
		prefix = c.installDir
	}
	if prefix != "" {
		cmakeArgs = append(cmakeArgs, "--prefix", prefix)
	}
	cmakeArgs = append(cmakeArgs, args...)
	return c.runner.Run(ctx, c.buildDir, c.env(), "cmake", cmakeArgs...)
}

func (c *CMake) env() []string {
	if len(c.prefixPath) == 0 {
		return nil
	}
	path := strings.Join(c.prefixPath, string(os.PathListSeparator))
	if cur := os.Getenv("CMAKE_PREFIX_PATH"); cur != "" {
		path += string(os.PathListSeparator) + cur
	}
	return []string{"CMAKE_PREFIX_PATH=" + path}
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
