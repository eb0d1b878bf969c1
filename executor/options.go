package executor

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a single Run.
type Option func(*runConfig)

type runConfig struct {
	timeout time.Duration
	args    []string
	env     map[string]string
	output  io.Writer
}

func defaultRunConfig() runConfig {
	return runConfig{
		env: make(map[string]string),
	}
}

// WithTimeout sets the maximum execution time. Zero means no limit, which
// suits a game that runs until the player quits.
func WithTimeout(d time.Duration) Option {
	return func(c *runConfig) {
		c.timeout = d
	}
}

// WithArgs replaces the guest's default command-line arguments.
func WithArgs(args ...string) Option {
	return func(c *runConfig) {
		c.args = args
	}
}

// WithEnv sets an environment variable visible to the guest.
func WithEnv(key, value string) Option {
	return func(c *runConfig) {
		c.env[key] = value
	}
}

// WithOutput streams guest stdout and non-protocol stderr to w instead of
// collecting it in Result.Output.
func WithOutput(w io.Writer) Option {
	return func(c *runConfig) {
		c.output = w
	}
}

// ExecutorOption configures the Executor at creation time.
type ExecutorOption func(*executorConfig)

type executorConfig struct {
	diskCache        bool
	cacheDir         string
	precompile       []Guest
	memoryLimitPages uint32 // Max memory pages (each page = 64KB), 0 = default (4GB)
	log              zerolog.Logger
}

func defaultExecutorConfig() executorConfig {
	return executorConfig{
		log: zerolog.Nop(),
	}
}

// WithDiskCache enables persistent compilation cache for faster startup.
// Optionally provide a custom directory; otherwise uses ~/.cache/webbridge or XDG_CACHE_HOME/webbridge.
//
// Examples:
//
//	executor.New(registry, executor.WithDiskCache())            // default dir
//	executor.New(registry, executor.WithDiskCache("/tmp/cache")) // custom dir
func WithDiskCache(dir ...string) ExecutorOption {
	return func(c *executorConfig) {
		c.diskCache = true
		if len(dir) > 0 && dir[0] != "" {
			c.cacheDir = dir[0]
		}
	}
}

// WithPrecompile compiles the given guests at Executor creation time.
func WithPrecompile(guests ...Guest) ExecutorOption {
	return func(c *executorConfig) {
		c.precompile = guests
	}
}

// WithMemoryLimit sets the maximum memory available to WASM modules.
// Each page is 64KB. Default is 0 (no limit, up to 4GB).
func WithMemoryLimit(pages uint32) ExecutorOption {
	return func(c *executorConfig) {
		c.memoryLimitPages = pages
	}
}

// WithLogger sets the logger for protocol diagnostics.
func WithLogger(l zerolog.Logger) ExecutorOption {
	return func(c *executorConfig) {
		c.log = l
	}
}

// Memory limit constants for convenience.
const (
	MemoryLimit1MB   uint32 = 16    // 1 MB
	MemoryLimit16MB  uint32 = 256   // 16 MB
	MemoryLimit64MB  uint32 = 1024  // 64 MB
	MemoryLimit256MB uint32 = 4096  // 256 MB
	MemoryLimit1GB   uint32 = 16384 // 1 GB
)

// ParseMemoryLimit maps "1mb".."1gb" to a page count; unknown values mean
// no limit.
func ParseMemoryLimit(s string) uint32 {
	switch strings.ToLower(s) {
	case "1mb":
		return MemoryLimit1MB
	case "16mb":
		return MemoryLimit16MB
	case "64mb":
		return MemoryLimit64MB
	case "256mb":
		return MemoryLimit256MB
	case "1gb":
		return MemoryLimit1GB
	default:
		return 0
	}
}
