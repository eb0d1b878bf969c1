package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caffeineduck/webbridge/hostfunc"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("executor closed")

// Result holds the output and metadata from a guest run.
type Result struct {
	Output   string
	Calls    int
	Duration time.Duration
	Error    error
}

// Executor manages the WASM runtime and compiled module caching.
type Executor struct {
	runtime  wazero.Runtime
	cache    wazero.CompilationCache
	compiled map[string]wazero.CompiledModule
	registry *hostfunc.Registry
	log      zerolog.Logger
	mu       sync.RWMutex
	closed   bool
}

// New creates an Executor dispatching guest calls to registry.
func New(registry *hostfunc.Registry, opts ...ExecutorOption) (*Executor, error) {
	cfg := defaultExecutorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := context.Background()

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		if cache != nil {
			cache.Close(ctx)
		}
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate WASI: %w", err)
	}

	if registry == nil {
		registry = hostfunc.NewRegistry()
	}

	e := &Executor{
		runtime:  rt,
		cache:    cache,
		compiled: make(map[string]wazero.CompiledModule),
		registry: registry,
		log:      cfg.log.With().Str("module", "executor").Logger(),
	}

	for _, g := range cfg.precompile {
		if _, err := e.getCompiled(ctx, g); err != nil {
			e.Close()
			return nil, fmt.Errorf("precompile %s: %w", g.Name(), err)
		}
	}

	return e, nil
}

// Run instantiates the guest and blocks until it exits, the context is
// cancelled, or the timeout elapses. Host calls made by the guest are
// dispatched while it runs.
func (e *Executor) Run(ctx context.Context, g Guest, opts ...Option) Result {
	start := time.Now()

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	compiled, err := e.getCompiled(ctx, g)
	if err != nil {
		return Result{Error: err, Duration: time.Since(start)}
	}

	out := newOutput(cfg.output)
	protocol := newProtocolHandler(ctx, e.registry, out, e.log)

	args := cfg.args
	if len(args) == 0 {
		args = g.Args()
	}

	moduleConfig := wazero.NewModuleConfig().
		WithStdout(out).
		WithStderr(protocol).
		WithArgs(args...).
		WithSysWalltime().
		WithSysNanotime().
		WithName("")

	for k, v := range cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	e.log.Debug().Str("guest", g.Name()).Msg("guest starting")

	mod, err := e.runtime.InstantiateModule(ctx, compiled, moduleConfig)
	if mod != nil {
		mod.Close(context.Background())
	}
	protocol.Flush()

	result := Result{
		Output:   out.String(),
		Calls:    protocol.Calls(),
		Duration: time.Since(start),
	}

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 0 {
		err = nil
	}

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Error = fmt.Errorf("timeout after %v", cfg.timeout)
		case errors.Is(ctx.Err(), context.Canceled):
			result.Error = fmt.Errorf("cancelled: %w", ctx.Err())
		default:
			result.Error = fmt.Errorf("execution failed: %w", err)
		}
	}

	e.log.Debug().
		Str("guest", g.Name()).
		Int("calls", result.Calls).
		Dur("duration", result.Duration).
		Err(result.Error).
		Msg("guest exited")

	return result
}

// getCompiled returns a cached compiled module, compiling if necessary.
func (e *Executor) getCompiled(ctx context.Context, g Guest) (wazero.CompiledModule, error) {
	name := g.Name()

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		e.mu.RUnlock()
		return compiled, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if compiled, ok := e.compiled[name]; ok {
		return compiled, nil
	}

	compiled, err := e.runtime.CompileModule(ctx, g.Module())
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}

	e.compiled[name] = compiled
	return compiled, nil
}

// Close releases all resources held by the Executor.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	ctx := context.Background()

	var errs []error
	if err := e.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if e.cache != nil {
		if err := e.cache.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func defaultCacheDir() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "webbridge")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "webbridge")
	}
	return filepath.Join(os.TempDir(), "webbridge-cache")
}
