package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/config"
	"github.com/jward/worldlens/internal/engine"
	"github.com/jward/worldlens/internal/mcp"
	"github.com/jward/worldlens/internal/runtime"
	"github.com/jward/worldlens/scripts"
)

// workspace keeps one session per world file. All sessions share one
// engine load.
type workspace struct {
	cfg    *config.ProjectConfig
	root   string
	loader engine.Loader
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*worldlens.Session
}

func newWorkspace(cfg *config.ProjectConfig, root string, loader engine.Loader, logger *slog.Logger) *workspace {
	return &workspace{
		cfg:      cfg,
		root:     root,
		loader:   onceLoader(loader),
		logger:   logger,
		sessions: map[string]*worldlens.Session{},
	}
}

// execWorkspace drives the compiler binary named in the config.
func execWorkspace(cfg *config.ProjectConfig, root string, logger *slog.Logger) *workspace {
	loader := engine.ExecLoader(cfg.Engine.Binary,
		engine.WithArgs(cfg.Engine.Args...),
		engine.WithExecLogger(logger),
	)
	return newWorkspace(cfg, root, loader, logger)
}

func onceLoader(l engine.Loader) engine.Loader {
	var (
		once sync.Once
		c    engine.Compiler
		err  error
	)
	return engine.LoaderFunc(func(ctx context.Context) (engine.Compiler, error) {
		once.Do(func() { c, err = l.Load(ctx) })
		return c, err
	})
}

// Open satisfies mcp.Opener.
func (w *workspace) Open(ctx context.Context, file string) (mcp.Querier, error) {
	return w.session(ctx, file)
}

// session reads file and returns its session compiled against the current
// text. Unchanged files are not recompiled.
func (w *workspace) session(ctx context.Context, file string) (*worldlens.Session, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving file path %q: %w", file, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	text := string(data)

	w.mu.Lock()
	s, ok := w.sessions[path]
	if !ok {
		s = worldlens.New(w.loader,
			worldlens.WithFile(path),
			worldlens.WithSyntaxDelay(w.cfg.Debounce.Syntax),
			worldlens.WithCompileDelay(w.cfg.Debounce.Compile),
			worldlens.WithLogger(w.logger),
			worldlens.WithValidator(w.validator()),
			worldlens.WithAutoValidate(w.cfg.Validator.Auto),
		)
		w.sessions[path] = s
	}
	w.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if doc := s.Document(); doc != nil && doc.Text() == text && s.Snapshot() != nil {
		return s, nil
	}
	if err := s.Update(text); err != nil {
		return nil, err
	}
	// A superseded compile means a concurrent caller published newer text.
	if _, err := s.Compile(ctx); err != nil && !errors.Is(err, worldlens.ErrSuperseded) {
		return nil, err
	}
	return s, nil
}

// offline opens file against a previously exported snapshot. No compiler
// is loaded.
func (w *workspace) offline(file string, snap *worldlens.Snapshot) (*worldlens.Session, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolving file path %q: %w", file, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	s := worldlens.Offline(string(data), snap,
		worldlens.WithFile(path),
		worldlens.WithLogger(w.logger),
		worldlens.WithValidator(w.validator()),
	)
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.sessions[path]; ok {
		prev.Close()
	}
	w.sessions[path] = s
	return s, nil
}

func (w *workspace) validator() *runtime.Validator {
	var rt *runtime.Runtime
	if dir := w.cfg.Validator.ScriptsDir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(w.root, dir)
		}
		rt = runtime.NewRuntime(dir, runtime.WithRuntimeLogger(w.logger))
	} else {
		rt = runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(w.logger))
	}
	return runtime.NewValidator(rt, runtime.WithScript(runtime.ValidationScriptPath(w.cfg.Validator.Script)))
}

func (w *workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, s := range w.sessions {
		s.Close()
		delete(w.sessions, path)
	}
}
