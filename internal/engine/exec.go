package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/jward/worldlens/internal/facts"
)

// Exec drives an external compiler binary. Source goes to stdin, JSON comes
// back on stdout:
//
//	<bin> [args...] compile --format json -
//	<bin> [args...] check --format json -
type Exec struct {
	bin     string
	args    []string
	version string
	logger  *slog.Logger
}

// ExecOption configures an Exec.
type ExecOption func(*Exec)

// WithArgs prepends args to every invocation.
func WithArgs(args ...string) ExecOption {
	return func(e *Exec) { e.args = append(e.args, args...) }
}

// WithExecLogger sets the logger used for compiler stderr.
func WithExecLogger(l *slog.Logger) ExecOption {
	return func(e *Exec) { e.logger = l }
}

// ExecLoader returns a Loader that locates bin on PATH and probes it with
// --version before handing out the Compiler.
func ExecLoader(bin string, opts ...ExecOption) Loader {
	return LoaderFunc(func(ctx context.Context) (Compiler, error) {
		e := &Exec{bin: bin, logger: slog.New(slog.DiscardHandler)}
		for _, opt := range opts {
			opt(e)
		}
		path, err := exec.LookPath(bin)
		if err != nil {
			return nil, fmt.Errorf("engine: find %s: %w", bin, err)
		}
		e.bin = path
		out, err := e.run(ctx, "", "--version")
		if err != nil {
			return nil, fmt.Errorf("engine: probe %s: %w", bin, err)
		}
		e.version = strings.TrimSpace(string(out))
		e.logger.Info("compiler loaded", "bin", path, "version", e.version)
		return e, nil
	})
}

// Version is what the binary printed for --version.
func (e *Exec) Version() string { return e.version }

func (e *Exec) Compile(ctx context.Context, src string) (*facts.Result, error) {
	out, err := e.run(ctx, src, "compile", "--format", "json", "-")
	if len(out) == 0 && err != nil {
		return nil, fmt.Errorf("engine: compile: %w", err)
	}
	res, derr := facts.DecodeResult(out)
	if derr != nil {
		return nil, fmt.Errorf("engine: compile: %w", derr)
	}
	return res, nil
}

func (e *Exec) CheckSyntax(ctx context.Context, src string) (*facts.SyntaxResult, error) {
	out, err := e.run(ctx, src, "check", "--format", "json", "-")
	if len(out) == 0 && err != nil {
		return nil, fmt.Errorf("engine: check: %w", err)
	}
	res, derr := facts.DecodeSyntaxResult(out)
	if derr != nil {
		return nil, fmt.Errorf("engine: check: %w", derr)
	}
	return res, nil
}

// run executes the binary. A non-zero exit is still returned with its
// stdout, since compilers exit non-zero when the source has errors.
func (e *Exec) run(ctx context.Context, stdin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.bin, append(append([]string{}, e.args...), args...)...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if stderr.Len() > 0 {
		e.logger.Debug("compiler stderr", "args", args, "stderr", strings.TrimSpace(stderr.String()))
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}
