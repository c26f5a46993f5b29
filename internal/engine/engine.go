// Package engine is the boundary to the external world compiler.
//
// A Loader performs the one-time, possibly slow, acquisition of a Compiler.
// The session calls Load at most once; everything after that goes through
// the Compiler.
package engine

import (
	"context"
	"errors"

	"github.com/jward/worldlens/internal/facts"
)

// ErrNoCompile is returned by Funcs without a CompileFunc.
var ErrNoCompile = errors.New("engine: no compile function")

// Compiler compiles world source text.
type Compiler interface {
	// Compile runs a full compile. Compile failures are reported in the
	// result; the error is for infrastructure failures only.
	Compile(ctx context.Context, src string) (*facts.Result, error)
	// CheckSyntax runs the fast syntax-only check.
	CheckSyntax(ctx context.Context, src string) (*facts.SyntaxResult, error)
}

// Loader acquires a Compiler.
type Loader interface {
	Load(ctx context.Context) (Compiler, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc func(ctx context.Context) (Compiler, error)

func (f LoaderFunc) Load(ctx context.Context) (Compiler, error) { return f(ctx) }

// Ready returns a Loader that hands out c immediately.
func Ready(c Compiler) Loader {
	return LoaderFunc(func(context.Context) (Compiler, error) { return c, nil })
}

// Funcs adapts plain functions to a Compiler. When CheckFunc is nil the
// syntax check runs a full compile and keeps only its verdict.
type Funcs struct {
	CompileFunc func(ctx context.Context, src string) (*facts.Result, error)
	CheckFunc   func(ctx context.Context, src string) (*facts.SyntaxResult, error)
}

func (f Funcs) Compile(ctx context.Context, src string) (*facts.Result, error) {
	if f.CompileFunc == nil {
		return nil, ErrNoCompile
	}
	return f.CompileFunc(ctx, src)
}

func (f Funcs) CheckSyntax(ctx context.Context, src string) (*facts.SyntaxResult, error) {
	if f.CheckFunc != nil {
		return f.CheckFunc(ctx, src)
	}
	res, err := f.Compile(ctx, src)
	if err != nil {
		return nil, err
	}
	return &facts.SyntaxResult{Success: res.Success, Diagnostics: res.Diagnostics}, nil
}
