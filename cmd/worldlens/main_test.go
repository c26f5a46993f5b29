package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/config"
	"github.com/jward/worldlens/internal/engine"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/facts/factstest"
	"github.com/jward/worldlens/internal/store"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_ConfigFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.FileName), []byte("version: 1\n"), 0o644))
	deep := filepath.Join(root, "worlds", "act1")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.Error(t, validateFormat("yaml"))
}

func TestParseArgs(t *testing.T) {
	t.Parallel()
	file, line, col, err := parsePosition([]string{"a.urd.md", "3", "7"})
	require.NoError(t, err)
	assert.Equal(t, "a.urd.md", file)
	assert.Equal(t, 3, line)
	assert.Equal(t, 7, col)

	_, _, _, err = parsePosition([]string{"a.urd.md", "x", "7"})
	assert.Error(t, err)
	_, err = parseIntArg("-1", "col")
	assert.Error(t, err)

	level, err := parseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
	_, err = parseLevel("loud")
	assert.Error(t, err)
}

const brokenMarker = "%%broken%%"

// testEngine compiles every file to the tavern fixture unless it contains
// brokenMarker.
type testEngine struct {
	compiles atomic.Int32
}

func (e *testEngine) loader(t *testing.T) engine.Loader {
	return engine.Ready(engine.Funcs{
		CompileFunc: func(_ context.Context, src string) (*facts.Result, error) {
			e.compiles.Add(1)
			if strings.Contains(src, brokenMarker) {
				return &facts.Result{Diagnostics: []facts.Diagnostic{{
					Severity: facts.SeverityError,
					Code:     "URD101",
					Message:  "Unexpected token.",
					Span:     facts.Span{StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 2},
				}}}, nil
			}
			return factstest.TavernResult(t), nil
		},
		CheckFunc: func(context.Context, string) (*facts.SyntaxResult, error) {
			return &facts.SyntaxResult{Success: true}, nil
		},
	})
}

func newTestWorkspace(t *testing.T) (*workspace, *testEngine, string) {
	t.Helper()
	dir := t.TempDir()
	eng := &testEngine{}
	ws := newWorkspace(config.Default(), dir, eng.loader(t), slog.New(slog.DiscardHandler))
	t.Cleanup(ws.Close)
	return ws, eng, dir
}

func writeWorld(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestWorkspace_Session(t *testing.T) {
	t.Parallel()
	ws, eng, dir := newTestWorkspace(t)
	path := writeWorld(t, dir, factstest.TavernFile, factstest.TavernSource)
	ctx := context.Background()

	s, err := ws.session(ctx, path)
	require.NoError(t, err)
	md, ok, err := s.Hover(28, 13)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, md, "Default: `0`")

	loc, err := s.DefinitionAt(25, 2)
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, path, loc.File)

	again, err := ws.session(ctx, path)
	require.NoError(t, err)
	assert.Same(t, s, again)
	assert.Equal(t, int32(1), eng.compiles.Load(), "unchanged text is not recompiled")

	writeWorld(t, dir, factstest.TavernFile, factstest.TavernSource+"\n")
	_, err = ws.session(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, int32(2), eng.compiles.Load())

	_, err = ws.session(ctx, filepath.Join(dir, "missing.urd.md"))
	assert.Error(t, err)
}

func TestWorkspace_Open(t *testing.T) {
	t.Parallel()
	ws, _, dir := newTestWorkspace(t)
	path := writeWorld(t, dir, factstest.TavernFile, factstest.TavernSource)

	q, err := ws.Open(context.Background(), path)
	require.NoError(t, err)
	rep, err := q.Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Valid, "errors: %v", rep.Errors)
}

func TestWorkspace_EngineUnavailable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ws := newWorkspace(config.Default(), dir, engine.ExecLoader("worldlens-no-such-compiler"), slog.New(slog.DiscardHandler))
	t.Cleanup(ws.Close)
	path := writeWorld(t, dir, "a.urd.md", factstest.TavernSource)

	_, err := ws.session(context.Background(), path)
	assert.ErrorIs(t, err, worldlens.ErrEngineUnavailable)
}

func TestCheckFiles(t *testing.T) {
	t.Parallel()
	ws, _, dir := newTestWorkspace(t)
	good := writeWorld(t, dir, "good.urd.md", factstest.TavernSource)
	bad := writeWorld(t, dir, "bad.urd.md", brokenMarker+"\n")

	results, err := checkFiles(context.Background(), ws, []string{good, bad})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, good, results[0].File)
	assert.True(t, results[0].Success)
	assert.False(t, results[0].failed(), "warnings only: %v", results[0].Diagnostics)

	assert.Equal(t, bad, results[1].File)
	assert.False(t, results[1].Success)
	assert.True(t, results[1].failed())
	require.Len(t, results[1].Diagnostics, 1)
	assert.Equal(t, "URD101", results[1].Diagnostics[0].Code)

	_, err = checkFiles(context.Background(), ws, []string{filepath.Join(dir, "missing.urd.md")})
	assert.Error(t, err)
}

func TestOutputResultText(t *testing.T) {
	t.Parallel()

	render := func(results any) string {
		var buf bytes.Buffer
		require.NoError(t, outputResultText(&buf, CLIResult{Results: results}))
		return buf.String()
	}

	assert.Equal(t, "w.urd.md:12:2\n", render([]CLILocation{{File: "w.urd.md", StartLine: 12, StartCol: 2}}))
	assert.Equal(t, "**warden**\n", render(CLIHover{Found: true, Markdown: "**warden**\n\n"}))
	assert.Empty(t, render(CLIHover{}))
	assert.Empty(t, render(nil))
	assert.Equal(t, "dev\n", render("dev"))
	assert.Equal(t, "valid\n", render(worldlens.Report{Valid: true}))
	assert.Equal(t, "error: no start\n", render(worldlens.Report{Errors: []string{"no start"}}))

	out := render([]worldlens.Completion{{Label: "trust", Kind: worldlens.CompletionProperty, Detail: "int"}})
	assert.Contains(t, out, "LABEL")
	assert.Contains(t, out, "trust")

	out = render(worldlens.Graph{
		Nodes: []worldlens.Node{{ID: "tavern", Label: "Tavern", Kind: "location"}},
		Edges: []worldlens.Edge{{From: "tavern", To: "tavern", Label: "loop"}},
	})
	assert.Contains(t, out, "NODE")
	assert.Contains(t, out, "loop")

	out = render([]CLICheck{{File: "w.urd.md", Diagnostics: []worldlens.EditorDiagnostic{{
		Range:    worldlens.Range{Start: worldlens.Position{Line: 4, Char: 2}},
		Severity: facts.SeverityError,
		Code:     "URD101",
		Message:  "Unexpected token.",
	}}}})
	assert.Contains(t, out, "w.urd.md:5:3: error URD101: Unexpected token.")
	assert.Contains(t, out, "1 file(s) checked, 1 failed")

	out = render([]*store.Record{{ID: 7, File: "w.urd.md", Seq: 3, Success: true, CompiledAt: time.Unix(0, 0).UTC()}})
	assert.Contains(t, out, "w.urd.md")
	assert.Contains(t, out, "1970-01-01 00:00:00")

	var buf bytes.Buffer
	assert.Error(t, outputResultText(&buf, CLIResult{Results: 42}))
}

func TestWorkspace_Offline(t *testing.T) {
	t.Parallel()
	ws, eng, dir := newTestWorkspace(t)
	path := writeWorld(t, dir, factstest.TavernFile, factstest.TavernSource)

	s, err := ws.offline(path, factstest.Tavern(t))
	require.NoError(t, err)
	md, ok, err := s.Hover(28, 13)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, md, "Writes: 2")
	assert.Zero(t, eng.compiles.Load(), "offline sessions never compile")

	_, err = ws.offline(filepath.Join(dir, "missing.urd.md"), factstest.Tavern(t))
	assert.Error(t, err)
}
