package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/facts/factstest"
)

func TestFuncs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	diag := facts.Diagnostic{Severity: facts.SeverityError, Code: "URD100", Message: "bad"}
	f := Funcs{CompileFunc: func(_ context.Context, src string) (*facts.Result, error) {
		return &facts.Result{Success: src != "", Diagnostics: []facts.Diagnostic{diag}}, nil
	}}

	res, err := f.Compile(ctx, "x")
	require.NoError(t, err)
	assert.True(t, res.Success)

	syn, err := f.CheckSyntax(ctx, "")
	require.NoError(t, err)
	assert.False(t, syn.Success)
	assert.Equal(t, []facts.Diagnostic{diag}, syn.Diagnostics)

	_, err = Funcs{}.Compile(ctx, "x")
	assert.ErrorIs(t, err, ErrNoCompile)
}

func TestReady(t *testing.T) {
	t.Parallel()
	c := Funcs{}
	got, err := Ready(c).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

// fakeCompiler writes a shell script that behaves like the compiler CLI.
func fakeCompiler(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler")
	}
	dir := t.TempDir()
	result := filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(result, factstest.TavernResultJSON, 0o644))

	script := `#!/bin/sh
case "$1" in
--version) echo "urd 0.9.1" ;;
compile) cat >/dev/null; cat "` + result + `" ;;
check)
	src=$(cat)
	if [ -z "$src" ]; then
		echo '{"success":false,"diagnostics":[{"severity":"error","code":"URD001","message":"empty","span":{}}]}'
		exit 1
	fi
	echo '{"success":true,"diagnostics":[]}' ;;
*) echo "unknown command" >&2; exit 2 ;;
esac
`
	bin := filepath.Join(dir, "urd")
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	return bin
}

func TestExec(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	bin := fakeCompiler(t)

	c, err := ExecLoader(bin).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "urd 0.9.1", c.(*Exec).Version())

	res, err := c.Compile(ctx, factstest.TavernSource)
	require.NoError(t, err)
	assert.True(t, res.Usable())
	assert.Len(t, res.Facts.Jumps, 4)

	syn, err := c.CheckSyntax(ctx, "# Hall")
	require.NoError(t, err)
	assert.True(t, syn.Success)

	syn, err = c.CheckSyntax(ctx, "")
	require.NoError(t, err, "non-zero exit with JSON output is a result")
	assert.False(t, syn.Success)
	require.Len(t, syn.Diagnostics, 1)
	assert.Equal(t, "URD001", syn.Diagnostics[0].Code)
}

func TestExec_Failures(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := ExecLoader(filepath.Join(t.TempDir(), "missing")).Load(ctx)
	assert.Error(t, err)

	bin := fakeCompiler(t)
	c, err := ExecLoader(bin, WithArgs("bogus")).Load(ctx)
	require.Error(t, err, "the probe fails when the binary rejects the arguments")
	assert.Nil(t, c)

	var exitErr interface{ ExitCode() int }
	assert.True(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "unknown command")
}
