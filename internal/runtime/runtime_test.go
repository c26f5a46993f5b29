package runtime

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens/internal/facts/factstest"
	"github.com/jward/worldlens/scripts"
)

// --- Script loading tests ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	err := rt.RunScript(context.Background(), "nonexistent.risor", nil)
	require.Error(t, err)
}

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"validate/world.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("validate/world.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/validate/world.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`z := 7`), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, `z := 7`, got)
}

func TestValidationScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("validate", "world.risor"), ValidationScriptPath("world"))
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func location_ids(output) {
	return sorted_keys(field(output, "locations"))
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

ids := lib_helpers.location_ids(output)
assert(len(ids) == 2, 'expected 2 ids, got {len(ids)}')
assert(ids[0] == "a", 'expected a first')
`
	output := map[string]any{"locations": map[string]any{"b": map[string]any{}, "a": map[string]any{}}}
	require.NoError(t, rt.RunSource(context.Background(), script, map[string]any{"output": output}))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checks.risor"), []byte(`
func known(m, key) {
	return has(m, key)
}
`), 0644))

	rt := NewRuntime(dir)
	script := `
import checks

assert(checks.known({"tavern": 1}, "tavern"), 'expected tavern to be known')
assert(!checks.known({"tavern": 1}, "cellar"), 'expected cellar to be unknown')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func do_log(msg) {
	log.Info(msg)
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

// --- Host function tests ---

func TestHostFuncs(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	script := `
m := {"a": 1, "b": 2}
assert(has(m, "a"), 'has map key')
assert(!has(m, "z"), 'missing map key')
assert(has(["x", "y"], "y"), 'has list item')
assert(!has(nil, "y"), 'nil container')
assert(field(m, "b") == 2, 'field present')
assert(field(m, "z") == nil, 'field missing')
assert(field(nil, "z") == nil, 'field of nil')
keys := sorted_keys({"c": 1, "a": 2, "b": 3})
assert(keys[0] == "a" && keys[2] == "c", 'sorted keys')
assert(len(sorted_keys(nil)) == 0, 'no keys of nil')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestHostFuncs_ArgumentErrors(t *testing.T) {
	t.Parallel()
	rt := NewRuntime("")

	for _, src := range []string{`has({})`, `field(1, "a")`, `sorted_keys("x")`, `has(3, "a")`} {
		assert.Error(t, rt.RunSource(context.Background(), src, nil), src)
	}
}

// --- Validator tests ---

func tavernOutput(t *testing.T) map[string]any {
	t.Helper()
	var res struct {
		Output map[string]any `json:"output"`
	}
	require.NoError(t, json.Unmarshal(factstest.TavernResultJSON, &res))
	return res.Output
}

func marshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func embeddedValidator() *Validator {
	return NewValidator(NewRuntime("", WithRuntimeFS(scripts.FS)))
}

func TestValidator_ValidWorld(t *testing.T) {
	t.Parallel()
	v := embeddedValidator()
	assert.False(t, v.Loaded())

	rep, err := v.Validate(context.Background(), marshal(t, tavernOutput(t)))
	require.NoError(t, err)
	assert.True(t, rep.Valid, "errors: %v", rep.Errors)
	assert.Empty(t, rep.Errors)
	assert.True(t, v.Loaded())
}

func TestValidator_ReportsProblems(t *testing.T) {
	t.Parallel()
	out := tavernOutput(t)
	out["world"].(map[string]any)["start"] = "moon"
	locs := out["locations"].(map[string]any)
	locs["cellar"].(map[string]any)["exits"] = map[string]any{"down": map[string]any{"to": "pit"}}
	locs["yard"].(map[string]any)["contains"] = []any{"ghost"}
	ents := out["entities"].(map[string]any)
	ents["barkeep"].(map[string]any)["properties"] = map[string]any{"mood": "angry", "luck": 3}
	ents["rat"] = map[string]any{"type": "Rodent"}

	rep, err := embeddedValidator().Validate(context.Background(), marshal(t, out))
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.Equal(t, []string{
		"world.start names unknown location 'moon'",
		"exit cellar/down leads to an unknown location",
		"location yard contains unknown entity @ghost",
		"entity @barkeep sets undeclared property luck",
		"entity @barkeep sets mood outside its enum values",
		"entity @rat has an unknown type",
	}, rep.Errors)
}

func TestValidator_EmptyOutput(t *testing.T) {
	t.Parallel()
	rep, err := embeddedValidator().Validate(context.Background(), []byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, []string{"world block is missing"}, rep.Errors)

	_, err = embeddedValidator().Validate(context.Background(), []byte(`{`))
	assert.Error(t, err)
}

func TestValidator_MissingScript(t *testing.T) {
	t.Parallel()
	v := NewValidator(NewRuntime("", WithRuntimeFS(fstest.MapFS{})), WithScript("validate/none.risor"))
	_, err := v.Validate(context.Background(), []byte(`{}`))
	require.Error(t, err)
	assert.False(t, v.Loaded())
}

func TestValidator_ConcurrentFirstUse(t *testing.T) {
	t.Parallel()
	v := embeddedValidator()
	data := marshal(t, tavernOutput(t))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := v.Validate(context.Background(), data)
			assert.NoError(t, err)
			assert.True(t, rep.Valid)
		}()
	}
	wg.Wait()
	assert.True(t, v.Loaded())
}
