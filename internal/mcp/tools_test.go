package mcp

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/facts/factstest"
	"github.com/jward/worldlens/internal/project"
	"github.com/jward/worldlens/internal/store"
)

type stubOpener struct {
	sessions map[string]*worldlens.Session
	opened   []string
}

func (o *stubOpener) Open(ctx context.Context, file string) (Querier, error) {
	o.opened = append(o.opened, file)
	s, ok := o.sessions[file]
	if !ok {
		return nil, errors.New("no such file")
	}
	return s, nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *stubOpener) {
	t.Helper()
	s := worldlens.Offline(factstest.TavernSource, factstest.Tavern(t), worldlens.WithFile(factstest.TavernFile))
	t.Cleanup(func() { s.Close() })
	opener := &stubOpener{sessions: map[string]*worldlens.Session{factstest.TavernFile: s}}
	return NewServer(opener, "test", opts...), opener
}

func TestResolveReference(t *testing.T) {
	t.Parallel()
	server, opener := newTestServer(t)

	_, out, err := server.handleResolveReference(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 28, Col: 13})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Equal(t, "entity-property", out.Kind)
	assert.Equal(t, []string{factstest.TavernFile}, opener.opened)

	_, out, err = server.handleResolveReference(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 16})
	require.NoError(t, err)
	assert.False(t, out.Found)
}

func TestMissingFile(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, _, err := server.handleHover(context.Background(), nil, PositionInput{})
	assert.Error(t, err)
	_, _, err = server.handleDiagnostics(context.Background(), nil, FileInput{File: "nope.urd.md"})
	assert.Error(t, err)
}

func TestHover(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, out, err := server.handleHover(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 28, Col: 13})
	require.NoError(t, err)
	assert.True(t, out.Found)
	assert.Contains(t, out.Markdown, "Default: `0`")
}

func TestDefinition(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, out, err := server.handleDefinition(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 25, Col: 2})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, factstest.TavernFile, out.File)
	assert.Equal(t, RangeOutput{StartLine: 12, StartCol: 2, EndLine: 12, EndCol: 9}, out.Range)

	_, out, err = server.handleDefinition(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 16})
	require.NoError(t, err)
	assert.False(t, out.Found)
}

func TestComplete(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, out, err := server.handleComplete(context.Background(), nil, PositionInput{File: factstest.TavernFile, Line: 25, Col: 1})
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	assert.Equal(t, "barkeep", out.Items[0].Label)
	assert.Equal(t, worldlens.CompletionEntity, out.Items[0].Kind)
}

func TestDiagnostics(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, out, err := server.handleDiagnostics(context.Background(), nil, FileInput{File: factstest.TavernFile})
	require.NoError(t, err)
	require.Len(t, out.Diagnostics, 1)
	assert.Equal(t, "URD430", out.Diagnostics[0].Code)
	assert.Equal(t, 55, out.Diagnostics[0].Range.StartLine)
}

func TestGraphs(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, locs, err := server.handleLocationGraph(context.Background(), nil, FileInput{File: factstest.TavernFile})
	require.NoError(t, err)
	var yard *NodeOutput
	for i := range locs.Nodes {
		if locs.Nodes[i].ID == "yard" {
			yard = &locs.Nodes[i]
		}
	}
	require.NotNil(t, yard)
	assert.Equal(t, project.FlagUnreachable, yard.Flag)
	assert.NotEmpty(t, locs.Edges)

	_, dlg, err := server.handleDialogueGraph(context.Background(), nil, FileInput{File: factstest.TavernFile})
	require.NoError(t, err)
	assert.NotEmpty(t, dlg.Nodes)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	server, _ := newTestServer(t)

	_, out, err := server.handleValidate(context.Background(), nil, FileInput{File: factstest.TavernFile})
	require.NoError(t, err)
	assert.True(t, out.Valid, "errors: %v", out.Errors)
	assert.NotNil(t, out.Errors)
}

func TestSnapshotTools(t *testing.T) {
	t.Parallel()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { st.Close() })

	id, err := st.SaveSnapshot(factstest.TavernFile, factstest.TavernSource, factstest.Tavern(t))
	require.NoError(t, err)

	server, _ := newTestServer(t, WithStore(st))

	_, list, err := server.handleListSnapshots(context.Background(), nil, FileInput{File: factstest.TavernFile})
	require.NoError(t, err)
	require.Len(t, list.Snapshots, 1)
	assert.Equal(t, id, list.Snapshots[0].ID)
	assert.Equal(t, 1, list.Snapshots[0].Diagnostics)

	_, usage, err := server.handlePropertyUsage(context.Background(), nil, PropertyUsageInput{File: factstest.TavernFile, OrphanedOnly: true})
	require.NoError(t, err)
	assert.Equal(t, id, usage.SnapshotID)
	require.Len(t, usage.Properties, 1)
	assert.Equal(t, "mood", usage.Properties[0].Property)

	_, _, err = server.handlePropertyUsage(context.Background(), nil, PropertyUsageInput{})
	assert.Error(t, err)

	_, _, err = server.handlePropertyUsage(context.Background(), nil, PropertyUsageInput{File: "missing.urd.md"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
