// Package mcp exposes the session query surface as Model Context Protocol
// tools so agents can inspect a world file the way an editor does.
package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/store"
)

// Querier is the part of a session the tools use.
type Querier interface {
	ReferenceAt(line, col int) (worldlens.Reference, error)
	Hover(line, col int) (string, bool, error)
	DefinitionAt(line, col int) (*worldlens.Location, error)
	Complete(line, col int) ([]worldlens.Completion, error)
	Diagnostics() ([]worldlens.EditorDiagnostic, error)
	LocationGraph() (worldlens.Graph, error)
	DialogueGraph() (worldlens.Graph, error)
	Validate(ctx context.Context) (worldlens.Report, error)
}

// Opener returns a compiled session for a world file. Implementations
// decide whether sessions are cached between calls.
type Opener interface {
	Open(ctx context.Context, file string) (Querier, error)
}

type Server struct {
	opener Opener
	store  *store.Store
	mcp    *sdk.Server
}

type Option func(*Server)

// WithStore enables the snapshot history tool.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

func NewServer(opener Opener, version string, opts ...Option) *Server {
	s := &Server{
		opener: opener,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "worldlens",
			Version: version,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
