package worldlens

import (
	"github.com/jward/worldlens/internal/document"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/project"
	"github.com/jward/worldlens/internal/resolve"
	"github.com/jward/worldlens/internal/runtime"
)

// Public type aliases for the internal types used in the Session API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Snapshot = facts.Snapshot
type Diagnostic = facts.Diagnostic
type Span = facts.Span
type Reference = resolve.Reference
type Graph = project.Graph
type Node = project.Node
type Edge = project.Edge
type Range = document.Range
type Position = document.Position
type Report = runtime.Report
