package mcp

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/facts"
)

type PositionInput struct {
	File string `json:"file" jsonschema:"path to the world file"`
	Line int    `json:"line" jsonschema:"0-based line"`
	Col  int    `json:"col" jsonschema:"0-based character column"`
}

type FileInput struct {
	File string `json:"file" jsonschema:"path to the world file"`
}

type PropertyUsageInput struct {
	File         string `json:"file" jsonschema:"path to the world file"`
	SnapshotID   int64  `json:"snapshot_id,omitempty" jsonschema:"stored snapshot id, defaults to the latest for file"`
	OrphanedOnly bool   `json:"orphaned_only,omitempty" jsonschema:"only report properties read but never written or written but never read"`
}

type ReferenceOutput struct {
	Found  bool   `json:"found"`
	Kind   string `json:"kind,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

type HoverOutput struct {
	Found    bool   `json:"found"`
	Markdown string `json:"markdown,omitempty"`
}

type RangeOutput struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

type DefinitionOutput struct {
	Found bool        `json:"found"`
	File  string      `json:"file,omitempty"`
	Range RangeOutput `json:"range"`
}

type CompletionOutput struct {
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

type CompleteOutput struct {
	Items []CompletionOutput `json:"items"`
}

type DiagnosticOutput struct {
	Severity string      `json:"severity"`
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Range    RangeOutput `json:"range"`
}

type DiagnosticsOutput struct {
	Diagnostics []DiagnosticOutput `json:"diagnostics"`
}

type NodeOutput struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Flag  string `json:"flag,omitempty"`
}

type EdgeOutput struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Label       string `json:"label"`
	Conditional bool   `json:"conditional"`
}

type GraphOutput struct {
	Nodes []NodeOutput `json:"nodes"`
	Edges []EdgeOutput `json:"edges"`
}

type ValidateOutput struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type SnapshotOutput struct {
	ID          int64  `json:"id"`
	Seq         uint64 `json:"seq"`
	Success     bool   `json:"success"`
	SourceHash  string `json:"source_hash"`
	CompiledAt  string `json:"compiled_at"`
	Diagnostics int    `json:"diagnostics"`
}

type ListSnapshotsOutput struct {
	Snapshots []SnapshotOutput `json:"snapshots"`
}

type PropertyOutput struct {
	EntityType string `json:"entity_type"`
	Property   string `json:"property"`
	Reads      int    `json:"reads"`
	Writes     int    `json:"writes"`
	Orphaned   string `json:"orphaned,omitempty"`
}

type PropertyUsageOutput struct {
	SnapshotID int64            `json:"snapshot_id"`
	Properties []PropertyOutput `json:"properties"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_reference",
		Description: "Identify the language construct at a position",
	}, s.handleResolveReference)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "hover",
		Description: "Render the markdown tooltip for a position",
	}, s.handleHover)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "definition",
		Description: "Find the declaration of the construct at a position",
	}, s.handleDefinition)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "complete",
		Description: "List completion candidates for the text before a position",
	}, s.handleComplete)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "diagnostics",
		Description: "Compile a world file and return its diagnostics",
	}, s.handleDiagnostics)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "location_graph",
		Description: "Project locations and exits into a graph",
	}, s.handleLocationGraph)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "dialogue_graph",
		Description: "Project dialogue sections and jumps into a graph",
	}, s.handleDialogueGraph)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate",
		Description: "Run the structural validation script over the compiled world",
	}, s.handleValidate)

	if s.store == nil {
		return
	}

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_snapshots",
		Description: "List exported snapshots of a world file, newest first",
	}, s.handleListSnapshots)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "property_usage",
		Description: "Report property reads and writes from an exported snapshot",
	}, s.handlePropertyUsage)
}

func (s *Server) open(ctx context.Context, file string) (Querier, error) {
	if file == "" {
		return nil, fmt.Errorf("file is required")
	}
	return s.opener.Open(ctx, file)
}

func (s *Server) handleResolveReference(ctx context.Context, req *sdk.CallToolRequest, input PositionInput) (*sdk.CallToolResult, ReferenceOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, ReferenceOutput{}, err
	}
	ref, err := q.ReferenceAt(input.Line, input.Col)
	if err != nil {
		return nil, ReferenceOutput{}, err
	}
	if ref == nil {
		return nil, ReferenceOutput{}, nil
	}
	return nil, ReferenceOutput{Found: true, Kind: string(ref.Kind()), Detail: ref}, nil
}

func (s *Server) handleHover(ctx context.Context, req *sdk.CallToolRequest, input PositionInput) (*sdk.CallToolResult, HoverOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, HoverOutput{}, err
	}
	md, ok, err := q.Hover(input.Line, input.Col)
	if err != nil {
		return nil, HoverOutput{}, err
	}
	return nil, HoverOutput{Found: ok, Markdown: md}, nil
}

func (s *Server) handleDefinition(ctx context.Context, req *sdk.CallToolRequest, input PositionInput) (*sdk.CallToolResult, DefinitionOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, DefinitionOutput{}, err
	}
	loc, err := q.DefinitionAt(input.Line, input.Col)
	if err != nil {
		return nil, DefinitionOutput{}, err
	}
	if loc == nil {
		return nil, DefinitionOutput{}, nil
	}
	return nil, DefinitionOutput{Found: true, File: loc.File, Range: rangeOutput(loc.Range)}, nil
}

func (s *Server) handleComplete(ctx context.Context, req *sdk.CallToolRequest, input PositionInput) (*sdk.CallToolResult, CompleteOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, CompleteOutput{}, err
	}
	items, err := q.Complete(input.Line, input.Col)
	if err != nil {
		return nil, CompleteOutput{}, err
	}
	output := make([]CompletionOutput, 0, len(items))
	for _, it := range items {
		output = append(output, CompletionOutput{Label: it.Label, Kind: it.Kind, Detail: it.Detail})
	}
	return nil, CompleteOutput{Items: output}, nil
}

func (s *Server) handleDiagnostics(ctx context.Context, req *sdk.CallToolRequest, input FileInput) (*sdk.CallToolResult, DiagnosticsOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, DiagnosticsOutput{}, err
	}
	diags, err := q.Diagnostics()
	if err != nil {
		return nil, DiagnosticsOutput{}, err
	}
	output := make([]DiagnosticOutput, 0, len(diags))
	for _, d := range diags {
		output = append(output, DiagnosticOutput{
			Severity: string(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			Range:    rangeOutput(d.Range),
		})
	}
	return nil, DiagnosticsOutput{Diagnostics: output}, nil
}

func (s *Server) handleLocationGraph(ctx context.Context, req *sdk.CallToolRequest, input FileInput) (*sdk.CallToolResult, GraphOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	g, err := q.LocationGraph()
	if err != nil {
		return nil, GraphOutput{}, err
	}
	return nil, graphOutput(g), nil
}

func (s *Server) handleDialogueGraph(ctx context.Context, req *sdk.CallToolRequest, input FileInput) (*sdk.CallToolResult, GraphOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, GraphOutput{}, err
	}
	g, err := q.DialogueGraph()
	if err != nil {
		return nil, GraphOutput{}, err
	}
	return nil, graphOutput(g), nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, input FileInput) (*sdk.CallToolResult, ValidateOutput, error) {
	q, err := s.open(ctx, input.File)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	report, err := q.Validate(ctx)
	if err != nil {
		return nil, ValidateOutput{}, err
	}
	return nil, ValidateOutput{Valid: report.Valid, Errors: append([]string{}, report.Errors...)}, nil
}

func (s *Server) handleListSnapshots(ctx context.Context, req *sdk.CallToolRequest, input FileInput) (*sdk.CallToolResult, ListSnapshotsOutput, error) {
	recs, err := s.store.ListSnapshots(input.File)
	if err != nil {
		return nil, ListSnapshotsOutput{}, err
	}
	output := make([]SnapshotOutput, 0, len(recs))
	for _, r := range recs {
		output = append(output, SnapshotOutput{
			ID:          r.ID,
			Seq:         r.Seq,
			Success:     r.Success,
			SourceHash:  r.SourceHash,
			CompiledAt:  r.CompiledAt.UTC().Format(time.RFC3339),
			Diagnostics: r.Diagnostics,
		})
	}
	return nil, ListSnapshotsOutput{Snapshots: output}, nil
}

func (s *Server) handlePropertyUsage(ctx context.Context, req *sdk.CallToolRequest, input PropertyUsageInput) (*sdk.CallToolResult, PropertyUsageOutput, error) {
	id := input.SnapshotID
	if id == 0 {
		if input.File == "" {
			return nil, PropertyUsageOutput{}, fmt.Errorf("file or snapshot_id is required")
		}
		rec, err := s.store.Latest(input.File)
		if err != nil {
			return nil, PropertyUsageOutput{}, err
		}
		id = rec.ID
	}
	usage, err := s.store.PropertyUsage(id, input.OrphanedOnly)
	if err != nil {
		return nil, PropertyUsageOutput{}, err
	}
	return nil, PropertyUsageOutput{SnapshotID: id, Properties: propertyOutputs(usage)}, nil
}

func propertyOutputs(usage facts.PropertyIndex) []PropertyOutput {
	out := make([]PropertyOutput, 0, len(usage))
	for _, u := range usage {
		out = append(out, PropertyOutput{
			EntityType: u.EntityType,
			Property:   u.Property,
			Reads:      u.ReadCount,
			Writes:     u.WriteCount,
			Orphaned:   u.Orphan,
		})
	}
	return out
}

func rangeOutput(r worldlens.Range) RangeOutput {
	return RangeOutput{
		StartLine: r.Start.Line,
		StartCol:  r.Start.Char,
		EndLine:   r.End.Line,
		EndCol:    r.End.Char,
	}
}

func graphOutput(g worldlens.Graph) GraphOutput {
	out := GraphOutput{
		Nodes: make([]NodeOutput, 0, len(g.Nodes)),
		Edges: make([]EdgeOutput, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		out.Nodes = append(out.Nodes, NodeOutput{ID: n.ID, Label: n.Label, Kind: n.Kind, Flag: n.Flag})
	}
	for _, e := range g.Edges {
		out.Edges = append(out.Edges, EdgeOutput{From: e.From, To: e.To, Label: e.Label, Conditional: e.Conditional})
	}
	return out
}
