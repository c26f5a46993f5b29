// Package worldlens provides editor intelligence for Urd world files: hover
// tooltips, go-to-definition, completion, diagnostics and graph projections,
// all computed from the fact database an external compiler emits.
//
// # Pipeline
//
// A [Session] owns one open document and proceeds in two debounced phases:
//
//  1. Syntax: shortly after typing stops, the engine parses the text and
//     reports parse diagnostics. No snapshot is produced.
//
//  2. Compile: after a longer pause, the engine compiles the text into a
//     compile result (world output, facts, diagnostics, definitions and
//     property usage). The result becomes the session's [Snapshot].
//
// A failed compile never erases the last good world: the new snapshot keeps
// the previous output, facts and indices and carries only the new
// diagnostics. Results of compiles that were overtaken by a newer one are
// discarded.
//
// # Usage
//
//	s := worldlens.New(engine.ExecLoader("urd"), worldlens.WithFile("tavern.urd.md"))
//	defer s.Close()
//
//	ctx := context.Background()
//	if err := s.Init(ctx); err != nil { ... }
//	if err := s.Update(text); err != nil { ... }
//	snap, err := s.Compile(ctx)
//
//	md, ok, err := s.Hover(28, 13)
//
// # Query API
//
// Queries take 0-based lines and 0-based character columns:
//
//   - [Session.ReferenceAt] classifies the construct under the cursor.
//   - [Session.Hover] renders a markdown tooltip for it.
//   - [Session.DefinitionAt] finds its declaration.
//   - [Session.Complete] lists candidates for the text before the cursor.
//   - [Session.Diagnostics] positions the snapshot's diagnostics.
//   - [Session.LocationGraph] and [Session.DialogueGraph] project the world
//     into serializable graphs.
//
// # Scripts
//
// [Session.Validate] runs a Risor script over the world output. The default
// script is embedded under scripts/validate; projects may point at their own
// directory through worldlens.yaml.
package worldlens
