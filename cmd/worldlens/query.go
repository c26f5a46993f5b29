package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	goruntime "runtime"
	"strconv"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/jward/worldlens"
	"github.com/jward/worldlens/internal/facts"
)

// --- Helpers ---

// openWorkspace builds the workspace for a command from the loaded config.
func openWorkspace(cmd *cobra.Command) *workspace {
	return execWorkspace(projectCfg, projectRoot, slogctx.FromCtx(cmd.Context()))
}

// commandSession returns the session a query command runs against: the
// live compile of file, or the exported snapshot named by --snapshot.
func commandSession(cmd *cobra.Command, ws *workspace, file string) (*worldlens.Session, error) {
	if flagSnapshot == 0 {
		return ws.session(cmd.Context(), file)
	}
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	defer st.Close()
	snap, err := st.LoadSnapshot(flagSnapshot)
	if err != nil {
		return nil, err
	}
	return ws.offline(file, snap)
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePosition parses <file> <line> <col>.
func parsePosition(args []string) (file string, line, col int, err error) {
	line, err = parseIntArg(args[1], "line")
	if err != nil {
		return "", 0, 0, err
	}
	col, err = parseIntArg(args[2], "col")
	if err != nil {
		return "", 0, 0, err
	}
	return args[0], line, col, nil
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// positionCommand builds a <file> <line> <col> command around query.
func positionCommand(use, short string, query func(s *worldlens.Session, line, col int) (any, error)) *cobra.Command {
	name := use
	return &cobra.Command{
		Use:   use + " <file> <line> <col>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, line, col, err := parsePosition(args)
			if err != nil {
				return outputError(name, err)
			}
			ws := openWorkspace(cmd)
			defer ws.Close()
			s, err := commandSession(cmd, ws, file)
			if err != nil {
				return outputError(name, err)
			}
			res, err := query(s, line, col)
			if err != nil {
				return outputError(name, err)
			}
			return outputResult(CLIResult{Command: name, Results: res})
		},
	}
}

// --- Position-Based Commands ---

var hoverCmd = positionCommand("hover", "Render the tooltip at a position",
	func(s *worldlens.Session, line, col int) (any, error) {
		md, ok, err := s.Hover(line, col)
		if err != nil {
			return nil, err
		}
		return CLIHover{Found: ok, Markdown: md}, nil
	})

var resolveCmd = positionCommand("resolve", "Identify the construct at a position",
	func(s *worldlens.Session, line, col int) (any, error) {
		ref, err := s.ReferenceAt(line, col)
		if err != nil || ref == nil {
			return nil, err
		}
		return CLIReference{Kind: string(ref.Kind()), Detail: ref}, nil
	})

var definitionCmd = positionCommand("definition", "Find the declaration of the construct at a position",
	func(s *worldlens.Session, line, col int) (any, error) {
		loc, err := s.DefinitionAt(line, col)
		if err != nil {
			return nil, err
		}
		out := []CLILocation{}
		if loc != nil {
			out = append(out, locationToCLI(loc))
		}
		return out, nil
	})

var completeCmd = positionCommand("complete", "List completions for the text before a position",
	func(s *worldlens.Session, line, col int) (any, error) {
		return s.Complete(line, col)
	})

// --- File Commands ---

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Project a world file into a graph",
}

func init() {
	graphCmd.AddCommand(fileCommand("locations", "Project locations and exits", func(ctx context.Context, s *worldlens.Session) (any, error) {
		return s.LocationGraph()
	}))
	graphCmd.AddCommand(fileCommand("dialogue", "Project dialogue sections and jumps", func(ctx context.Context, s *worldlens.Session) (any, error) {
		return s.DialogueGraph()
	}))
}

var validateCmd = fileCommand("validate", "Run the structural validation script", func(ctx context.Context, s *worldlens.Session) (any, error) {
	return s.Validate(ctx)
})

// fileCommand builds a <file> command around query.
func fileCommand(use, short string, query func(ctx context.Context, s *worldlens.Session) (any, error)) *cobra.Command {
	name := use
	return &cobra.Command{
		Use:   use + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := openWorkspace(cmd)
			defer ws.Close()
			s, err := commandSession(cmd, ws, args[0])
			if err != nil {
				return outputError(name, err)
			}
			res, err := query(cmd.Context(), s)
			if err != nil {
				return outputError(name, err)
			}
			return outputResult(CLIResult{Command: name, Results: res})
		},
	}
}

var checkCmd = &cobra.Command{
	Use:   "check <file>...",
	Short: "Compile world files and report diagnostics",
	Long:  "Compiles each file in parallel and prints its diagnostics. Exits non-zero when any file has errors.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ws := openWorkspace(cmd)
	defer ws.Close()

	results, err := checkFiles(cmd.Context(), ws, args)
	if err != nil {
		return outputError("check", err)
	}
	if err := outputResult(CLIResult{Command: "check", Results: results}); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.failed() {
			failed++
		}
	}
	if failed > 0 {
		errorHandled = true
		return fmt.Errorf("%d of %d file(s) failed", failed, len(results))
	}
	return nil
}

// checkFiles compiles files concurrently. Results keep argument order.
func checkFiles(ctx context.Context, ws *workspace, files []string) ([]CLICheck, error) {
	results := make([]CLICheck, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(goruntime.GOMAXPROCS(0))
	for i, file := range files {
		g.Go(func() error {
			s, err := ws.session(ctx, file)
			if err != nil {
				return err
			}
			diags, err := s.Diagnostics()
			if err != nil {
				return err
			}
			snap := s.Snapshot()
			results[i] = CLICheck{File: file, Success: snap != nil && snap.Success, Diagnostics: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c CLICheck) failed() bool {
	if !c.Success {
		return true
	}
	for _, d := range c.Diagnostics {
		if d.Severity == facts.SeverityError {
			return true
		}
	}
	return false
}
