package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/jward/worldlens/internal/store"
)

var (
	flagKeep   int
	flagDelete int64
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Compile a world file and save the snapshot to the database",
	Long:  "Compiles the file and stores its snapshot (output, facts, diagnostics, definitions and property usage) in the SQLite snapshot database.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().IntVar(&flagKeep, "keep", 0, "prune older snapshots of the file, keeping this many (0 keeps all)")
}

// openStore opens and migrates the snapshot database, creating its
// directory.
func openStore() (*store.Store, error) {
	dbPath := resolveDBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ws := openWorkspace(cmd)
	defer ws.Close()

	sess, err := ws.session(ctx, args[0])
	if err != nil {
		return outputError("export", err)
	}
	st, err := openStore()
	if err != nil {
		return outputError("export", err)
	}
	defer st.Close()

	file := storedName(args[0])
	id, err := st.SaveSnapshot(file, sess.Document().Text(), sess.Snapshot())
	if err != nil {
		return outputError("export", err)
	}
	if flagKeep > 0 {
		n, err := st.Prune(file, flagKeep)
		if err != nil {
			return outputError("export", err)
		}
		if n > 0 {
			slogctx.Info(ctx, "pruned snapshots", "file", file, "removed", n)
		}
	}
	rec, err := st.Latest(file)
	if err != nil {
		return outputError("export", err)
	}
	slogctx.Debug(ctx, "snapshot exported", "id", id, "db", resolveDBPath())
	return outputResult(CLIResult{Command: "export", Results: rec})
}

// storedName is the file key snapshots are saved under: the path relative
// to the project root when possible.
func storedName(file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return filepath.ToSlash(file)
	}
	rel, err := filepath.Rel(projectRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots [file]",
	Short: "List exported snapshots, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSnapshots,
}

func init() {
	snapshotsCmd.Flags().Int64Var(&flagDelete, "delete", 0, "delete the snapshot with this id")
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return outputError("snapshots", err)
	}
	defer st.Close()

	if flagDelete != 0 {
		if err := st.DeleteSnapshot(flagDelete); err != nil {
			return outputError("snapshots", err)
		}
		slogctx.Info(cmd.Context(), "snapshot deleted", "id", flagDelete)
	}

	file := ""
	if len(args) > 0 {
		file = storedName(args[0])
	}
	recs, err := st.ListSnapshots(file)
	if err != nil {
		return outputError("snapshots", err)
	}
	if recs == nil {
		recs = []*store.Record{}
	}
	return outputResult(CLIResult{Command: "snapshots", Results: recs})
}
