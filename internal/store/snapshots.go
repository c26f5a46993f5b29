package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jward/worldlens/internal/facts"
)

// ErrNotFound is returned when a requested snapshot does not exist.
var ErrNotFound = errors.New("store: snapshot not found")

// Record summarizes one stored snapshot.
type Record struct {
	ID          int64     `json:"id"`
	File        string    `json:"file"`
	Seq         uint64    `json:"seq"`
	Success     bool      `json:"success"`
	SourceHash  string    `json:"source_hash"`
	CompiledAt  time.Time `json:"compiled_at"`
	Diagnostics int       `json:"diagnostics"`
}

// SaveSnapshot stores snap for file in a single transaction and returns
// the new snapshot id.
func (s *Store) SaveSnapshot(file, source string, snap *facts.Snapshot) (int64, error) {
	if snap == nil {
		return 0, fmt.Errorf("save snapshot: nil snapshot")
	}
	output, err := outputJSON(snap.Output)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: %w", err)
	}
	factsJSON, err := json.Marshal(snap.Facts)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: marshal facts: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO snapshots (file, seq, success, source_hash, compiled_at, output, facts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		file, int64(snap.Seq), snap.Success, SourceHash(source), snap.CompiledAt.UTC(), output, string(factsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("save snapshot: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save snapshot: last insert id: %w", err)
	}

	for i, d := range snap.Diagnostics {
		if err := insertDiagnosticTx(tx, id, i, d); err != nil {
			return 0, fmt.Errorf("save snapshot: diagnostic %s: %w", d.Code, err)
		}
	}
	for key, def := range snap.Definitions {
		if err := insertDefinitionTx(tx, id, key, def); err != nil {
			return 0, fmt.Errorf("save snapshot: definition %q: %w", key, err)
		}
	}
	for i, u := range snap.Properties {
		if err := insertUsageTx(tx, id, i, u); err != nil {
			return 0, fmt.Errorf("save snapshot: property %s.%s: %w", u.EntityType, u.Property, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save snapshot: commit: %w", err)
	}
	return id, nil
}

func outputJSON(out *facts.CompiledOutput) (string, error) {
	if out == nil {
		return "null", nil
	}
	if len(out.Raw) > 0 {
		return string(out.Raw), nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal output: %w", err)
	}
	return string(b), nil
}

func insertDiagnosticTx(tx *sql.Tx, snapshotID int64, ordinal int, d facts.Diagnostic) error {
	var kind, id any
	if d.RelatedSymbol != nil {
		kind, id = d.RelatedSymbol.Kind, d.RelatedSymbol.ID
	}
	_, err := tx.Exec(
		`INSERT INTO diagnostics (snapshot_id, ordinal, severity, code, message, file, start_line, start_col, end_line, end_col, symbol_kind, symbol_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, ordinal, string(d.Severity), d.Code, d.Message, nullString(d.Span.File),
		d.Span.StartLine, d.Span.StartCol, d.Span.EndLine, d.Span.EndCol, kind, id,
	)
	return err
}

func insertDefinitionTx(tx *sql.Tx, snapshotID int64, key string, def facts.Definition) error {
	detail, err := json.Marshal(def)
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO definitions (snapshot_id, key, kind, name, file, start_line, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, key, def.Kind, nullString(def.Name), nullString(def.Span.File), def.Span.StartLine, string(detail),
	)
	return err
}

func insertUsageTx(tx *sql.Tx, snapshotID int64, ordinal int, u facts.PropertyUsage) error {
	_, err := tx.Exec(
		`INSERT INTO property_usage (snapshot_id, ordinal, entity_type, property, read_count, write_count, read_indices, write_indices, orphaned)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshotID, ordinal, u.EntityType, u.Property, u.ReadCount, u.WriteCount,
		marshalIndices(u.ReadIndices), marshalIndices(u.WriteIndices), nullString(u.Orphan),
	)
	return err
}

// LoadSnapshot rebuilds a stored snapshot. Returns ErrNotFound for an
// unknown id.
func (s *Store) LoadSnapshot(id int64) (*facts.Snapshot, error) {
	var (
		seq       int64
		output    string
		factsJSON string
		snap      facts.Snapshot
	)
	err := s.db.QueryRow(
		`SELECT seq, success, compiled_at, output, facts FROM snapshots WHERE id = ?`, id,
	).Scan(&seq, &snap.Success, &snap.CompiledAt, &output, &factsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %d: %w", id, err)
	}
	snap.Seq = uint64(seq)

	if output != "null" {
		out, err := facts.DecodeOutput(json.RawMessage(output))
		if err != nil {
			return nil, fmt.Errorf("load snapshot %d: %w", id, err)
		}
		snap.Output = out
	}
	if err := json.Unmarshal([]byte(factsJSON), &snap.Facts); err != nil {
		return nil, fmt.Errorf("load snapshot %d: decode facts: %w", id, err)
	}
	if snap.Diagnostics, err = s.Diagnostics(id); err != nil {
		return nil, err
	}
	if snap.Definitions, err = s.Definitions(id, ""); err != nil {
		return nil, err
	}
	if snap.Properties, err = s.PropertyUsage(id, false); err != nil {
		return nil, err
	}
	return &snap, nil
}

const recordColumns = `s.id, s.file, s.seq, s.success, s.source_hash, s.compiled_at,
	(SELECT COUNT(*) FROM diagnostics d WHERE d.snapshot_id = s.id)`

func scanRecord(scanner interface{ Scan(...any) error }) (*Record, error) {
	var (
		r   Record
		seq int64
	)
	if err := scanner.Scan(&r.ID, &r.File, &seq, &r.Success, &r.SourceHash, &r.CompiledAt, &r.Diagnostics); err != nil {
		return nil, err
	}
	r.Seq = uint64(seq)
	return &r, nil
}

// ListSnapshots returns the stored snapshots of file, newest first. An
// empty file lists every snapshot.
func (s *Store) ListSnapshots(file string) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM snapshots s`
	var args []any
	if file != "" {
		query += ` WHERE s.file = ?`
		args = append(args, file)
	}
	query += ` ORDER BY s.id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var result []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: scan: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Latest returns the newest snapshot record for file.
func (s *Store) Latest(file string) (*Record, error) {
	row := s.db.QueryRow(`SELECT `+recordColumns+` FROM snapshots s WHERE s.file = ? ORDER BY s.id DESC LIMIT 1`, file)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest snapshot of %s: %w", file, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot of %s: %w", file, err)
	}
	return r, nil
}

// DeleteSnapshot removes a snapshot and everything stored with it.
func (s *Store) DeleteSnapshot(id int64) error {
	res, err := s.db.Exec(`DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete snapshot %d: %w", id, ErrNotFound)
	}
	return nil
}

// Prune keeps the newest keep snapshots of file and deletes the rest.
// Returns the number deleted.
func (s *Store) Prune(file string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(
		`DELETE FROM snapshots WHERE file = ? AND id NOT IN (
			SELECT id FROM snapshots WHERE file = ? ORDER BY id DESC LIMIT ?)`,
		file, file, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune %s: %w", file, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
