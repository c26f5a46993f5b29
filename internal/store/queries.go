package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jward/worldlens/internal/facts"
)

// Diagnostics returns a snapshot's diagnostics in their original order,
// optionally restricted to the given codes.
func (s *Store) Diagnostics(snapshotID int64, codes ...string) ([]facts.Diagnostic, error) {
	query := `SELECT severity, code, message, file, start_line, start_col, end_line, end_col, symbol_kind, symbol_id
		FROM diagnostics WHERE snapshot_id = ?`
	args := []any{snapshotID}
	if len(codes) > 0 {
		query += ` AND code IN (` + placeholderList(len(codes)) + `)`
		args = append(args, stringsToArgs(codes)...)
	}
	query += ` ORDER BY ordinal`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics of %d: %w", snapshotID, err)
	}
	defer rows.Close()

	result := []facts.Diagnostic{}
	for rows.Next() {
		var (
			d          facts.Diagnostic
			severity   string
			file       sql.NullString
			kind, symb sql.NullString
		)
		if err := rows.Scan(&severity, &d.Code, &d.Message, &file,
			&d.Span.StartLine, &d.Span.StartCol, &d.Span.EndLine, &d.Span.EndCol, &kind, &symb); err != nil {
			return nil, fmt.Errorf("diagnostics of %d: scan: %w", snapshotID, err)
		}
		d.Severity = facts.Severity(severity)
		d.Span.File = file.String
		if kind.Valid {
			d.RelatedSymbol = &facts.Symbol{Kind: kind.String, ID: symb.String}
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// Definitions returns a snapshot's definition index. A non-empty kind
// restricts the result to that namespace.
func (s *Store) Definitions(snapshotID int64, kind string) (facts.DefinitionIndex, error) {
	query := `SELECT key, detail FROM definitions WHERE snapshot_id = ?`
	args := []any{snapshotID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("definitions of %d: %w", snapshotID, err)
	}
	defer rows.Close()

	result := facts.DefinitionIndex{}
	for rows.Next() {
		var key, detail string
		if err := rows.Scan(&key, &detail); err != nil {
			return nil, fmt.Errorf("definitions of %d: scan: %w", snapshotID, err)
		}
		var def facts.Definition
		if err := json.Unmarshal([]byte(detail), &def); err != nil {
			return nil, fmt.Errorf("definitions of %d: decode %q: %w", snapshotID, key, err)
		}
		result[key] = def
	}
	return result, rows.Err()
}

// PropertyUsage returns a snapshot's property dependency index in its
// original order. With orphanedOnly, only orphaned pairs are returned.
func (s *Store) PropertyUsage(snapshotID int64, orphanedOnly bool) (facts.PropertyIndex, error) {
	query := `SELECT entity_type, property, read_count, write_count, read_indices, write_indices, orphaned
		FROM property_usage WHERE snapshot_id = ?`
	if orphanedOnly {
		query += ` AND orphaned IS NOT NULL`
	}
	query += ` ORDER BY ordinal`

	rows, err := s.db.Query(query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("property usage of %d: %w", snapshotID, err)
	}
	defer rows.Close()

	var result facts.PropertyIndex
	for rows.Next() {
		var (
			u             facts.PropertyUsage
			reads, writes string
			orphan        sql.NullString
		)
		if err := rows.Scan(&u.EntityType, &u.Property, &u.ReadCount, &u.WriteCount, &reads, &writes, &orphan); err != nil {
			return nil, fmt.Errorf("property usage of %d: scan: %w", snapshotID, err)
		}
		u.ReadIndices = unmarshalIndices(reads)
		u.WriteIndices = unmarshalIndices(writes)
		u.Orphan = orphan.String
		result = append(result, u)
	}
	return result, rows.Err()
}

// CodeCounts tallies a snapshot's diagnostics by code.
func (s *Store) CodeCounts(snapshotID int64) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT code, COUNT(*) FROM diagnostics WHERE snapshot_id = ? GROUP BY code`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("code counts of %d: %w", snapshotID, err)
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var code string
		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("code counts of %d: scan: %w", snapshotID, err)
		}
		counts[code] = n
	}
	return counts, rows.Err()
}
