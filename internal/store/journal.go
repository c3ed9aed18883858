package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/quark/internal/ir"
)

// ErrNotFound is returned by ReadDispatch for an unknown ID.
var ErrNotFound = errors.New("store: dispatch not found")

// RecordDispatch appends one dispatch record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - a record written twice
// is stored once. rec.Seq is ignored; the journal assigns it.
func (s *Store) RecordDispatch(ctx context.Context, rec ir.DispatchRecord) error {
	argsJSON, err := marshalArgs(rec.Args)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(id, executor, operation, args, state, error_code, message, elapsed_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Executor,
		rec.Operation,
		argsJSON,
		rec.State,
		rec.ErrorCode,
		rec.Message,
		rec.ElapsedNS,
	)
	if err != nil {
		return fmt.Errorf("record dispatch: %w", err)
	}
	return nil
}

// ListDispatches returns the most recent records in dispatch order.
// limit <= 0 returns everything. Returns an empty slice (not nil) for an
// empty journal.
func (s *Store) ListDispatches(ctx context.Context, limit int) ([]ir.DispatchRecord, error) {
	query := `
		SELECT seq, id, executor, operation, args, state, error_code, message, elapsed_ns
		FROM (
			SELECT * FROM dispatches ORDER BY seq DESC LIMIT ?
		)
		ORDER BY seq ASC
	`
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatches: %w", err)
	}
	defer rows.Close()

	records := []ir.DispatchRecord{}
	for rows.Next() {
		rec, err := scanDispatch(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}

	return records, nil
}

// ReadDispatch returns one record by dispatch ID.
func (s *Store) ReadDispatch(ctx context.Context, id string) (ir.DispatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, executor, operation, args, state, error_code, message, elapsed_ns
		FROM dispatches
		WHERE id = ?
	`, id)

	rec, err := scanDispatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.DispatchRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// OperatorSummary aggregates journal records for one operator.
type OperatorSummary struct {
	Executor  string `json:"executor"`
	Operation string `json:"operation"`
	Total     int64  `json:"total"`
	Committed int64  `json:"committed"`
	Failed    int64  `json:"failed"`
	MeanNS    int64  `json:"mean_ns"` // mean handler time over committed dispatches
}

// Summarize returns per-operator counts, sorted by (executor, operation).
func (s *Store) Summarize(ctx context.Context) ([]OperatorSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT executor, operation,
			COUNT(*),
			SUM(CASE WHEN state = 'committed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN state = 'failed' THEN 1 ELSE 0 END),
			COALESCE(CAST(AVG(CASE WHEN state = 'committed' THEN elapsed_ns END) AS INTEGER), 0)
		FROM dispatches
		GROUP BY executor, operation
		ORDER BY executor COLLATE BINARY ASC, operation COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	out := []OperatorSummary{}
	for rows.Next() {
		var sum OperatorSummary
		if err := rows.Scan(&sum.Executor, &sum.Operation, &sum.Total, &sum.Committed, &sum.Failed, &sum.MeanNS); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDispatch(sc scanner) (ir.DispatchRecord, error) {
	var rec ir.DispatchRecord
	var argsJSON string
	err := sc.Scan(
		&rec.Seq,
		&rec.ID,
		&rec.Executor,
		&rec.Operation,
		&argsJSON,
		&rec.State,
		&rec.ErrorCode,
		&rec.Message,
		&rec.ElapsedNS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("scan dispatch: %w", err)
	}

	rec.Args, err = unmarshalArgs(argsJSON)
	if err != nil {
		return rec, fmt.Errorf("scan dispatch %s: %w", rec.ID, err)
	}
	return rec, nil
}

// marshalArgs encodes raw tokens as a JSON array.
// HTML escaping is disabled so paths round-trip byte-for-byte in the column.
func marshalArgs(args []string) (string, error) {
	if args == nil {
		args = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(args); err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalArgs(data string) ([]string, error) {
	args := []string{}
	if data == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(data), &args); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return args, nil
}
