package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
)

// Run records one code generation pass over a stored program.
type Run struct {
	ID          string   `json:"id"`
	Seq         int64    `json:"seq"`
	ProgramHash string   `json:"program_hash"`
	Package     string   `json:"package"`
	OutDir      string   `json:"out_dir"`
	Files       []string `json:"files"`
}

// RecordRun stores a generation run and returns its ID. The program must
// already be registered.
func (s *Store) RecordRun(ctx context.Context, programHash, pkg, outDir string, files []string) (string, error) {
	list := make([]any, len(files))
	for i, f := range files {
		list[i] = f
	}
	filesJSON, err := ir.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	seq, err := nextSeq(ctx, tx, "runs")
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	id := s.newID()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, program_hash, package, out_dir, files)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, seq, programHash, pkg, outDir, string(filesJSON))
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}

	s.log.WithFields(logging.Fields{"run": id, "hash": programHash, "files": len(files)}).Debug("recorded generation run")
	return id, nil
}

// Run returns a single run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("run %q: %w", id, err)
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, program_hash, package, out_dir, files
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", id, err)
	}
	return r, nil
}

// Runs returns the runs recorded for a program in recording order.
func (s *Store) Runs(ctx context.Context, programHash string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, program_hash, package, out_dir, files
		FROM runs
		WHERE program_hash = ?
		ORDER BY seq ASC
	`, programHash)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var files string
	if err := row.Scan(&r.ID, &r.Seq, &r.ProgramHash, &r.Package, &r.OutDir, &files); err != nil {
		return Run{}, err
	}
	if err := json.Unmarshal([]byte(files), &r.Files); err != nil {
		return Run{}, fmt.Errorf("unmarshal run files: %w", err)
	}
	return r, nil
}
