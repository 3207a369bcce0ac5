package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
)

// Discriminator kinds as stored in the discriminators table.
const (
	KindInstruction = "instruction"
	KindAccount     = "account"
	KindEvent       = "event"
)

// ProgramInfo summarizes a stored program.
type ProgramInfo struct {
	Hash    string    `json:"hash"`
	Seq     int64     `json:"seq"`
	Name    string    `json:"name"`
	Version string    `json:"version"`
	Address string    `json:"address,omitempty"`
	Origin  ir.Origin `json:"origin"`
}

// Discriminator is one stored tag.
type Discriminator struct {
	ProgramHash string `json:"program_hash"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Hex         string `json:"hex"`
}

// Match is a stored tag that prefixes some payload.
type Match struct {
	Program ProgramInfo   `json:"program"`
	Tag     Discriminator `json:"discriminator"`
}

// SaveProgram records a compiled model and its source JSON. It returns the
// model's content hash. Saving a model whose hash is already stored is a
// no-op, so the first source document for a hash wins.
func (s *Store) SaveProgram(ctx context.Context, idl *ir.Idl, source []byte) (string, error) {
	hash, err := ir.IdlHash(idl)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	canonical, err := ir.CanonicalJSON(idl)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save program: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM programs WHERE hash = ?`, hash).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}
	if exists > 0 {
		s.log.With("hash", hash).Debug("program already registered")
		return hash, nil
	}

	seq, err := nextSeq(ctx, tx, "programs")
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	meta := idl.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO programs (hash, seq, name, version, address, origin, source, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, hash, seq, meta.Name, meta.Version, meta.Address, string(idl.Origin), string(source), string(canonical))
	if err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	for _, d := range discriminatorsOf(hash, idl) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO discriminators (program_hash, kind, name, hex)
			VALUES (?, ?, ?, ?)
		`, d.ProgramHash, d.Kind, d.Name, d.Hex)
		if err != nil {
			return "", fmt.Errorf("save program: discriminator %s %q: %w", d.Kind, d.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save program: commit: %w", err)
	}
	s.log.WithFields(logging.Fields{"hash": hash, "program": meta.Name}).Info("registered program")
	return hash, nil
}

func discriminatorsOf(hash string, idl *ir.Idl) []Discriminator {
	var out []Discriminator
	add := func(kind, name string, tag []byte) {
		if len(tag) == 0 {
			return
		}
		out = append(out, Discriminator{ProgramHash: hash, Kind: kind, Name: name, Hex: hex.EncodeToString(tag)})
	}
	for _, ix := range idl.Instructions {
		add(KindInstruction, ix.Name, ix.Discriminator)
	}
	for _, acc := range idl.Accounts {
		add(KindAccount, acc.Name, acc.Discriminator)
	}
	for _, ev := range idl.Events {
		add(KindEvent, ev.Name, ev.Discriminator)
	}
	return out
}

// LoadProgram recompiles the stored source for hash. A model whose hash no
// longer matches is still returned; the mismatch is logged.
func (s *Store) LoadProgram(ctx context.Context, hash string) (*ir.Idl, error) {
	var source string
	err := s.db.QueryRowContext(ctx, `SELECT source FROM programs WHERE hash = ?`, hash).Scan(&source)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}

	idl, err := compiler.CompileJSON([]byte(source), compiler.WithLogger(s.log))
	if err != nil {
		return nil, fmt.Errorf("load program %s: %w", hash, err)
	}
	if got := ir.MustIdlHash(idl); got != hash {
		s.log.WithFields(logging.Fields{"stored": hash, "compiled": got}).Warn("stored program recompiles to a different hash")
	}
	return idl, nil
}

// Canonical returns the canonical JSON recorded when hash was saved.
func (s *Store) Canonical(ctx context.Context, hash string) ([]byte, error) {
	var canonical string
	err := s.db.QueryRowContext(ctx, `SELECT canonical FROM programs WHERE hash = ?`, hash).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("canonical %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("canonical %s: %w", hash, err)
	}
	return []byte(canonical), nil
}

// Program returns the summary of one stored program.
func (s *Store) Program(ctx context.Context, hash string) (ProgramInfo, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, seq, name, version, address, origin
		FROM programs WHERE hash = ?
	`, hash)
	p, err := scanProgram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ProgramInfo{}, fmt.Errorf("program %s: %w", hash, ErrNotFound)
	}
	if err != nil {
		return ProgramInfo{}, fmt.Errorf("program %s: %w", hash, err)
	}
	return p, nil
}

// ListPrograms returns every stored program in registration order.
// Returns an empty slice (not nil) for an empty registry.
func (s *Store) ListPrograms(ctx context.Context) ([]ProgramInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, seq, name, version, address, origin
		FROM programs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query programs: %w", err)
	}
	defer rows.Close()

	programs := []ProgramInfo{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate programs: %w", err)
	}
	return programs, nil
}

// Discriminators returns the stored tags of one program, instructions
// first, then accounts, then events, each sorted by name.
func (s *Store) Discriminators(ctx context.Context, hash string) ([]Discriminator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT program_hash, kind, name, hex
		FROM discriminators
		WHERE program_hash = ?
		ORDER BY CASE kind WHEN 'instruction' THEN 0 WHEN 'account' THEN 1 ELSE 2 END,
		         name COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query discriminators: %w", err)
	}
	defer rows.Close()

	out := []Discriminator{}
	for rows.Next() {
		var d Discriminator
		if err := rows.Scan(&d.ProgramHash, &d.Kind, &d.Name, &d.Hex); err != nil {
			return nil, fmt.Errorf("scan discriminator: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate discriminators: %w", err)
	}
	return out, nil
}

// Match returns every stored tag that is a prefix of data, across all
// programs. Results are ordered by program registration, then kind, then
// name.
func (s *Store) Match(ctx context.Context, data []byte) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.hash, p.seq, p.name, p.version, p.address, p.origin, d.kind, d.name, d.hex
		FROM discriminators d
		JOIN programs p ON p.hash = d.program_hash
		WHERE length(d.hex) <= length(?1) AND substr(?1, 1, length(d.hex)) = d.hex
		ORDER BY p.seq ASC,
		         CASE d.kind WHEN 'instruction' THEN 0 WHEN 'account' THEN 1 ELSE 2 END,
		         d.name COLLATE BINARY ASC
	`, hex.EncodeToString(data))
	if err != nil {
		return nil, fmt.Errorf("match discriminators: %w", err)
	}
	defer rows.Close()

	matches := []Match{}
	for rows.Next() {
		var m Match
		var origin string
		err := rows.Scan(&m.Program.Hash, &m.Program.Seq, &m.Program.Name, &m.Program.Version,
			&m.Program.Address, &origin, &m.Tag.Kind, &m.Tag.Name, &m.Tag.Hex)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Program.Origin = ir.Origin(origin)
		m.Tag.ProgramHash = m.Program.Hash
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProgram(row scanner) (ProgramInfo, error) {
	var p ProgramInfo
	var origin string
	if err := row.Scan(&p.Hash, &p.Seq, &p.Name, &p.Version, &p.Address, &origin); err != nil {
		return ProgramInfo{}, err
	}
	p.Origin = ir.Origin(origin)
	return p, nil
}
