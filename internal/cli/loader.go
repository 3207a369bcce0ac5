package cli

import (
	"errors"
	"io/fs"

	"github.com/roach88/anchorgo/internal/compiler"
	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
)

// LoadedIdl is one compiled IDL document.
type LoadedIdl struct {
	Path   string
	Source *compiler.Source
	Idl    *ir.Idl
	Hash   string
}

// LoadIdl reads and compiles an IDL file. A file that exists but does not
// parse in its format fails with UnrecognizedFormat; a missing or
// unreadable file is returned as is. obs may be nil.
func LoadIdl(path string, log logging.Logger, obs compiler.Observer) (*LoadedIdl, error) {
	src, err := compiler.LoadFile(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		e := ir.Errorf(ir.KindUnrecognizedFormat, ir.StageDetect, []string{path}, "cannot parse document")
		e.Err = err
		if obs != nil {
			obs.Failed(e.Kind)
		}
		return nil, e
	}

	idl, err := compiler.Compile(src.Doc,
		compiler.WithLogger(log.With("idl", path)),
		compiler.WithObserver(obs))
	if err != nil {
		return nil, err
	}
	hash, err := ir.IdlHash(idl)
	if err != nil {
		return nil, err
	}
	return &LoadedIdl{Path: path, Source: src, Idl: idl, Hash: hash}, nil
}

// loadOrFail loads path and reports a failure through f.
func (o *RootOptions) loadOrFail(f *OutputFormatter, path string, log logging.Logger) (*LoadedIdl, error) {
	l, err := LoadIdl(path, log, o.compileObs)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, err)
	}
	f.VerboseLog("Loaded %s (%s, %s)", path, l.Idl.Origin, l.Hash[:12])
	return l, nil
}
