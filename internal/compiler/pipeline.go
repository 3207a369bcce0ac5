package compiler

import (
	"time"

	"github.com/roach88/anchorgo/internal/ir"
	"github.com/roach88/anchorgo/internal/logging"
)

// Option configures Compile.
type Option func(*options)

type options struct {
	log logging.Logger
	obs Observer
}

// Observer receives one event per Compile call.
type Observer interface {
	Compiled(origin ir.Origin, d time.Duration)
	Failed(kind ir.ErrorKind)
}

type nopObserver struct{}

func (nopObserver) Compiled(ir.Origin, time.Duration) {}
func (nopObserver) Failed(ir.ErrorKind)              {}

// WithObserver reports compile outcomes to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.obs = obs
		}
	}
}

// WithLogger routes stage tracing to l at debug level.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Compile runs the full pipeline on a raw document: detect the dialect,
// normalize, resolve type references, then assign or validate
// discriminators. It returns either a finished model or exactly one
// *ir.Error; no partial model escapes.
//
// Compile holds no state between calls, so independent documents may be
// compiled concurrently.
func Compile(doc RawDocument, opts ...Option) (*ir.Idl, error) {
	o := options{log: logging.Discard(), obs: nopObserver{}}
	for _, opt := range opts {
		opt(&o)
	}

	start := time.Now()
	idl, err := compile(doc, o.log)
	if err != nil {
		o.obs.Failed(ir.KindOf(err))
		return nil, err
	}
	o.obs.Compiled(idl.Origin, time.Since(start))
	return idl, nil
}

func compile(doc RawDocument, log logging.Logger) (*ir.Idl, error) {
	origin, err := Detect(doc)
	if err != nil {
		return nil, err
	}
	log = log.With("origin", string(origin))
	log.Debug("detected IDL dialect")

	idl, err := Normalize(origin, doc)
	if err != nil {
		return nil, err
	}
	log = log.With("program", idl.Metadata.Name)
	log.WithFields(logging.Fields{
		"instructions": len(idl.Instructions),
		"accounts":     len(idl.Accounts),
		"events":       len(idl.Events),
		"types":        idl.Types.Len(),
	}).Debug("normalized")

	if err := Resolve(idl); err != nil {
		return nil, err
	}
	log.Debug("resolved type references")

	if err := AssignDiscriminators(idl); err != nil {
		return nil, err
	}
	log.Debug("assigned discriminators")
	return idl, nil
}

// CompileJSON parses and compiles a JSON document.
func CompileJSON(data []byte, opts ...Option) (*ir.Idl, error) {
	doc, err := ParseJSON(data)
	if err != nil {
		return nil, ir.Errorf(ir.KindUnrecognizedFormat, ir.StageDetect, nil, "%v", err)
	}
	return Compile(doc, opts...)
}
