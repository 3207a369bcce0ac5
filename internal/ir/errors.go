package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind categorizes pipeline and codec failures.
type ErrorKind string

const (
	// KindUnrecognizedFormat indicates no dialect signal was found.
	KindUnrecognizedFormat ErrorKind = "UNRECOGNIZED_FORMAT"

	// KindMissingRequiredField indicates a document omits a required field.
	KindMissingRequiredField ErrorKind = "MISSING_REQUIRED_FIELD"

	// KindDuplicateDefinition indicates two definitions share a name.
	KindDuplicateDefinition ErrorKind = "DUPLICATE_DEFINITION"

	// KindMalformedDiscriminator indicates a declared discriminator is not a byte array.
	KindMalformedDiscriminator ErrorKind = "MALFORMED_DISCRIMINATOR"

	// KindMalformedAddress indicates an address is not a base58 public key.
	KindMalformedAddress ErrorKind = "MALFORMED_ADDRESS"

	// KindUnsupportedType indicates a type form this toolkit does not model.
	KindUnsupportedType ErrorKind = "UNSUPPORTED_TYPE"

	// KindUnresolvedType indicates a reference to a type that does not exist.
	KindUnresolvedType ErrorKind = "UNRESOLVED_TYPE"

	// KindCyclicType indicates a type contains itself without indirection.
	KindCyclicType ErrorKind = "CYCLIC_TYPE"

	// KindAmbiguousPath indicates a path matches more than one type.
	KindAmbiguousPath ErrorKind = "AMBIGUOUS_PATH"

	// KindDiscriminatorCollision indicates two entries of one kind share a tag.
	KindDiscriminatorCollision ErrorKind = "DISCRIMINATOR_COLLISION"

	// KindDiscriminatorMismatch indicates account data carries the wrong tag.
	KindDiscriminatorMismatch ErrorKind = "DISCRIMINATOR_MISMATCH"

	// KindArgumentMismatch indicates a builder was called with the wrong arguments.
	KindArgumentMismatch ErrorKind = "ARGUMENT_MISMATCH"

	// KindInvalidValue indicates a value does not fit its declared type.
	KindInvalidValue ErrorKind = "INVALID_VALUE"
)

// Stage identifies where an error was raised.
type Stage string

const (
	StageDetect        Stage = "detect"
	StageNormalize     Stage = "normalize"
	StageResolve       Stage = "resolve"
	StageDiscriminator Stage = "discriminator"
	StageGenerate      Stage = "generate"
	StageEncode        Stage = "encode"
	StageDecode        Stage = "decode"
)

// Error is the single error type raised by the compiler and codec.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Stage is the pipeline stage that failed.
	Stage Stage

	// Names lists the offending definitions or fields.
	Names []string

	// Message is a human-readable description.
	Message string

	// Err is an optional underlying cause.
	Err error
}

// NewError creates an Error.
func NewError(kind ErrorKind, stage Stage, message string, names ...string) *Error {
	return &Error{Kind: kind, Stage: stage, Message: message, Names: names}
}

// Errorf creates an Error with a formatted message.
func Errorf(kind ErrorKind, stage Stage, names []string, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Names: names, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(string(e.Stage))
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Names) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Names, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
