package imageds

import (
	"errors"
	"fmt"

	"github.com/crazypenguincode/CNTK/bytesource"
)

var (
	// ErrNotFound is returned when a chunk id, sequence id, or path
	// does not resolve to anything.
	ErrNotFound = bytesource.ErrNotFound

	// ErrUnsupportedFormat is returned when a path requires a disabled
	// capability (container or remote support).
	ErrUnsupportedFormat = bytesource.ErrUnsupportedFormat

	// ErrChunkIDOverflow is returned by the index build when assigning
	// further sequence ids would exceed the chunk-id range.
	ErrChunkIDOverflow = errors.New("imageds: chunk id space exhausted")
)

// ConfigError indicates invalid configuration. It is surfaced at
// construction and aborts startup.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("imageds: invalid %s: %s", e.Option, e.Reason)
}

// FormatError indicates a malformed mapping-file line. It is fatal for
// the whole build: a partially indexed dataset cannot be trusted.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	File   string
	Line   int
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("imageds: %s, line %d in file %s", e.Reason, e.Line, e.File)
}

func (e *FormatError) Unwrap() error { return e.cause }

// DecodeError indicates that a sequence's raw bytes do not decode to a
// valid image. It is fatal for that sequence only; sibling sequences in
// the same chunk are unaffected.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DecodeError struct {
	SequenceID uint64
	Path       string
	cause      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("imageds: cannot decode sequence %d from %q: %v", e.SequenceID, e.Path, e.cause)
}

func (e *DecodeError) Unwrap() error { return e.cause }
