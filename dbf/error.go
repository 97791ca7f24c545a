package dbf

import (
	"errors"
	"fmt"
)

var (
	// Returned when the end of the record area is reached
	ErrEOF = errors.New("EOF")
	// Names the begin of file condition. Skip clamps a pointer moved before
	// the first row to zero and does not return this error.
	ErrBOF = errors.New("BOF")
	// Returned when the read of a row, column or memo block did not finish
	ErrIncomplete = errors.New("INCOMPLETE")
	// Returned when a random access operation is invoked on a non seekable source
	ErrRequiresSeek = errors.New("REQUIRES_SEEK")
	// Returned when an invalid column position is used (x<0 or x>=number of columns)
	ErrInvalidPosition = errors.New("INVALID_POSITION")
	ErrInvalidEncoding = errors.New("INVALID_ENCODING")
)

// Error wraps an underlying error with a stable context tag naming the
// operation that failed. The tag is kept out of the message so callers
// matching on the underlying error keep working.
type Error struct {
	context string
	err     error
}

func newError(context string, err error) Error {
	return Error{
		context: context,
		err:     err,
	}
}

func (e Error) Error() string {
	return e.err.Error()
}

func (e Error) Context() string {
	return e.context
}

func (e Error) Unwrap() error {
	return e.err
}

// Returned when the header's format byte is not in the recognized set.
type UnsupportedVersionError struct {
	Version byte
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported file version: %d (0x%02x)", e.Version, e.Version)
}

// Returned when the file header carries inconsistent sizes or a mandatory
// terminator is missing.
type MalformedHeaderError struct {
	Reason string
}

func (e MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header: %s", e.Reason)
}

// Returned when a column descriptor fails its per type invariants.
type MalformedFieldError struct {
	Field  string
	Reason string
}

func (e MalformedFieldError) Error() string {
	return fmt.Sprintf("malformed column %q: %s", e.Field, e.Reason)
}

// Returned when decoding a field value failed. Only surfaced as an error
// when Config.ValidateFields is enabled, otherwise the value stream carries
// an InvalidValue in place.
type FieldParseError struct {
	Field  string
	Raw    []byte
	Reason string
}

func (e FieldParseError) Error() string {
	return fmt.Sprintf("parsing column %q from % x: %s", e.Field, e.Raw, e.Reason)
}

// Returned when the table requires a memo file that could not be found and
// Config.IgnoreMissingMemo is disabled.
type MissingMemoError struct {
	TablePath string
	MemoPath  string
}

func (e MissingMemoError) Error() string {
	return fmt.Sprintf("missing memo file %q for table %q", e.MemoPath, e.TablePath)
}
