//go:build !unix && !windows

package dbf

import "os"

// NewMappedSource falls back to plain file reads on platforms without a
// memory mapping implementation.
func NewMappedSource(handle *os.File) (Source, error) {
	return NewFileSource(handle), nil
}
