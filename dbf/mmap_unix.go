//go:build unix

package dbf

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// mmapSource maps a file read-only into memory. The mapping keeps the file
// contents addressable after the handle is closed, ReadAt turns into a
// plain copy.
type mmapSource struct {
	data   []byte
	cursor int64
}

// NewMappedSource memory-maps the file read-only and closes the handle.
// Falls back to a plain file source when the file cannot be mapped,
// for example for empty files.
func NewMappedSource(handle *os.File) (Source, error) {
	stat, err := handle.Stat()
	if err != nil {
		handle.Close()
		return nil, newError("dbf-mmap-open-1", err)
	}
	if stat.Size() == 0 {
		return NewFileSource(handle), nil
	}
	data, err := unix.Mmap(int(handle.Fd()), 0, int(stat.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		debugf("Memory mapping %s failed (%v), falling back to file reads", handle.Name(), err)
		return NewFileSource(handle), nil
	}
	debugf("Memory mapped %s (%d bytes)", handle.Name(), stat.Size())
	if err := handle.Close(); err != nil {
		_ = unix.Munmap(data)
		return nil, newError("dbf-mmap-open-2", err)
	}
	return &mmapSource{data: data}, nil
}

func (s *mmapSource) Read(p []byte) (int, error) {
	if s.cursor >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.cursor:])
	s.cursor += int64(n)
	return n, nil
}

func (s *mmapSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mmapSource) Size() (int64, error) {
	return int64(len(s.data)), nil
}

func (s *mmapSource) Seekable() bool {
	return true
}

func (s *mmapSource) Close() error {
	if s.data == nil {
		return nil
	}
	data := s.data
	s.data = nil
	if err := unix.Munmap(data); err != nil {
		return newError("dbf-mmap-close-1", err)
	}
	return nil
}
