//go:build windows

package dbf

import (
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapSource maps a file read-only into the process address space via a
// file mapping object. The view is kept until Close.
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
	mapping, err := windows.CreateFileMapping(windows.Handle(handle.Fd()), nil, windows.PAGE_READONLY, 0, 0, nil)
	if err != nil {
		debugf("Creating file mapping for %s failed (%v), falling back to file reads", handle.Name(), err)
		return NewFileSource(handle), nil
	}
	view, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ, 0, 0, 0)
	if err != nil {
		_ = windows.CloseHandle(mapping)
		debugf("Mapping view of %s failed (%v), falling back to file reads", handle.Name(), err)
		return NewFileSource(handle), nil
	}
	// The view keeps the mapping alive, the mapping object and the file
	// handle are not needed anymore.
	_ = windows.CloseHandle(mapping)
	data := unsafe.Slice((*byte)(unsafe.Pointer(view)), stat.Size())
	debugf("Memory mapped %s (%d bytes)", handle.Name(), stat.Size())
	if err := handle.Close(); err != nil {
		_ = windows.UnmapViewOfFile(view)
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
	view := uintptr(unsafe.Pointer(&s.data[0]))
	s.data = nil
	if err := windows.UnmapViewOfFile(view); err != nil {
		return newError("dbf-mmap-close-1", err)
	}
	return nil
}
