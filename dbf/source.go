package dbf

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// Spill threshold for non seekable inputs. Streams with a larger estimated
// size are copied to a temporary file instead of memory when random access
// is requested via Spool.
const SpillThreshold = 256 << 20

// Source is the uniform view over the byte containers a table can live in:
// plain files, memory mapped regions, memory buffers and forward only
// streams. Read advances a cursor, ReadAt and Size are only available when
// Seekable reports true.
type Source interface {
	io.Reader
	io.Closer
	// ReadAt reads len(p) bytes at the absolute offset off without moving
	// the cursor. Returns ErrRequiresSeek on non seekable sources.
	ReadAt(p []byte, off int64) (int, error)
	// Size returns the total length of the source.
	// Returns ErrRequiresSeek on non seekable sources.
	Size() (int64, error)
	// Seekable reports whether ReadAt and Size are supported.
	Seekable() bool
}

// NewBytesSource returns an in-memory seekable source.
func NewBytesSource(data []byte) Source {
	return &bytesSource{reader: bytes.NewReader(data)}
}

type bytesSource struct {
	reader *bytes.Reader
}

func (s *bytesSource) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *bytesSource) ReadAt(p []byte, off int64) (int, error) {
	return s.reader.ReadAt(p, off)
}

func (s *bytesSource) Size() (int64, error) {
	return s.reader.Size(), nil
}

func (s *bytesSource) Seekable() bool {
	return true
}

func (s *bytesSource) Close() error {
	return nil
}

// NewFileSource wraps an open file into a seekable source.
// The source takes ownership of the handle.
func NewFileSource(handle *os.File) Source {
	return &fileSource{handle: handle}
}

type fileSource struct {
	handle *os.File
	temp   bool // remove on close
}

func (s *fileSource) Read(p []byte) (int, error) {
	return s.handle.Read(p)
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.handle.ReadAt(p, off)
}

func (s *fileSource) Size() (int64, error) {
	stat, err := s.handle.Stat()
	if err != nil {
		return 0, newError("dbf-source-size-1", err)
	}
	return stat.Size(), nil
}

func (s *fileSource) Seekable() bool {
	return true
}

func (s *fileSource) Close() error {
	err := s.handle.Close()
	if s.temp {
		// Best effort unlink, Spool already removed the file where the
		// platform allows removing an open file.
		_ = os.Remove(s.handle.Name())
	}
	if err != nil {
		return newError("dbf-source-close-1", err)
	}
	return nil
}

// NewStreamSource wraps a forward only reader. The source supports
// sequential reads only, ReadAt and Size report ErrRequiresSeek.
func NewStreamSource(reader io.Reader) Source {
	return &streamSource{reader: reader}
}

type streamSource struct {
	reader io.Reader
}

func (s *streamSource) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *streamSource) ReadAt(p []byte, off int64) (int, error) {
	return 0, newError("dbf-source-readat-1", ErrRequiresSeek)
}

func (s *streamSource) Size() (int64, error) {
	return 0, newError("dbf-source-size-2", ErrRequiresSeek)
}

func (s *streamSource) Seekable() bool {
	return false
}

func (s *streamSource) Close() error {
	if closer, ok := s.reader.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Spool drains a forward only reader into a seekable source. Input up to
// the spill threshold is held in memory, larger input is spilled to a
// temporary file that is removed when the source is closed.
func Spool(reader io.Reader) (Source, error) {
	buf := &bytes.Buffer{}
	n, err := io.CopyN(buf, reader, SpillThreshold+1)
	if err == io.EOF {
		debugf("Spooled %d bytes to memory", n)
		return NewBytesSource(buf.Bytes()), nil
	}
	if err != nil {
		return nil, newError("dbf-source-spool-1", err)
	}
	// Threshold exceeded, spill everything read so far plus the rest of the
	// stream to a temporary file.
	handle, err := os.CreateTemp("", "xbase-spool-*.dbf")
	if err != nil {
		return nil, newError("dbf-source-spool-2", err)
	}
	// Unlink right away where an open file can be removed, Close repeats
	// the removal for platforms that refuse it.
	_ = os.Remove(handle.Name())
	debugf("Spilling stream to temporary file %s", handle.Name())
	if _, err := io.Copy(handle, io.MultiReader(buf, reader)); err != nil {
		handle.Close()
		_ = os.Remove(handle.Name())
		return nil, newError("dbf-source-spool-3", err)
	}
	if _, err := handle.Seek(0, io.SeekStart); err != nil {
		handle.Close()
		_ = os.Remove(handle.Name())
		return nil, newError("dbf-source-spool-4", err)
	}
	return &fileSource{handle: handle, temp: true}, nil
}

// readFull reads exactly len(p) bytes from the source cursor.
// A short read at offset zero yields ErrEOF, mid buffer ErrIncomplete.
func readFull(source Source, p []byte) error {
	n, err := io.ReadFull(source, p)
	if err == io.EOF {
		return ErrEOF
	}
	if err == io.ErrUnexpectedEOF {
		return newError("dbf-source-readfull-1", fmt.Errorf("%w: read %d of %d bytes", ErrIncomplete, n, len(p)))
	}
	if err != nil {
		return newError("dbf-source-readfull-2", err)
	}
	return nil
}
