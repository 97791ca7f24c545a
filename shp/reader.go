package shp

import (
	"encoding/binary"
	"fmt"
	"io"
)

const recordHeaderLength = 8

// Reader streams the records of a .shp file in on-disk order.
type Reader struct {
	source io.Reader
	header *Header
	num    int32
	shape  Shape
	read   int64
	err    error
}

// NewReader decodes the file header and positions the stream at the first
// record.
func NewReader(source io.Reader) (*Reader, error) {
	header, err := ReadHeader(source)
	if err != nil {
		return nil, err
	}
	return &Reader{source: source, header: header, read: fileHeaderLength}, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() *Header {
	return r.header
}

// Next advances the stream by one record and reports whether one is
// available. After Next returns false, Err separates exhaustion from
// failure.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	if r.read >= r.header.FileLength {
		return false
	}
	num, content, err := readRecord(r.source)
	if err == io.EOF {
		return false
	}
	if err != nil {
		r.err = err
		return false
	}
	r.read += recordHeaderLength + int64(len(content))
	shape, err := ParseShape(content)
	if err != nil {
		r.err = fmt.Errorf("record %d: %w", num, err)
		return false
	}
	r.num = num
	r.shape = shape
	return true
}

// Shape returns the record number and geometry last read by Next.
// Record numbers are one based in the file.
func (r *Reader) Shape() (int32, Shape) {
	return r.num, r.shape
}

// Err returns the error that terminated the stream, nil on clean
// exhaustion.
func (r *Reader) Err() error {
	return r.err
}

// readRecord reads one record header and its content. The header carries
// the one based record number and the content length in 16 bit words,
// both big endian. The length excludes the record header itself.
func readRecord(source io.Reader) (int32, []byte, error) {
	head := make([]byte, recordHeaderLength)
	if _, err := io.ReadFull(source, head); err != nil {
		if err == io.EOF {
			return 0, nil, io.EOF
		}
		return 0, nil, fmt.Errorf("record header: %w", ErrTruncated)
	}
	num := int32(binary.BigEndian.Uint32(head[0:4]))
	words := int32(binary.BigEndian.Uint32(head[4:8]))
	if words < 0 {
		return num, nil, InvalidShapeError{Reason: fmt.Sprintf("negative content length in record %d", num)}
	}
	content := make([]byte, int(words)*2)
	if _, err := io.ReadFull(source, content); err != nil {
		return num, nil, fmt.Errorf("record %d content: %w", num, ErrTruncated)
	}
	return num, content, nil
}

// SeekableReader additionally resolves records by number through the .shx
// offset index.
type SeekableReader struct {
	source io.ReaderAt
	header *Header
	index  *Index
}

// NewSeekableReader pairs a random access .shp source with its decoded
// .shx index.
func NewSeekableReader(source io.ReaderAt, index *Index) (*SeekableReader, error) {
	head := make([]byte, fileHeaderLength)
	if _, err := source.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("reading file header: %w", ErrTruncated)
	}
	header, err := ParseHeader(head)
	if err != nil {
		return nil, err
	}
	return &SeekableReader{source: source, header: header, index: index}, nil
}

// Header returns the decoded file header.
func (r *SeekableReader) Header() *Header {
	return r.header
}

// Count returns the number of records in the index.
func (r *SeekableReader) Count() int {
	return len(r.index.Entries)
}

// ShapeAt reads and decodes the record at the zero based index position.
func (r *SeekableReader) ShapeAt(i int) (Shape, error) {
	offset, length, err := r.index.Record(i)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, recordHeaderLength+length)
	if _, err := r.source.ReadAt(raw, offset); err != nil {
		return nil, fmt.Errorf("record %d at %d: %w", i+1, offset, ErrTruncated)
	}
	return ParseShape(raw[recordHeaderLength:])
}
