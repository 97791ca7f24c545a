package shp

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IndexEntry locates one record inside the .shp file: the offset of its
// record header and the content length, both converted from 16 bit words
// to bytes.
type IndexEntry struct {
	Offset int64
	Length int
}

// Index is the decoded .shx sidecar, enabling O(1) seeks into the .shp
// record stream by record number.
type Index struct {
	Header  *Header
	Entries []IndexEntry
}

// ReadIndex decodes a .shx file: the 100 byte header identical to .shp
// followed by one big endian (offset, length) pair per record.
func ReadIndex(source io.Reader) (*Index, error) {
	header, err := ReadHeader(source)
	if err != nil {
		return nil, err
	}
	count := (header.FileLength - fileHeaderLength) / 8
	if count < 0 {
		return nil, InvalidShapeError{Reason: "index file length below header length"}
	}
	entries := make([]IndexEntry, 0, count)
	raw := make([]byte, 8)
	for i := int64(0); i < count; i++ {
		if _, err := io.ReadFull(source, raw); err != nil {
			return nil, fmt.Errorf("index record %d: %w", i, ErrTruncated)
		}
		entries = append(entries, IndexEntry{
			Offset: int64(binary.BigEndian.Uint32(raw[0:4])) * 2,
			Length: int(binary.BigEndian.Uint32(raw[4:8])) * 2,
		})
	}
	return &Index{Header: header, Entries: entries}, nil
}

// Record returns the byte offset and content length of the zero based
// record i.
func (idx *Index) Record(i int) (int64, int, error) {
	if i < 0 || i >= len(idx.Entries) {
		return 0, 0, InvalidShapeError{Reason: fmt.Sprintf("record %d out of range", i)}
	}
	return idx.Entries[i].Offset, idx.Entries[i].Length, nil
}
