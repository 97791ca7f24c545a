package shp

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	fileHeaderLength = 100
	fileCode         = 9994
	fileVersion      = 1000
)

// Header is the decoded 100 byte file header shared by .shp and .shx.
// The file length is converted from 16 bit words to bytes.
type Header struct {
	FileLength int64 // total file length in bytes
	ShapeType  ShapeType
	Box        Box
	ZMin, ZMax float64
	MMin, MMax float64
}

// ReadHeader decodes and validates the file header: file code 9994 and
// version 1000 are mandatory, the bounding box ordering is checked.
func ReadHeader(r io.Reader) (*Header, error) {
	raw := make([]byte, fileHeaderLength)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("reading file header: %w", ErrTruncated)
	}
	return ParseHeader(raw)
}

// ParseHeader decodes the 100 byte header from a buffer.
func ParseHeader(raw []byte) (*Header, error) {
	if len(raw) < fileHeaderLength {
		return nil, fmt.Errorf("file header needs %d bytes, got %d: %w", fileHeaderLength, len(raw), ErrTruncated)
	}
	if code := int32(binary.BigEndian.Uint32(raw[0:4])); code != fileCode {
		return nil, InvalidShapeError{Reason: fmt.Sprintf("file code %d != %d", code, fileCode)}
	}
	if version := int32(binary.LittleEndian.Uint32(raw[28:32])); version != fileVersion {
		return nil, InvalidShapeError{Reason: fmt.Sprintf("file version %d != %d", version, fileVersion)}
	}
	h := &Header{
		FileLength: int64(binary.BigEndian.Uint32(raw[24:28])) * 2,
		ShapeType:  ShapeType(int32(binary.LittleEndian.Uint32(raw[32:36]))),
		Box: Box{
			MinX: readFloat(raw[36:44]),
			MinY: readFloat(raw[44:52]),
			MaxX: readFloat(raw[52:60]),
			MaxY: readFloat(raw[60:68]),
		},
		ZMin: readFloat(raw[68:76]),
		ZMax: readFloat(raw[76:84]),
		MMin: readFloat(raw[84:92]),
		MMax: readFloat(raw[92:100]),
	}
	if h.Box.MinX > h.Box.MaxX || h.Box.MinY > h.Box.MaxY {
		return nil, InvalidShapeError{Reason: "bounding box minimum exceeds maximum"}
	}
	return h, nil
}

func readFloat(raw []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(raw))
}
