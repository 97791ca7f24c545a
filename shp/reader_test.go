package shp

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFile assembles a .shp image from geometry blobs and the matching
// .shx index image.
func buildFile(shapeType ShapeType, box Box, contents ...[]byte) ([]byte, []byte) {
	var records []byte
	var index []byte
	offset := fileHeaderLength
	for i, content := range contents {
		head := make([]byte, recordHeaderLength)
		binary.BigEndian.PutUint32(head[0:4], uint32(i+1))
		binary.BigEndian.PutUint32(head[4:8], uint32(len(content)/2))
		records = append(records, head...)
		records = append(records, content...)

		entry := make([]byte, 8)
		binary.BigEndian.PutUint32(entry[0:4], uint32(offset/2))
		binary.BigEndian.PutUint32(entry[4:8], uint32(len(content)/2))
		index = append(index, entry...)
		offset += recordHeaderLength + len(content)
	}
	shpFile := buildHeaderBytes(shapeType, box, fileHeaderLength+len(records))
	shpFile = append(shpFile, records...)
	shxFile := buildHeaderBytes(shapeType, box, fileHeaderLength+len(index))
	shxFile = append(shxFile, index...)
	return shpFile, shxFile
}

func buildHeaderBytes(shapeType ShapeType, box Box, fileLength int) []byte {
	raw := make([]byte, fileHeaderLength)
	binary.BigEndian.PutUint32(raw[0:4], fileCode)
	binary.BigEndian.PutUint32(raw[24:28], uint32(fileLength/2))
	binary.LittleEndian.PutUint32(raw[28:32], fileVersion)
	binary.LittleEndian.PutUint32(raw[32:36], uint32(shapeType))
	putFloat(raw[36:44], box.MinX)
	putFloat(raw[44:52], box.MinY)
	putFloat(raw[52:60], box.MaxX)
	putFloat(raw[60:68], box.MaxY)
	return raw
}

func TestReadHeader(t *testing.T) {
	box := Box{MinX: -10, MinY: -5, MaxX: 10, MaxY: 5}
	raw := buildHeaderBytes(PointType, box, 100)
	header, err := ParseHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, PointType, header.ShapeType)
	assert.Equal(t, box, header.Box)
	assert.Equal(t, int64(100), header.FileLength)
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	raw := buildHeaderBytes(PointType, Box{}, 100)
	binary.BigEndian.PutUint32(raw[0:4], 1234)
	_, err := ParseHeader(raw)
	assert.Error(t, err)

	raw = buildHeaderBytes(PointType, Box{}, 100)
	binary.LittleEndian.PutUint32(raw[28:32], 999)
	_, err = ParseHeader(raw)
	assert.Error(t, err)

	raw = buildHeaderBytes(PointType, Box{MinX: 5, MaxX: -5}, 100)
	_, err = ParseHeader(raw)
	assert.Error(t, err)
}

func TestReaderStream(t *testing.T) {
	shpFile, _ := buildFile(PointType, Box{MinX: 1.5, MinY: 2.5, MaxX: 3.5, MaxY: 4.5},
		pointRecord(1.5, 2.5),
		pointRecord(3.5, 4.5),
	)
	reader, err := NewReader(bytes.NewReader(shpFile))
	require.NoError(t, err)

	require.True(t, reader.Next())
	num, shape := reader.Shape()
	assert.Equal(t, int32(1), num)
	assert.Equal(t, Point{X: 1.5, Y: 2.5}, shape)

	require.True(t, reader.Next())
	num, shape = reader.Shape()
	assert.Equal(t, int32(2), num)
	assert.Equal(t, Point{X: 3.5, Y: 4.5}, shape)

	assert.False(t, reader.Next())
	assert.NoError(t, reader.Err())
}

func TestReaderTruncatedRecord(t *testing.T) {
	shpFile, _ := buildFile(PointType, Box{}, pointRecord(1, 2))
	reader, err := NewReader(bytes.NewReader(shpFile[:len(shpFile)-4]))
	require.NoError(t, err)
	assert.False(t, reader.Next())
	assert.Error(t, reader.Err())
}

func TestIndexAndSeekableReader(t *testing.T) {
	shpFile, shxFile := buildFile(PointType, Box{MinX: 1, MinY: 1, MaxX: 9, MaxY: 9},
		pointRecord(1, 1),
		pointRecord(5, 5),
		pointRecord(9, 9),
	)
	index, err := ReadIndex(bytes.NewReader(shxFile))
	require.NoError(t, err)
	require.Len(t, index.Entries, 3)
	assert.Equal(t, int64(fileHeaderLength), index.Entries[0].Offset)

	reader, err := NewSeekableReader(bytes.NewReader(shpFile), index)
	require.NoError(t, err)
	assert.Equal(t, 3, reader.Count())

	shape, err := reader.ShapeAt(1)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 5, Y: 5}, shape)

	shape, err = reader.ShapeAt(2)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 9, Y: 9}, shape)

	_, err = reader.ShapeAt(3)
	assert.Error(t, err)
}
