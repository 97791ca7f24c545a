package shp

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putFloat(raw []byte, v float64) {
	binary.LittleEndian.PutUint64(raw, math.Float64bits(v))
}

func appendFloat(raw []byte, v float64) []byte {
	buf := make([]byte, 8)
	putFloat(buf, v)
	return append(raw, buf...)
}

func appendInt32(raw []byte, v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return append(raw, buf...)
}

func pointRecord(x, y float64) []byte {
	raw := appendInt32(nil, int32(PointType))
	raw = appendFloat(raw, x)
	raw = appendFloat(raw, y)
	return raw
}

func polyLineRecord(kind ShapeType, parts []int32, points []Point) []byte {
	raw := appendInt32(nil, int32(kind))
	box := BoxFromPoints(points)
	raw = appendFloat(raw, box.MinX)
	raw = appendFloat(raw, box.MinY)
	raw = appendFloat(raw, box.MaxX)
	raw = appendFloat(raw, box.MaxY)
	raw = appendInt32(raw, int32(len(parts)))
	raw = appendInt32(raw, int32(len(points)))
	for _, part := range parts {
		raw = appendInt32(raw, part)
	}
	for _, p := range points {
		raw = appendFloat(raw, p.X)
		raw = appendFloat(raw, p.Y)
	}
	return raw
}

func TestParsePoint(t *testing.T) {
	shape, err := ParseShape(pointRecord(1.5, 2.5))
	require.NoError(t, err)
	point, ok := shape.(Point)
	require.True(t, ok)
	assert.Equal(t, 1.5, point.X)
	assert.Equal(t, 2.5, point.Y)
	assert.Equal(t, PointType, shape.ShapeType())
	assert.Equal(t, Box{MinX: 1.5, MinY: 2.5, MaxX: 1.5, MaxY: 2.5}, shape.BBox())
}

func TestParseNull(t *testing.T) {
	shape, err := ParseShape(appendInt32(nil, int32(NullType)))
	require.NoError(t, err)
	assert.Equal(t, NullType, shape.ShapeType())
	assert.Empty(t, shape.Points())
}

func TestParsePointMeasureNormalization(t *testing.T) {
	raw := appendInt32(nil, int32(PointMType))
	raw = appendFloat(raw, 1)
	raw = appendFloat(raw, 2)
	raw = appendFloat(raw, math.NaN())
	shape, err := ParseShape(raw)
	require.NoError(t, err)
	point := shape.(PointM)
	assert.False(t, point.HasM, "NaN measure must be normalized to absent")

	raw = appendInt32(nil, int32(PointMType))
	raw = appendFloat(raw, 1)
	raw = appendFloat(raw, 2)
	raw = appendFloat(raw, 7.5)
	shape, err = ParseShape(raw)
	require.NoError(t, err)
	point = shape.(PointM)
	assert.True(t, point.HasM)
	assert.Equal(t, 7.5, point.M)
}

func TestParsePolyLine(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}, {2, 0}, {5, 5}, {6, 6}}
	raw := polyLineRecord(PolyLineType, []int32{0, 3}, points)
	shape, err := ParseShape(raw)
	require.NoError(t, err)
	line, ok := shape.(PolyLine)
	require.True(t, ok)
	assert.Equal(t, points, line.Points())
	assert.Equal(t, []int32{0, 3}, line.Parts)
	assert.Equal(t, []Point{{0, 0}, {1, 1}, {2, 0}}, line.Part(0))
	assert.Equal(t, []Point{{5, 5}, {6, 6}}, line.Part(1))
	// The decoded bounding box equals the one embedded in the record.
	assert.Equal(t, BoxFromPoints(points), shape.BBox())
}

func TestParsePolygon(t *testing.T) {
	points := []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}}
	shape, err := ParseShape(polyLineRecord(PolygonType, []int32{0}, points))
	require.NoError(t, err)
	_, ok := shape.(Polygon)
	require.True(t, ok)
	assert.Equal(t, PolygonType, shape.ShapeType())
}

func TestParsePolyLineZBands(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}}
	raw := polyLineRecord(PolyLineZType, []int32{0}, points)
	// Z band: range + one value per point.
	raw = appendFloat(raw, 10)
	raw = appendFloat(raw, 20)
	raw = appendFloat(raw, 10)
	raw = appendFloat(raw, 20)
	// M band.
	raw = appendFloat(raw, 1)
	raw = appendFloat(raw, 2)
	raw = appendFloat(raw, 1)
	raw = appendFloat(raw, 2)
	shape, err := ParseShape(raw)
	require.NoError(t, err)
	line := shape.(PolyLine)
	assert.Equal(t, [2]float64{10, 20}, line.ZRange)
	assert.Equal(t, []float64{10, 20}, line.Z)
	assert.Equal(t, []float64{1, 2}, line.M)

	// The M band is optional.
	raw = polyLineRecord(PolyLineZType, []int32{0}, points)
	raw = appendFloat(raw, 10)
	raw = appendFloat(raw, 20)
	raw = appendFloat(raw, 10)
	raw = appendFloat(raw, 20)
	shape, err = ParseShape(raw)
	require.NoError(t, err)
	line = shape.(PolyLine)
	assert.Equal(t, []float64{10, 20}, line.Z)
	assert.Nil(t, line.M)
}

func TestParseMultiPoint(t *testing.T) {
	points := []Point{{1, 2}, {3, 4}}
	raw := appendInt32(nil, int32(MultiPointType))
	box := BoxFromPoints(points)
	raw = appendFloat(raw, box.MinX)
	raw = appendFloat(raw, box.MinY)
	raw = appendFloat(raw, box.MaxX)
	raw = appendFloat(raw, box.MaxY)
	raw = appendInt32(raw, 2)
	for _, p := range points {
		raw = appendFloat(raw, p.X)
		raw = appendFloat(raw, p.Y)
	}
	shape, err := ParseShape(raw)
	require.NoError(t, err)
	multi := shape.(MultiPoint)
	assert.Equal(t, points, multi.Points())
}

func TestParseMultiPatch(t *testing.T) {
	points := []Point{{0, 0}, {1, 0}, {0, 1}}
	raw := appendInt32(nil, int32(MultiPatchType))
	box := BoxFromPoints(points)
	raw = appendFloat(raw, box.MinX)
	raw = appendFloat(raw, box.MinY)
	raw = appendFloat(raw, box.MaxX)
	raw = appendFloat(raw, box.MaxY)
	raw = appendInt32(raw, 1) // parts
	raw = appendInt32(raw, 3) // points
	raw = appendInt32(raw, 0) // part start
	raw = appendInt32(raw, 0) // patch type: triangle strip
	for _, p := range points {
		raw = appendFloat(raw, p.X)
		raw = appendFloat(raw, p.Y)
	}
	raw = appendFloat(raw, 0)
	raw = appendFloat(raw, 0)
	for range points {
		raw = appendFloat(raw, 0)
	}
	shape, err := ParseShape(raw)
	require.NoError(t, err)
	patch := shape.(MultiPatch)
	assert.Equal(t, []int32{0}, patch.PartTypes)
	assert.Equal(t, points, patch.Points())
}

func TestParseShapeErrors(t *testing.T) {
	_, err := ParseShape([]byte{1, 0})
	assert.Error(t, err)

	_, err = ParseShape(appendInt32(nil, 99))
	assert.Error(t, err)

	// Out of order part indices.
	points := []Point{{0, 0}, {1, 1}, {2, 2}}
	raw := polyLineRecord(PolyLineType, []int32{2, 1}, points)
	_, err = ParseShape(raw)
	require.Error(t, err)
	var invalid InvalidShapeError
	assert.ErrorAs(t, err, &invalid)

	// Part index beyond the point count.
	raw = polyLineRecord(PolyLineType, []int32{0, 7}, points)
	_, err = ParseShape(raw)
	assert.Error(t, err)

	// Truncated coordinate array.
	raw = polyLineRecord(PolyLineType, []int32{0}, points)
	_, err = ParseShape(raw[:len(raw)-8])
	assert.Error(t, err)
}

func TestTransform(t *testing.T) {
	points := []Point{{0, 0}, {1, 1}, {2, 0}}
	shape, err := ParseShape(polyLineRecord(PolyLineType, []int32{0}, points))
	require.NoError(t, err)
	shifted := shape.Transform(func(p Point) Point {
		return Point{X: p.X + 10, Y: p.Y + 20}
	})
	assert.Equal(t, []Point{{10, 20}, {11, 21}, {12, 20}}, shifted.Points())
	assert.Equal(t, Box{MinX: 10, MinY: 20, MaxX: 12, MaxY: 21}, shifted.BBox())
	// The original shape is untouched.
	assert.Equal(t, points, shape.Points())
}

func TestValidate(t *testing.T) {
	good, err := ParseShape(polyLineRecord(PolyLineType, []int32{0}, []Point{{0, 0}, {1, 1}}))
	require.NoError(t, err)
	assert.NoError(t, good.Validate())

	duplicated, err := ParseShape(polyLineRecord(PolyLineType, []int32{0}, []Point{{0, 0}, {0, 0}, {1, 1}}))
	require.NoError(t, err)
	assert.Error(t, duplicated.Validate())

	infinite, err := ParseShape(pointRecord(math.Inf(1), 0))
	require.NoError(t, err)
	assert.Error(t, infinite.Validate())
}
