package shp

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Shape is the decoded geometry of one record. Implementations are value
// types, Transform returns a new shape and never mutates the receiver.
type Shape interface {
	ShapeType() ShapeType
	// BBox returns the bounding box. Point shapes degenerate to a zero
	// area box.
	BBox() Box
	// Points returns the flat coordinate array. Part boundaries are
	// carried by the concrete type.
	Points() []Point
	// Transform applies the coordinate mapping point wise.
	Transform(fn func(Point) Point) Shape
	// Validate reports NaN or infinite coordinates and duplicate
	// consecutive vertices.
	Validate() error
}

// Null is the placeholder geometry of a record without a shape.
type Null struct{}

func (Null) ShapeType() ShapeType              { return NullType }
func (Null) BBox() Box                         { return Box{} }
func (Null) Points() []Point                   { return nil }
func (n Null) Transform(func(Point) Point) Shape { return n }
func (Null) Validate() error                   { return nil }

func (p Point) ShapeType() ShapeType { return PointType }
func (p Point) BBox() Box            { return Box{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y} }
func (p Point) Points() []Point      { return []Point{p} }
func (p Point) Transform(fn func(Point) Point) Shape {
	return fn(p)
}
func (p Point) Validate() error { return validatePoints([]Point{p}, false) }

// PointM is a point with an optional measure. A NaN measure in the file is
// normalized to an absent one.
type PointM struct {
	Point
	M    float64
	HasM bool
}

func (p PointM) ShapeType() ShapeType { return PointMType }
func (p PointM) Transform(fn func(Point) Point) Shape {
	p.Point = fn(p.Point)
	return p
}

// PointZ is a point with elevation and an optional measure.
type PointZ struct {
	Point
	Z    float64
	M    float64
	HasM bool
}

func (p PointZ) ShapeType() ShapeType { return PointZType }
func (p PointZ) Transform(fn func(Point) Point) Shape {
	p.Point = fn(p.Point)
	return p
}

// MultiPoint is an unordered coordinate set with optional Z and M bands.
type MultiPoint struct {
	kind   ShapeType
	Box    Box
	Coords []Point
	ZRange [2]float64
	Z      []float64
	MRange [2]float64
	M      []float64
}

func (s MultiPoint) ShapeType() ShapeType { return s.kind }
func (s MultiPoint) BBox() Box            { return s.Box }
func (s MultiPoint) Points() []Point      { return s.Coords }
func (s MultiPoint) Transform(fn func(Point) Point) Shape {
	s.Coords = transformPoints(s.Coords, fn)
	s.Box = BoxFromPoints(s.Coords)
	return s
}
func (s MultiPoint) Validate() error { return validatePoints(s.Coords, false) }

// PolyLine is an ordered coordinate set partitioned into parts by start
// indices, with optional Z and M bands.
type PolyLine struct {
	kind   ShapeType
	Box    Box
	Parts  []int32
	Coords []Point
	ZRange [2]float64
	Z      []float64
	MRange [2]float64
	M      []float64
}

func (s PolyLine) ShapeType() ShapeType { return s.kind }
func (s PolyLine) BBox() Box            { return s.Box }
func (s PolyLine) Points() []Point      { return s.Coords }
func (s PolyLine) Transform(fn func(Point) Point) Shape {
	s.Coords = transformPoints(s.Coords, fn)
	s.Box = BoxFromPoints(s.Coords)
	return s
}
func (s PolyLine) Validate() error { return validatePoints(s.Coords, true) }

// Part returns the coordinate slice of part i.
func (s PolyLine) Part(i int) []Point {
	return partSlice(s.Parts, s.Coords, i)
}

// Polygon shares the PolyLine layout, parts are closed rings.
type Polygon struct {
	PolyLine
}

func (s Polygon) Transform(fn func(Point) Point) Shape {
	s.PolyLine = s.PolyLine.Transform(fn).(PolyLine)
	return s
}

// MultiPatch is a surface assembled from triangle strips, fans and rings.
// PartTypes carries the patch type code of each part.
type MultiPatch struct {
	Box       Box
	Parts     []int32
	PartTypes []int32
	Coords    []Point
	ZRange    [2]float64
	Z         []float64
	MRange    [2]float64
	M         []float64
}

func (s MultiPatch) ShapeType() ShapeType { return MultiPatchType }
func (s MultiPatch) BBox() Box            { return s.Box }
func (s MultiPatch) Points() []Point      { return s.Coords }
func (s MultiPatch) Transform(fn func(Point) Point) Shape {
	s.Coords = transformPoints(s.Coords, fn)
	s.Box = BoxFromPoints(s.Coords)
	return s
}
func (s MultiPatch) Validate() error { return validatePoints(s.Coords, false) }

/**
 *	################################################################
 *	#					shape decoding
 *	################################################################
 */

// ParseShape decodes one type tagged geometry blob, the content of a
// record without its 8 byte record header.
func ParseShape(raw []byte) (Shape, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("shape type missing: %w", ErrTruncated)
	}
	kind := ShapeType(int32(binary.LittleEndian.Uint32(raw)))
	body := raw[4:]
	switch kind {
	case NullType:
		return Null{}, nil
	case PointType:
		return parsePoint(body)
	case PointMType:
		return parsePointM(body)
	case PointZType:
		return parsePointZ(body)
	case MultiPointType, MultiPointZ, MultiPointM:
		return parseMultiPoint(body, kind)
	case PolyLineType, PolyLineZType, PolyLineMType,
		PolygonType, PolygonZType, PolygonMType:
		return parsePoly(body, kind)
	case MultiPatchType:
		return parseMultiPatch(body)
	}
	return nil, InvalidShapeError{Reason: fmt.Sprintf("unknown shape type %d", kind)}
}

func parsePoint(raw []byte) (Shape, error) {
	if len(raw) < 16 {
		return nil, InvalidShapeError{Reason: "point needs 16 bytes"}
	}
	return Point{X: readFloat(raw[0:8]), Y: readFloat(raw[8:16])}, nil
}

func parsePointM(raw []byte) (Shape, error) {
	if len(raw) < 24 {
		return nil, InvalidShapeError{Reason: "measured point needs 24 bytes"}
	}
	p := PointM{Point: Point{X: readFloat(raw[0:8]), Y: readFloat(raw[8:16])}}
	if m := readFloat(raw[16:24]); !math.IsNaN(m) {
		p.M = m
		p.HasM = true
	}
	return p, nil
}

func parsePointZ(raw []byte) (Shape, error) {
	if len(raw) < 32 {
		return nil, InvalidShapeError{Reason: "point with elevation needs 32 bytes"}
	}
	p := PointZ{
		Point: Point{X: readFloat(raw[0:8]), Y: readFloat(raw[8:16])},
		Z:     readFloat(raw[16:24]),
	}
	if m := readFloat(raw[24:32]); !math.IsNaN(m) {
		p.M = m
		p.HasM = true
	}
	return p, nil
}

func parseMultiPoint(raw []byte, kind ShapeType) (Shape, error) {
	cursor := &shapeCursor{raw: raw}
	shape := MultiPoint{kind: kind}
	shape.Box = cursor.box()
	count := cursor.count("point count")
	shape.Coords = cursor.points(count)
	if kind.hasZ() {
		shape.ZRange, shape.Z = cursor.band(count)
	}
	if kind.hasM() && cursor.remaining() >= (count+2)*8 {
		shape.MRange, shape.M = cursor.band(count)
	}
	if cursor.err != nil {
		return nil, cursor.err
	}
	return shape, nil
}

func parsePoly(raw []byte, kind ShapeType) (Shape, error) {
	cursor := &shapeCursor{raw: raw}
	shape := PolyLine{kind: kind}
	shape.Box = cursor.box()
	parts := cursor.count("part count")
	count := cursor.count("point count")
	shape.Parts = cursor.ints(parts)
	shape.Coords = cursor.points(count)
	if kind.hasZ() {
		shape.ZRange, shape.Z = cursor.band(count)
	}
	if kind.hasM() && cursor.remaining() >= (count+2)*8 {
		shape.MRange, shape.M = cursor.band(count)
	}
	if cursor.err != nil {
		return nil, cursor.err
	}
	if err := validateParts(shape.Parts, count); err != nil {
		return nil, err
	}
	switch kind {
	case PolygonType, PolygonZType, PolygonMType:
		return Polygon{PolyLine: shape}, nil
	}
	return shape, nil
}

func parseMultiPatch(raw []byte) (Shape, error) {
	cursor := &shapeCursor{raw: raw}
	shape := MultiPatch{}
	shape.Box = cursor.box()
	parts := cursor.count("part count")
	count := cursor.count("point count")
	shape.Parts = cursor.ints(parts)
	shape.PartTypes = cursor.ints(parts)
	shape.Coords = cursor.points(count)
	shape.ZRange, shape.Z = cursor.band(count)
	if cursor.remaining() >= (count+2)*8 {
		shape.MRange, shape.M = cursor.band(count)
	}
	if cursor.err != nil {
		return nil, cursor.err
	}
	if err := validateParts(shape.Parts, count); err != nil {
		return nil, err
	}
	return shape, nil
}

// shapeCursor walks a geometry blob, the first failed read poisons all
// following ones.
type shapeCursor struct {
	raw    []byte
	offset int
	err    error
}

func (c *shapeCursor) remaining() int {
	return len(c.raw) - c.offset
}

func (c *shapeCursor) take(n int, what string) []byte {
	if c.err != nil {
		return nil
	}
	if c.remaining() < n {
		c.err = InvalidShapeError{Reason: fmt.Sprintf("%s exceeds record content", what)}
		return nil
	}
	out := c.raw[c.offset : c.offset+n]
	c.offset += n
	return out
}

func (c *shapeCursor) box() Box {
	raw := c.take(32, "bounding box")
	if raw == nil {
		return Box{}
	}
	return Box{
		MinX: readFloat(raw[0:8]),
		MinY: readFloat(raw[8:16]),
		MaxX: readFloat(raw[16:24]),
		MaxY: readFloat(raw[24:32]),
	}
}

func (c *shapeCursor) count(what string) int {
	raw := c.take(4, what)
	if raw == nil {
		return 0
	}
	count := int(int32(binary.LittleEndian.Uint32(raw)))
	if count < 0 {
		c.err = InvalidShapeError{Reason: fmt.Sprintf("negative %s", what)}
		return 0
	}
	return count
}

func (c *shapeCursor) ints(n int) []int32 {
	raw := c.take(n*4, "index array")
	if raw == nil {
		return nil
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out
}

func (c *shapeCursor) points(n int) []Point {
	raw := c.take(n*16, "coordinate array")
	if raw == nil {
		return nil
	}
	out := make([]Point, n)
	for i := range out {
		out[i] = Point{
			X: readFloat(raw[i*16:]),
			Y: readFloat(raw[i*16+8:]),
		}
	}
	return out
}

// band reads a measure band: its range followed by one value per point.
func (c *shapeCursor) band(n int) ([2]float64, []float64) {
	raw := c.take((n+2)*8, "measure band")
	if raw == nil {
		return [2]float64{}, nil
	}
	bandRange := [2]float64{readFloat(raw[0:8]), readFloat(raw[8:16])}
	values := make([]float64, n)
	for i := range values {
		values[i] = readFloat(raw[16+i*8:])
	}
	return bandRange, values
}

func validateParts(parts []int32, points int) error {
	previous := int32(0)
	for i, part := range parts {
		if part < previous || int(part) > points {
			return InvalidShapeError{Reason: fmt.Sprintf("part index %d at %d out of order", part, i)}
		}
		previous = part
	}
	return nil
}

func validatePoints(points []Point, ordered bool) error {
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return InvalidShapeError{Reason: fmt.Sprintf("non finite coordinate at %d", i)}
		}
		if ordered && i > 0 && points[i-1] == p {
			return InvalidShapeError{Reason: fmt.Sprintf("duplicate consecutive point at %d", i)}
		}
	}
	return nil
}

func transformPoints(points []Point, fn func(Point) Point) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = fn(p)
	}
	return out
}

func partSlice(parts []int32, points []Point, i int) []Point {
	if i < 0 || i >= len(parts) {
		return nil
	}
	start := int(parts[i])
	end := len(points)
	if i+1 < len(parts) {
		end = int(parts[i+1])
	}
	return points[start:end]
}
