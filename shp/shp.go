// Package shp decodes ESRI shapefile geometry: the .shp main file, the
// .shx offset index and the EPSG authority of a .prj sidecar. Attribute
// data lives in the sibling table handled by the dbf package.
package shp

import (
	"errors"
	"fmt"
	"math"
)

var (
	// Returned when the expected bytes are unavailable at a position
	ErrTruncated = errors.New("TRUNCATED")
)

// Returned when a geometry record is structurally inconsistent.
type InvalidShapeError struct {
	Reason string
}

func (e InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid shape: %s", e.Reason)
}

// ShapeType is the geometry type code of a record.
type ShapeType int32

const (
	NullType       ShapeType = 0
	PointType      ShapeType = 1
	PolyLineType   ShapeType = 3
	PolygonType    ShapeType = 5
	MultiPointType ShapeType = 8
	PointZType     ShapeType = 11
	PolyLineZType  ShapeType = 13
	PolygonZType   ShapeType = 15
	MultiPointZ    ShapeType = 18
	PointMType     ShapeType = 21
	PolyLineMType  ShapeType = 23
	PolygonMType   ShapeType = 25
	MultiPointM    ShapeType = 28
	MultiPatchType ShapeType = 31
)

func (t ShapeType) String() string {
	switch t {
	case NullType:
		return "Null"
	case PointType:
		return "Point"
	case PolyLineType:
		return "PolyLine"
	case PolygonType:
		return "Polygon"
	case MultiPointType:
		return "MultiPoint"
	case PointZType:
		return "PointZ"
	case PolyLineZType:
		return "PolyLineZ"
	case PolygonZType:
		return "PolygonZ"
	case MultiPointZ:
		return "MultiPointZ"
	case PointMType:
		return "PointM"
	case PolyLineMType:
		return "PolyLineM"
	case PolygonMType:
		return "PolygonM"
	case MultiPointM:
		return "MultiPointM"
	case MultiPatchType:
		return "MultiPatch"
	}
	return fmt.Sprintf("Unknown(%d)", int32(t))
}

// hasZ reports whether records of this type carry a Z band.
func (t ShapeType) hasZ() bool {
	switch t {
	case PointZType, PolyLineZType, PolygonZType, MultiPointZ, MultiPatchType:
		return true
	}
	return false
}

// hasM reports whether records of this type may carry an M band.
func (t ShapeType) hasM() bool {
	switch t {
	case PointMType, PolyLineMType, PolygonMType, MultiPointM:
		return true
	}
	return t.hasZ()
}

// Point is one 2D coordinate.
type Point struct {
	X float64
	Y float64
}

// Box is a 2D bounding box.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Extend grows the box to include the other box.
func (b Box) Extend(other Box) Box {
	return Box{
		MinX: math.Min(b.MinX, other.MinX),
		MinY: math.Min(b.MinY, other.MinY),
		MaxX: math.Max(b.MaxX, other.MaxX),
		MaxY: math.Max(b.MaxY, other.MaxY),
	}
}

// Intersects reports whether the two boxes overlap.
func (b Box) Intersects(other Box) bool {
	return b.MinX <= other.MaxX && b.MaxX >= other.MinX &&
		b.MinY <= other.MaxY && b.MaxY >= other.MinY
}

// BoxFromPoints computes the bounding box of a coordinate set.
func BoxFromPoints(points []Point) Box {
	box := Box{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, p := range points {
		box.MinX = math.Min(box.MinX, p.X)
		box.MinY = math.Min(box.MinY, p.Y)
		box.MaxX = math.Max(box.MaxX, p.X)
		box.MaxY = math.Max(box.MaxY, p.Y)
	}
	return box
}
