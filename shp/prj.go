package shp

import (
	"fmt"
	"regexp"
	"strconv"
)

// The projection sidecar is well known text, the decoder only consumes
// the trailing authority clause naming the EPSG code.
var authorityPattern = regexp.MustCompile(`AUTHORITY\s*\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]\s*\]?\s*$`)

// EPSG extracts the EPSG code from the trailing AUTHORITY clause of a
// .prj sidecar. The second return value reports whether one was found.
func EPSG(wkt string) (int, bool) {
	match := authorityPattern.FindStringSubmatch(wkt)
	if match == nil {
		return 0, false
	}
	code, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	return code, true
}

// Transformer builds a coordinate mapping between two coordinate
// reference systems named by EPSG code. Implementations are pluggable,
// the package performs no datum mathematics itself.
type Transformer func(sourceEPSG, targetEPSG int) (func(Point) Point, error)

// TransformShape applies the transformer's coordinate mapping point wise
// to the shape.
func TransformShape(shape Shape, transformer Transformer, sourceEPSG, targetEPSG int) (Shape, error) {
	if transformer == nil {
		return nil, fmt.Errorf("no transformer registered")
	}
	mapping, err := transformer(sourceEPSG, targetEPSG)
	if err != nil {
		return nil, err
	}
	return shape.Transform(mapping), nil
}
