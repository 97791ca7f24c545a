package shp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wgs84 = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433],AUTHORITY["EPSG","4326"]]`

func TestEPSG(t *testing.T) {
	code, ok := EPSG(wgs84)
	require.True(t, ok)
	assert.Equal(t, 4326, code)

	code, ok = EPSG(`PROJCS["anything",AUTHORITY["EPSG",3857]]`)
	require.True(t, ok)
	assert.Equal(t, 3857, code)

	_, ok = EPSG(`GEOGCS["no authority here"]`)
	assert.False(t, ok)
}

func TestTransformShape(t *testing.T) {
	shape, err := ParseShape(pointRecord(1, 2))
	require.NoError(t, err)

	transformer := Transformer(func(source, target int) (func(Point) Point, error) {
		assert.Equal(t, 4326, source)
		assert.Equal(t, 3857, target)
		return func(p Point) Point {
			return Point{X: p.X * 2, Y: p.Y * 2}
		}, nil
	})
	out, err := TransformShape(shape, transformer, 4326, 3857)
	require.NoError(t, err)
	assert.Equal(t, Point{X: 2, Y: 4}, out)

	_, err = TransformShape(shape, nil, 4326, 3857)
	assert.Error(t, err)
}
