package features

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"eve.evalgo.org/internal/mlerrors"
)

// buildSTL assembles a minimal valid binary STL with the given triangles,
// each triangle a flat array of 9 float32 vertex components (v1,v2,v3) and
// a normal-Z used for the support-percentage check.
func buildSTL(t *testing.T, triangles [][3][3]float32, normalZ []float32) []byte {
	t.Helper()
	buf := make([]byte, stlHeaderSize)
	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(triangles)))
	buf = append(buf, countBuf...)

	for i, tri := range triangles {
		var normal [3]float32
		normal[2] = normalZ[i]
		buf = append(buf, float32sToBytes(normal[:])...)
		for _, v := range tri {
			buf = append(buf, float32sToBytes(v[:])...)
		}
		buf = append(buf, 0, 0) // attribute byte count
	}
	return buf
}

func float32sToBytes(vals []float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
		out = append(out, b...)
	}
	return out
}

func unitCubeTriangles() ([][3][3]float32, []float32) {
	// A single downward-facing triangle and one upward-facing triangle,
	// enough to exercise volume/area/bbox without modelling a full cube.
	triangles := [][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
	}
	normalZ := []float32{-1, 1}
	return triangles, normalZ
}

func TestParseSTLBasicGeometry(t *testing.T) {
	triangles, normalZ := unitCubeTriangles()
	data := buildSTL(t, triangles, normalZ)

	g, err := ParseSTL(data)
	require.NoError(t, err)
	require.Equal(t, 2, g.TriangleCount)
	require.InDelta(t, 1.0, g.Height, 1e-6)
	require.InDelta(t, 50.0, g.SupportPercentage, 1e-6, "exactly one of two triangles has normal-Z < -0.5")
}

func TestParseSTLRejectsZeroTriangles(t *testing.T) {
	data := make([]byte, stlHeaderSize+4)
	_, err := ParseSTL(data)
	require.Error(t, err)
	require.True(t, mlerrors.Is(err, mlerrors.KindValidation))
}

func TestParseSTLRejectsExcessiveTriangleCount(t *testing.T) {
	data := make([]byte, stlHeaderSize+4)
	binary.LittleEndian.PutUint32(data[stlHeaderSize:], uint32(10_000_001))
	_, err := ParseSTL(data)
	require.Error(t, err)
	require.True(t, mlerrors.Is(err, mlerrors.KindValidation))
}

func TestParseSTLRejectsTruncatedBody(t *testing.T) {
	triangles, normalZ := unitCubeTriangles()
	data := buildSTL(t, triangles, normalZ)
	truncated := data[:len(data)-10]

	_, err := ParseSTL(truncated)
	require.Error(t, err)
	require.True(t, mlerrors.Is(err, mlerrors.KindValidation))
}

func TestComplexityScoreZeroVolumeIsZero(t *testing.T) {
	require.Equal(t, 0.0, complexityScore(100, 0, 10))
}

func TestComplexityScoreClampedToUpperBound(t *testing.T) {
	score := complexityScore(1_000_000, 0.0001, 1_000_000)
	require.LessOrEqual(t, score, 100.0)
}
