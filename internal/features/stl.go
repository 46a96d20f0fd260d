// Package features derives the inputs predictors consume: STL geometry
// metrics parsed from raw binary uploads, and time-series features derived
// from a historical demand series.
package features

import (
	"encoding/binary"
	"fmt"
	"math"

	"eve.evalgo.org/internal/mlerrors"
)

const (
	stlHeaderSize    = 80
	stlTriangleBytes = 50
	minTriangles     = 1
	maxTriangles     = 10_000_000
	layerHeightMM    = 0.2
)

type vec3 struct {
	X, Y, Z float64
}

func (a vec3) sub(b vec3) vec3 {
	return vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func (a vec3) dot(b vec3) float64 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a vec3) length() float64 {
	return math.Sqrt(a.dot(a))
}

// Geometry is the set of metrics the print-time predictor consumes.
type Geometry struct {
	Volume             float64
	SurfaceArea        float64
	MinX, MinY, MinZ   float64
	MaxX, MaxY, MaxZ   float64
	Width, Depth, Height float64
	LayerCount         int
	SupportPercentage  float64
	ComplexityScore    float64
	TriangleCount      int
}

// ParseSTL decodes a binary STL file and derives its geometry metrics.
// Triangle counts outside [1, 10_000_000] are rejected as a validation
// error rather than a parse panic, since a hostile or corrupt count would
// otherwise drive an enormous allocation.
func ParseSTL(data []byte) (Geometry, error) {
	if len(data) < stlHeaderSize+4 {
		return Geometry{}, mlerrors.Validation("STL file too short to contain a header and triangle count")
	}

	triangleCount := int(binary.LittleEndian.Uint32(data[stlHeaderSize : stlHeaderSize+4]))
	if triangleCount < minTriangles || triangleCount > maxTriangles {
		return Geometry{}, mlerrors.Validation(fmt.Sprintf("triangle count %d outside allowed range [%d, %d]", triangleCount, minTriangles, maxTriangles))
	}

	expectedSize := stlHeaderSize + 4 + triangleCount*stlTriangleBytes
	if len(data) < expectedSize {
		return Geometry{}, mlerrors.Validation(fmt.Sprintf("STL body too short: need %d bytes for %d triangles, have %d", expectedSize, triangleCount, len(data)))
	}

	var volumeSum, areaSum float64
	var supportCount int
	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)

	offset := stlHeaderSize + 4
	for i := 0; i < triangleCount; i++ {
		tri := data[offset : offset+stlTriangleBytes]

		normal := readVec3(tri[0:12])
		v1 := readVec3(tri[12:24])
		v2 := readVec3(tri[24:36])
		v3 := readVec3(tri[36:48])

		volumeSum += v1.dot(v2.cross(v3))

		edge1 := v2.sub(v1)
		edge2 := v3.sub(v1)
		areaSum += 0.5 * edge1.cross(edge2).length()

		if normal.Z < -0.5 {
			supportCount++
		}

		for _, v := range [3]vec3{v1, v2, v3} {
			minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
			minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
			minZ, maxZ = math.Min(minZ, v.Z), math.Max(maxZ, v.Z)
		}

		offset += stlTriangleBytes
	}

	volume := math.Abs(volumeSum / 6.0)
	layerCount := int(math.Ceil((maxZ - minZ) / layerHeightMM))
	supportPct := float64(supportCount) / float64(triangleCount) * 100

	g := Geometry{
		Volume:            volume,
		SurfaceArea:       areaSum,
		MinX:              minX, MinY: minY, MinZ: minZ,
		MaxX: maxX, MaxY: maxY, MaxZ: maxZ,
		Width:             maxX - minX,
		Depth:             maxY - minY,
		Height:            maxZ - minZ,
		LayerCount:        layerCount,
		SupportPercentage: supportPct,
		TriangleCount:     triangleCount,
	}
	g.ComplexityScore = complexityScore(g.SurfaceArea, g.Volume, triangleCount)
	return g, nil
}

func readVec3(b []byte) vec3 {
	return vec3{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:4]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:8]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:12]))),
	}
}

// complexityScore combines surface-to-volume ratio and triangle density
// into a single 0-100 score, clamped at both ends and defined as 0 when
// volume is degenerate (a watertight-but-zero-volume or single-point mesh).
func complexityScore(surface, volume float64, triangleCount int) float64 {
	if volume <= 0 {
		return 0
	}
	surfaceTerm := 60 * math.Min(1, surface/math.Pow(volume, 2.0/3.0)/10)
	densityTerm := 40 * math.Min(1, float64(triangleCount)/volume/0.01)
	score := surfaceTerm + densityTerm
	return math.Max(0, math.Min(100, score))
}
