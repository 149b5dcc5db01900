package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// MaskGround tags terrain geometry as walkable ground for the external
// collision collaborator. The core performs no collision math itself.
const MaskGround uint32 = 1

// MeshSegment is one terrain quad: four corner vertices in world space
// (bottom-left, bottom-right, top-right, top-left over the XY ground plane
// with height on Z), a flat normal repeated per vertex, one flat color, and
// two triangles. Segments are immutable once built; terrain is static.
type MeshSegment struct {
	Positions [4]mgl64.Vec3
	Normals   [4]mgl64.Vec3
	Color     mgl64.Vec4
	Indices   [6]uint32
	Mask      uint32
}

// SegmentBuilder accumulates vertex data and produces a finished immutable
// segment, keeping mesh assembly decoupled from any graphics API.
type SegmentBuilder struct {
	positions []mgl64.Vec3
	color     mgl64.Vec4
	mask      uint32
}

// NewSegmentBuilder returns an empty builder.
func NewSegmentBuilder() *SegmentBuilder {
	return &SegmentBuilder{positions: make([]mgl64.Vec3, 0, 4)}
}

// AddVertex appends a corner position. Corners must be added in
// BL, BR, TR, TL order.
func (b *SegmentBuilder) AddVertex(p mgl64.Vec3) *SegmentBuilder {
	b.positions = append(b.positions, p)
	return b
}

// SetColor sets the segment's flat color.
func (b *SegmentBuilder) SetColor(c mgl64.Vec4) *SegmentBuilder {
	b.color = c
	return b
}

// SetMask sets the collision classification.
func (b *SegmentBuilder) SetMask(mask uint32) *SegmentBuilder {
	b.mask = mask
	return b
}

// Build validates the accumulated data and produces the segment. The flat
// normal comes from the cross product of the two edges leaving the
// bottom-left corner.
func (b *SegmentBuilder) Build() (MeshSegment, error) {
	if len(b.positions) != 4 {
		return MeshSegment{}, fmt.Errorf("segment needs exactly 4 vertices, got %d", len(b.positions))
	}

	v1 := b.positions[1].Sub(b.positions[0])
	v2 := b.positions[3].Sub(b.positions[0])
	normal := v1.Cross(v2)
	if normal.Len() == 0 {
		return MeshSegment{}, fmt.Errorf("degenerate segment at %v", b.positions[0])
	}
	normal = normal.Normalize()

	seg := MeshSegment{
		Color:   b.color,
		Indices: [6]uint32{0, 1, 2, 0, 2, 3},
		Mask:    b.mask,
	}
	copy(seg.Positions[:], b.positions)
	for i := range seg.Normals {
		seg.Normals[i] = normal
	}
	return seg, nil
}
