package world

import (
	"log"
	"math"
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/noise"
)

func TestSegmentBuilderFlatQuadNormalPointsUp(t *testing.T) {
	seg, err := NewSegmentBuilder().
		AddVertex(mgl64.Vec3{0, 0, 5}).
		AddVertex(mgl64.Vec3{2, 0, 5}).
		AddVertex(mgl64.Vec3{2, 2, 5}).
		AddVertex(mgl64.Vec3{0, 2, 5}).
		SetColor(mgl64.Vec4{1, 0, 0, 1}).
		SetMask(MaskGround).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	up := mgl64.Vec3{0, 0, 1}
	for i, n := range seg.Normals {
		if n != up {
			t.Errorf("normal %d = %v, want %v", i, n, up)
		}
	}
	if seg.Indices != [6]uint32{0, 1, 2, 0, 2, 3} {
		t.Errorf("indices = %v", seg.Indices)
	}
	if seg.Mask != MaskGround {
		t.Errorf("mask = %d, want %d", seg.Mask, MaskGround)
	}
}

func TestSegmentBuilderTiltedQuadNormal(t *testing.T) {
	// Heights rise along X; the normal should tilt back against X.
	seg, err := NewSegmentBuilder().
		AddVertex(mgl64.Vec3{0, 0, 0}).
		AddVertex(mgl64.Vec3{1, 0, 1}).
		AddVertex(mgl64.Vec3{1, 1, 1}).
		AddVertex(mgl64.Vec3{0, 1, 0}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	n := seg.Normals[0]
	if n.Z() <= 0 || n.X() >= 0 {
		t.Errorf("tilted normal = %v, want -X +Z direction", n)
	}
	if math.Abs(n.Len()-1) > 1e-12 {
		t.Errorf("normal not unit length: %v", n.Len())
	}
}

func TestSegmentBuilderRejectsWrongVertexCount(t *testing.T) {
	_, err := NewSegmentBuilder().
		AddVertex(mgl64.Vec3{0, 0, 0}).
		AddVertex(mgl64.Vec3{1, 0, 0}).
		AddVertex(mgl64.Vec3{1, 1, 0}).
		Build()
	if err == nil {
		t.Error("Build accepted 3 vertices")
	}

	b := NewSegmentBuilder()
	for i := 0; i < 5; i++ {
		b.AddVertex(mgl64.Vec3{float64(i), 0, 0})
	}
	if _, err := b.Build(); err == nil {
		t.Error("Build accepted 5 vertices")
	}
}

func TestSegmentBuilderRejectsDegenerateQuad(t *testing.T) {
	p := mgl64.Vec3{1, 1, 1}
	_, err := NewSegmentBuilder().
		AddVertex(p).AddVertex(p).AddVertex(p).AddVertex(p).
		Build()
	if err == nil {
		t.Error("Build accepted a zero-area quad")
	}
}

func newTestBuilder(seed int64) (*MeshBuilder, *HeightSampler) {
	cfg := testTerrain(seed)
	sampler := NewHeightSampler(noise.NewField(seed), cfg)
	colors := NewColorClassifier(sampler, cfg)
	logger := log.New(os.Stderr, "test ", 0)
	return NewMeshBuilder(sampler, colors, cfg, logger), sampler
}

func TestBuildChunkSegmentGrid(t *testing.T) {
	b, _ := newTestBuilder(4242)

	// chunk_size 16 / detail_mesh_size 2 = 8x8 cells per chunk. Individual
	// chunks may be partly or fully submerged; across a spread of chunks
	// the terrain must surface somewhere.
	total := 0
	for _, coord := range []ChunkCoord{{0, 0}, {1, 0}, {0, 1}, {5, 5}, {-3, 2}} {
		chunk := b.Build(coord)
		if len(chunk.Segments) > 64 {
			t.Fatalf("chunk %v has %d segments, grid only allows 64", coord, len(chunk.Segments))
		}
		total += len(chunk.Segments)

		minX := float64(coord.X) * 16
		minY := float64(coord.Y) * 16
		for _, seg := range chunk.Segments {
			for _, p := range seg.Positions {
				if p.X() < minX || p.X() > minX+16 || p.Y() < minY || p.Y() > minY+16 {
					t.Fatalf("chunk %v: vertex %v outside chunk bounds", coord, p)
				}
			}
			if seg.Mask != MaskGround {
				t.Errorf("segment mask = %d, want ground", seg.Mask)
			}
			if seg.Color.W() != 1 {
				t.Errorf("segment alpha = %v, want 1", seg.Color.W())
			}
		}
	}
	if total == 0 {
		t.Fatal("no segments built across any sampled chunk")
	}
}

func TestBuildChunkDeterministic(t *testing.T) {
	b1, _ := newTestBuilder(777)
	b2, _ := newTestBuilder(777)

	c1 := b1.Build(ChunkCoord{X: -3, Y: 2})
	c2 := b2.Build(ChunkCoord{X: -3, Y: 2})

	if len(c1.Segments) != len(c2.Segments) {
		t.Fatalf("segment counts differ: %d != %d", len(c1.Segments), len(c2.Segments))
	}
	for i := range c1.Segments {
		if c1.Segments[i] != c2.Segments[i] {
			t.Fatalf("segment %d differs between identical builds", i)
		}
	}
}

func TestBuildChunkSkipsSubmergedCells(t *testing.T) {
	cfg := testTerrain(9)
	cfg.HeightScale = 0 // every height is exactly 0
	cfg.WaterLevel = 5  // submerged cutoff 4, far above all heights
	sampler := NewHeightSampler(noise.NewField(9), cfg)
	colors := NewColorClassifier(sampler, cfg)
	b := NewMeshBuilder(sampler, colors, cfg, nil)

	chunk := b.Build(ChunkCoord{X: 0, Y: 0})
	if len(chunk.Segments) != 0 {
		t.Errorf("submerged chunk meshed %d segments, want 0", len(chunk.Segments))
	}
}

func TestBuildChunkFlatWorldMeshesFullGrid(t *testing.T) {
	cfg := testTerrain(9)
	cfg.HeightScale = 0 // heights all 0, above the default cutoff of -3
	sampler := NewHeightSampler(noise.NewField(9), cfg)
	colors := NewColorClassifier(sampler, cfg)
	b := NewMeshBuilder(sampler, colors, cfg, nil)

	chunk := b.Build(ChunkCoord{X: 2, Y: -1})
	if len(chunk.Segments) != 64 {
		t.Errorf("flat chunk has %d segments, want full 8x8 grid", len(chunk.Segments))
	}
}

func BenchmarkBuildChunk(b *testing.B) {
	builder, sampler := newTestBuilder(1337)
	for i := 0; i < b.N; i++ {
		builder.Build(ChunkCoord{X: i, Y: -i})
		if i%64 == 0 {
			sampler.Reset()
		}
	}
}
