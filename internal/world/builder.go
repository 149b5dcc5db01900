package world

import (
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/config"
	"terrastream/internal/profiling"
)

// MeshBuilder turns a chunk coordinate into a finished Chunk: a grid of quad
// segments whose corner heights come from the shared sampler.
type MeshBuilder struct {
	sampler *HeightSampler
	colors  *ColorClassifier
	log     *log.Logger

	chunkSize  float64
	meshSize   float64
	waterLevel float64
}

// NewMeshBuilder wires the builder to its collaborators. The logger receives
// per-segment construction failures; those are skipped, never fatal.
func NewMeshBuilder(sampler *HeightSampler, colors *ColorClassifier, cfg config.Terrain, logger *log.Logger) *MeshBuilder {
	return &MeshBuilder{
		sampler:    sampler,
		colors:     colors,
		log:        logger,
		chunkSize:  cfg.ChunkSize,
		meshSize:   cfg.DetailMeshSize,
		waterLevel: cfg.WaterLevel,
	}
}

// Build meshes the chunk at coord. Each grid cell samples its four corners
// independently through the cache-backed sampler; cells whose corners all sit
// below the submerged cutoff are not meshed at all. A cell that fails to
// build is skipped, leaving a hole rather than aborting the chunk.
func (b *MeshBuilder) Build(coord ChunkCoord) *Chunk {
	defer profiling.Track("world.BuildChunk")()

	baseX := float64(coord.X) * b.chunkSize
	baseY := float64(coord.Y) * b.chunkSize
	cells := int(b.chunkSize / b.meshSize)
	cutoff := b.waterLevel - 1.0

	chunk := &Chunk{
		Coord:    coord,
		Segments: make([]MeshSegment, 0, cells*cells),
	}

	for i := 0; i < cells; i++ {
		for j := 0; j < cells; j++ {
			x := baseX + float64(i)*b.meshSize
			y := baseY + float64(j)*b.meshSize

			hBL := b.sampler.Height(x, y)
			hBR := b.sampler.Height(x+b.meshSize, y)
			hTR := b.sampler.Height(x+b.meshSize, y+b.meshSize)
			hTL := b.sampler.Height(x, y+b.meshSize)

			// Fully submerged cells are invisible under the water
			// plane; don't mesh them.
			if hBL < cutoff && hBR < cutoff && hTR < cutoff && hTL < cutoff {
				continue
			}

			centerX := x + b.meshSize/2
			centerY := y + b.meshSize/2
			avgHeight := (hBL + hBR + hTR + hTL) / 4.0
			color := b.colors.Classify(centerX, centerY, avgHeight)

			seg, err := NewSegmentBuilder().
				AddVertex(mgl64.Vec3{x, y, hBL}).
				AddVertex(mgl64.Vec3{x + b.meshSize, y, hBR}).
				AddVertex(mgl64.Vec3{x + b.meshSize, y + b.meshSize, hTR}).
				AddVertex(mgl64.Vec3{x, y + b.meshSize, hTL}).
				SetColor(color).
				SetMask(MaskGround).
				Build()
			if err != nil {
				if b.log != nil {
					b.log.Printf("chunk %v: segment (%d,%d): %v", coord, i, j, err)
				}
				continue
			}
			chunk.Segments = append(chunk.Segments, seg)
		}
	}

	return chunk
}
