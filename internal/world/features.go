package world

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/config"
)

// FeatureCandidate is a validated placement for one decorative feature.
// Instantiating actual decoration geometry is left to external collaborators.
type FeatureCandidate struct {
	Pos   mgl64.Vec3
	Slope float64
}

const (
	featureSampleDist = 0.5
	featureSlopeLimit = 0.7
)

// FeatureScatter produces deterministic per-chunk feature placements. Each
// chunk gets its own generator seeded from the chunk coordinate, so a chunk
// evicted and later rebuilt scatters identically regardless of load order.
type FeatureScatter struct {
	sampler    *HeightSampler
	seed       int64
	chunkSize  float64
	density    float64
	waterLevel float64
}

// NewFeatureScatter builds the scatterer from validated terrain settings.
func NewFeatureScatter(sampler *HeightSampler, cfg config.Terrain) *FeatureScatter {
	return &FeatureScatter{
		sampler:    sampler,
		seed:       cfg.Seed,
		chunkSize:  cfg.ChunkSize,
		density:    cfg.FeatureDensity,
		waterLevel: cfg.WaterLevel,
	}
}

// Scatter returns the candidate list for the chunk at coord. Candidates at or
// below water level or on ground steeper than the slope limit are rejected.
func (f *FeatureScatter) Scatter(coord ChunkCoord) []FeatureCandidate {
	rng := rand.New(rand.NewSource(f.seed + int64(coord.X)*1000 + int64(coord.Y)))

	baseX := float64(coord.X) * f.chunkSize
	baseY := float64(coord.Y) * f.chunkSize
	expected := int(f.chunkSize * f.chunkSize * f.density)

	var out []FeatureCandidate
	for i := 0; i < expected; i++ {
		x := baseX + rng.Float64()*f.chunkSize
		y := baseY + rng.Float64()*f.chunkSize

		height := f.sampler.Height(x, y)
		if height <= f.waterLevel {
			continue
		}

		slope := f.sampler.Slope(x, y, featureSampleDist)
		if slope > featureSlopeLimit {
			continue
		}

		out = append(out, FeatureCandidate{
			Pos:   mgl64.Vec3{x, y, height},
			Slope: slope,
		})
	}
	return out
}
