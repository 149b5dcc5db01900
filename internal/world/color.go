package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/config"
)

// ColorClassifier maps (position, height) to a terrain color using height
// bands derived from the water level, with slope pushing steep ground toward
// rock regardless of elevation.
type ColorClassifier struct {
	sampler *HeightSampler

	waterLevel    float64
	beachLevel    float64
	grassLevel    float64
	mountainLevel float64
	snowLevel     float64

	water mgl64.Vec4
	beach mgl64.Vec4
	grass mgl64.Vec4
	rock  mgl64.Vec4
	snow  mgl64.Vec4
}

// slopeSampleDist is the finite-difference step for slope estimation during
// classification.
const slopeSampleDist = 2.0

// NewColorClassifier derives the band thresholds from the configured water
// level and takes band colors from the palette.
func NewColorClassifier(sampler *HeightSampler, cfg config.Terrain) *ColorClassifier {
	water := cfg.WaterLevel
	beach := water + 1.0
	grass := beach + 2.0
	mountain := grass + 8.0
	snow := mountain + 4.0
	return &ColorClassifier{
		sampler:       sampler,
		waterLevel:    water,
		beachLevel:    beach,
		grassLevel:    grass,
		mountainLevel: mountain,
		snowLevel:     snow,
		water:         cfg.Palette.Water.Vec4(),
		beach:         cfg.Palette.Beach.Vec4(),
		grass:         cfg.Palette.Grass.Vec4(),
		rock:          cfg.Palette.Rock.Vec4(),
		snow:          cfg.Palette.Snow.Vec4(),
	}
}

// Classify returns the RGBA color for terrain of the given height at (x, y).
// Channels are clamped to [0, 1]; alpha is always 1.
func (c *ColorClassifier) Classify(x, y, height float64) mgl64.Vec4 {
	slope := c.sampler.Slope(x, y, slopeSampleDist)

	var color mgl64.Vec4
	switch {
	case height < c.waterLevel:
		color = c.water
	case height < c.beachLevel:
		t := bandRatio(height, c.waterLevel, c.beachLevel)
		color = lerpColor(c.water, c.beach, t)
	case height < c.grassLevel:
		t := bandRatio(height, c.beachLevel, c.grassLevel)
		color = lerpColor(c.beach, c.grass, t)
	case height < c.mountainLevel:
		// Steep slopes pull toward rock even at lower heights, giving
		// cliffs a rocky face independent of elevation.
		tHeight := bandRatio(height, c.grassLevel, c.mountainLevel)
		tSlope := clamp01((slope - 0.3) / 0.5)
		color = lerpColor(c.grass, c.rock, math.Max(tHeight, tSlope))
	case height < c.snowLevel:
		t := bandRatio(height, c.mountainLevel, c.snowLevel)
		color = lerpColor(c.rock, c.snow, t)
	default:
		color = c.snow
	}

	return mgl64.Vec4{
		clamp01(color.X()),
		clamp01(color.Y()),
		clamp01(color.Z()),
		1.0,
	}
}

// Slope estimates the slope magnitude at (x, y) from four height samples at
// the given distance along each axis.
func (s *HeightSampler) Slope(x, y, sampleDist float64) float64 {
	hpx := s.Height(x+sampleDist, y)
	hnx := s.Height(x-sampleDist, y)
	hpy := s.Height(x, y+sampleDist)
	hny := s.Height(x, y-sampleDist)

	slopeX := (hpx - hnx) / (2 * sampleDist)
	slopeY := (hpy - hny) / (2 * sampleDist)
	return math.Hypot(slopeX, slopeY)
}

// bandRatio maps height into [0, 1] within a band, clamping the denominator
// so degenerate band limits cannot divide by zero.
func bandRatio(height, low, high float64) float64 {
	return clamp01((height - low) / math.Max(high-low, 1e-6))
}

func lerpColor(a, b mgl64.Vec4, t float64) mgl64.Vec4 {
	return a.Mul(1 - t).Add(b.Mul(t))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
