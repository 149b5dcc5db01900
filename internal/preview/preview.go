// Package preview renders top-down color maps of terrain regions. The bake
// command uses it to sanity-check generation parameters without a viewer.
package preview

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"

	"terrastream/internal/config"
	"terrastream/internal/world"
)

const (
	slopeShadeStrength = 0.45
	slopeSampleDist    = 1.0
)

// Render draws the chunk region from minChunk to maxChunk inclusive, one
// tile of samplesPerChunk x samplesPerChunk pixels per chunk. North (+Y) is
// up. Steep ground is darkened so relief reads without lighting.
func Render(sampler *world.HeightSampler, colors *world.ColorClassifier, cfg config.Terrain, minChunk, maxChunk world.ChunkCoord, samplesPerChunk int) (*image.NRGBA, error) {
	if samplesPerChunk <= 0 {
		return nil, fmt.Errorf("samples per chunk must be positive, got %d", samplesPerChunk)
	}
	if minChunk.X > maxChunk.X || minChunk.Y > maxChunk.Y {
		return nil, fmt.Errorf("empty region %v..%v", minChunk, maxChunk)
	}

	chunksX := maxChunk.X - minChunk.X + 1
	chunksY := maxChunk.Y - minChunk.Y + 1
	w := chunksX * samplesPerChunk
	h := chunksY * samplesPerChunk
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	step := cfg.ChunkSize / float64(samplesPerChunk)
	originX := float64(minChunk.X) * cfg.ChunkSize
	originY := float64(minChunk.Y) * cfg.ChunkSize

	for py := 0; py < h; py++ {
		// Row 0 is the region's north edge.
		wy := originY + (float64(h-1-py)+0.5)*step
		for px := 0; px < w; px++ {
			wx := originX + (float64(px)+0.5)*step

			height := sampler.Height(wx, wy)
			col := colors.Classify(wx, wy, height)

			shade := 1.0 - slopeShadeStrength*clamp01(sampler.Slope(wx, wy, slopeSampleDist))
			idx := py*img.Stride + px*4
			img.Pix[idx] = toByte(col.X() * shade)
			img.Pix[idx+1] = toByte(col.Y() * shade)
			img.Pix[idx+2] = toByte(col.Z() * shade)
			img.Pix[idx+3] = toByte(col.W())
		}
	}
	return img, nil
}

// Scale resizes a rendered map to the given width, preserving aspect ratio.
func Scale(img *image.NRGBA, width int) *image.NRGBA {
	if width <= 0 || width == img.Bounds().Dx() {
		return img
	}
	height := img.Bounds().Dy() * width / img.Bounds().Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return dst
}

// Save encodes the map as PNG, creating parent directories as needed.
func Save(path string, img *image.NRGBA) error {
	if path == "" {
		return fmt.Errorf("output path is empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func toByte(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
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
