package noise

import (
	"math"
	"math/rand"
)

// Field is a seeded 2D gradient noise source. A Field is immutable once
// created: the same (seed, x, y) always yields the same value.
type Field struct {
	seed int64
	perm [512]int
}

// Fixed gradient set; 8 directions are enough for 2D terrain.
var grad2 = [8][2]float64{
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
}

// NewField builds a noise field from a seed. The permutation table is a
// seeded shuffle of 0..255, doubled for index wraparound.
func NewField(seed int64) *Field {
	f := &Field{seed: seed}
	rng := rand.New(rand.NewSource(seed))
	for i, v := range rng.Perm(256) {
		f.perm[i] = v
		f.perm[i+256] = v
	}
	return f
}

// Seed returns the seed the field was built from.
func (f *Field) Seed() int64 {
	return f.seed
}

// fade is the quintic smoothing curve 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// gradient hashes a lattice corner to one of the fixed gradient directions
// and returns its dot product with the distance vector (fx, fy).
func (f *Field) gradient(ix, iy int, fx, fy float64) float64 {
	g := grad2[f.perm[(ix+f.perm[iy&255])&255]%8]
	return g[0]*fx + g[1]*fy
}

// Noise2D returns coherent noise at (x, y) in [-1, 1].
func (f *Field) Noise2D(x, y float64) float64 {
	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	fx := x - float64(ix)
	fy := y - float64(iy)
	ix &= 255
	iy &= 255

	// Contributions from the 4 cell corners.
	n00 := f.gradient(ix, iy, fx, fy)
	n01 := f.gradient(ix, iy+1, fx, fy-1)
	n10 := f.gradient(ix+1, iy, fx-1, fy)
	n11 := f.gradient(ix+1, iy+1, fx-1, fy-1)

	u := fade(fx)
	v := fade(fy)

	nx0 := lerp(n00, n10, u)
	nx1 := lerp(n01, n11, u)

	// 0.707 rescales the raw gradient sum into [-1, 1].
	return lerp(nx0, nx1, v) * 0.707
}

// FBM sums octaves of Noise2D with decaying amplitude and growing frequency,
// normalized by the total amplitude. Zero or negative octaves yield 0.
func (f *Field) FBM(x, y float64, octaves int, persistence, lacunarity float64) float64 {
	if octaves <= 0 {
		return 0
	}
	total := 0.0
	frequency := 1.0
	amplitude := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += f.Noise2D(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		frequency *= lacunarity
	}
	return total / math.Max(maxValue, 1e-6)
}
