package config

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// Color is an RGBA quadruple as it appears in the settings file.
type Color [4]float64

// Vec4 converts a configured color to the vector type used by the mesh layer.
func (c Color) Vec4() mgl64.Vec4 {
	return mgl64.Vec4{c[0], c[1], c[2], c[3]}
}

// Palette holds the terrain band colors.
type Palette struct {
	Water Color `yaml:"water"`
	Beach Color `yaml:"beach"`
	Grass Color `yaml:"grass"`
	Rock  Color `yaml:"rock"`
	Snow  Color `yaml:"snow"`
}

// Terrain holds every generation parameter. Values are consumed at
// construction time and immutable afterwards; there is no live reconfiguration.
type Terrain struct {
	Seed             int64   `yaml:"seed"`
	ChunkSize        float64 `yaml:"chunk_size"`
	ViewDistance     int     `yaml:"view_distance"`
	HeightScale      float64 `yaml:"height_scale"`
	NoiseScale       float64 `yaml:"noise_scale"`
	Octaves          int     `yaml:"octaves"`
	Persistence      float64 `yaml:"persistence"`
	Lacunarity       float64 `yaml:"lacunarity"`
	WaterLevel       float64 `yaml:"water_level"`
	FeatureDensity   float64 `yaml:"feature_density"`
	DetailMeshSize   float64 `yaml:"detail_mesh_size"`
	GenerateFeatures bool    `yaml:"generate_features"`
	Palette          Palette `yaml:"palette"`
}

// Server holds the mesh server settings.
type Server struct {
	Addr             string `yaml:"addr"`
	UpdateIntervalMs int    `yaml:"update_interval_ms"`
}

// Config is the root of the settings file.
type Config struct {
	Terrain Terrain `yaml:"terrain"`
	Server  Server  `yaml:"server"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Terrain: Terrain{
			Seed:             0, // 0 means pick a random seed at startup
			ChunkSize:        16,
			ViewDistance:     3,
			HeightScale:      15.0,
			NoiseScale:       0.01,
			Octaves:          4,
			Persistence:      0.5,
			Lacunarity:       2.0,
			WaterLevel:       -2.0,
			FeatureDensity:   0.01,
			DetailMeshSize:   2.0,
			GenerateFeatures: true,
			Palette: Palette{
				Water: Color{0.1, 0.3, 0.6, 1.0},
				Beach: Color{0.8, 0.7, 0.5, 1.0},
				Grass: Color{0.3, 0.5, 0.2, 1.0},
				Rock:  Color{0.5, 0.4, 0.3, 1.0},
				Snow:  Color{0.9, 0.9, 0.95, 1.0},
			},
		},
		Server: Server{
			Addr:             ":8765",
			UpdateIntervalMs: 500,
		},
	}
}

// Load reads a YAML settings file over the defaults. A missing file returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("settings %s: %w", path, err)
	}
	if err := cfg.Terrain.Validate(); err != nil {
		return cfg, fmt.Errorf("settings %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects parameter combinations the generation math cannot handle.
func (t Terrain) Validate() error {
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %v", t.ChunkSize)
	}
	if t.ViewDistance <= 0 {
		return fmt.Errorf("view_distance must be positive, got %d", t.ViewDistance)
	}
	if t.DetailMeshSize <= 0 {
		return fmt.Errorf("detail_mesh_size must be positive, got %v", t.DetailMeshSize)
	}
	if t.DetailMeshSize > t.ChunkSize {
		return fmt.Errorf("detail_mesh_size %v exceeds chunk_size %v", t.DetailMeshSize, t.ChunkSize)
	}
	if t.Octaves < 1 {
		return fmt.Errorf("octaves must be at least 1, got %d", t.Octaves)
	}
	if t.FeatureDensity < 0 {
		return fmt.Errorf("feature_density must not be negative, got %v", t.FeatureDensity)
	}
	return nil
}
