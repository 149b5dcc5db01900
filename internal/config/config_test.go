package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Terrain.Validate(); err != nil {
		t.Fatalf("default terrain settings invalid: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Terrain.ChunkSize != 16 || cfg.Terrain.ViewDistance != 3 {
		t.Errorf("missing file did not yield defaults: %+v", cfg.Terrain)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	body := `
terrain:
  seed: 4242
  view_distance: 5
  water_level: 0.5
  palette:
    grass: [0.1, 0.9, 0.1, 1.0]
server:
  addr: ":9000"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Terrain.Seed != 4242 {
		t.Errorf("seed = %d, want 4242", cfg.Terrain.Seed)
	}
	if cfg.Terrain.ViewDistance != 5 {
		t.Errorf("view_distance = %d, want 5", cfg.Terrain.ViewDistance)
	}
	if cfg.Terrain.WaterLevel != 0.5 {
		t.Errorf("water_level = %v, want 0.5", cfg.Terrain.WaterLevel)
	}
	if got := cfg.Terrain.Palette.Grass; got != (Color{0.1, 0.9, 0.1, 1.0}) {
		t.Errorf("palette grass = %v", got)
	}
	// Untouched keys keep their defaults.
	if cfg.Terrain.ChunkSize != 16 {
		t.Errorf("chunk_size = %v, want default 16", cfg.Terrain.ChunkSize)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server addr = %q, want :9000", cfg.Server.Addr)
	}
	if cfg.Server.UpdateIntervalMs != 500 {
		t.Errorf("update_interval_ms = %d, want default 500", cfg.Server.UpdateIntervalMs)
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero view distance", "terrain:\n  view_distance: 0\n"},
		{"negative chunk size", "terrain:\n  chunk_size: -4\n"},
		{"zero mesh size", "terrain:\n  detail_mesh_size: 0\n"},
		{"mesh larger than chunk", "terrain:\n  detail_mesh_size: 32\n"},
		{"zero octaves", "terrain:\n  octaves: 0\n"},
		{"negative density", "terrain:\n  feature_density: -0.5\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "settings.yaml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted invalid settings:\n%s", tc.body)
			}
		})
	}
}

func TestColorVec4(t *testing.T) {
	c := Color{0.25, 0.5, 0.75, 1.0}
	v := c.Vec4()
	if v.X() != 0.25 || v.Y() != 0.5 || v.Z() != 0.75 || v.W() != 1.0 {
		t.Errorf("Vec4 = %v", v)
	}
}
