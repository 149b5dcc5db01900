package world

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"terrastream/internal/config"
	"terrastream/internal/profiling"
)

// MeshSink consumes built chunks and eviction notices. It is the streamer's
// only window onto the outside: a renderer, a network transport, or a test
// recorder all look the same from here.
type MeshSink interface {
	Attach(*Chunk)
	Detach(*Chunk)
}

// Streamer keeps the resident chunk set in sync with the player position.
// Chunks inside the circular view radius are built and attached; chunks
// outside it are detached and released.
//
// The streamer is single-threaded by design: Update is called from one
// goroutine (a fixed-interval ticker in the server loop), and nothing else
// touches the resident map.
type Streamer struct {
	builder *MeshBuilder
	scatter *FeatureScatter
	sampler *HeightSampler
	sink    MeshSink
	log     *log.Logger

	chunkSize    float64
	viewDistance int
	genFeatures  bool

	resident  map[ChunkCoord]*Chunk
	center    ChunkCoord
	hasCenter bool
}

// NewStreamer wires the streamer to its collaborators.
func NewStreamer(builder *MeshBuilder, scatter *FeatureScatter, sampler *HeightSampler, sink MeshSink, cfg config.Terrain, logger *log.Logger) *Streamer {
	return &Streamer{
		builder:      builder,
		scatter:      scatter,
		sampler:      sampler,
		sink:         sink,
		log:          logger,
		chunkSize:    cfg.ChunkSize,
		viewDistance: cfg.ViewDistance,
		genFeatures:  cfg.GenerateFeatures,
		resident:     make(map[ChunkCoord]*Chunk),
	}
}

// Update recomputes chunk residency for the given player position. It is a
// no-op while the player stays inside the same chunk; on a boundary crossing
// it evicts every resident chunk outside the new visible circle, then builds
// the missing ones nearest-first. When Update returns, the resident set
// equals the visible set exactly.
func (s *Streamer) Update(playerPos mgl64.Vec3) {
	defer profiling.Track("world.Update")()

	center := ChunkCoordAt(playerPos.X(), playerPos.Y(), s.chunkSize)
	if s.hasCenter && s.center == center {
		return
	}
	s.center = center
	s.hasCenter = true

	visible := s.visibleSet(center)

	// Evict chunks that fell out of view, then prune stray height-cache
	// buckets left behind by border samples.
	for coord, chunk := range s.resident {
		if _, ok := visible[coord]; ok {
			continue
		}
		s.evict(coord, chunk)
	}
	s.sampler.Prune(visible)

	// Build missing chunks, closest first, so near terrain appears before
	// far terrain on bursty loads.
	for _, coord := range s.missingByDistance(visible, center) {
		s.load(coord, center)
	}
}

// sortByDistance orders coordinates by squared distance to center, with a
// coordinate tie-break so load order is deterministic.
func sortByDistance(coords []ChunkCoord, center ChunkCoord) {
	sort.Slice(coords, func(i, j int) bool {
		di, dj := coords[i].DistSq(center), coords[j].DistSq(center)
		if di != dj {
			return di < dj
		}
		if coords[i].X != coords[j].X {
			return coords[i].X < coords[j].X
		}
		return coords[i].Y < coords[j].Y
	})
}

// Prime generates the initial grid around the origin if no update has run
// yet, so a scene exists before the first position event arrives.
func (s *Streamer) Prime() {
	if !s.hasCenter {
		s.Update(mgl64.Vec3{})
	}
}

// Close evicts every resident chunk and clears all caches.
func (s *Streamer) Close() {
	for coord, chunk := range s.resident {
		s.evict(coord, chunk)
	}
	s.sampler.Reset()
	s.hasCenter = false
}

// Resident returns a snapshot of the resident chunk coordinates.
func (s *Streamer) Resident() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(s.resident))
	for coord := range s.resident {
		out = append(out, coord)
	}
	return out
}

// ResidentCount returns the number of resident chunks.
func (s *Streamer) ResidentCount() int {
	return len(s.resident)
}

// Chunk returns the resident chunk at coord, or nil.
func (s *Streamer) Chunk(coord ChunkCoord) *Chunk {
	return s.resident[coord]
}

// visibleSet is the circular footprint inscribed in the square scan around
// the center.
func (s *Streamer) visibleSet(center ChunkCoord) map[ChunkCoord]struct{} {
	vd := s.viewDistance
	visible := make(map[ChunkCoord]struct{})
	for x := center.X - vd; x <= center.X+vd; x++ {
		for y := center.Y - vd; y <= center.Y+vd; y++ {
			coord := ChunkCoord{X: x, Y: y}
			if coord.DistSq(center) <= vd*vd {
				visible[coord] = struct{}{}
			}
		}
	}
	return visible
}

func (s *Streamer) evict(coord ChunkCoord, chunk *Chunk) {
	defer profiling.Track("world.EvictChunk")()
	s.sink.Detach(chunk)
	chunk.Release()
	s.sampler.ReleaseChunk(coord)
	delete(s.resident, coord)
}

// load builds and attaches the chunk at coord. Already-resident coordinates
// are left untouched.
func (s *Streamer) load(coord ChunkCoord, center ChunkCoord) {
	if _, ok := s.resident[coord]; ok {
		return
	}

	chunk := s.builder.Build(coord)

	// Only the inner ring gets decorative features; the outer ring is too
	// far away to matter visually.
	if s.genFeatures {
		if inner := s.viewDistance - 1; inner > 0 && coord.DistSq(center) < inner*inner {
			chunk.Features = s.scatter.Scatter(coord)
		}
	}

	s.resident[coord] = chunk
	s.sink.Attach(chunk)
}
