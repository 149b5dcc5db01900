package world

// Chunk owns the mesh segments and scattered feature candidates covering one
// chunk-sized square of terrain. A chunk is created by the mesh builder when
// it first becomes visible and is exclusively owned by the streamer's
// resident map until eviction releases it.
type Chunk struct {
	Coord    ChunkCoord
	Segments []MeshSegment
	Features []FeatureCandidate

	released bool
}

// Release drops the chunk's geometry and features. After Release the chunk
// holds no resources and must not be attached anywhere.
func (c *Chunk) Release() {
	c.Segments = nil
	c.Features = nil
	c.released = true
}

// Released reports whether Release has run.
func (c *Chunk) Released() bool {
	return c.released
}
