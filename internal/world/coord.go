package world

import "math"

// ChunkCoord identifies a chunk by its integer grid position.
type ChunkCoord struct {
	X, Y int
}

// ChunkCoordAt returns the coordinate of the chunk containing the world
// position (x, y) for the given chunk size.
func ChunkCoordAt(x, y, chunkSize float64) ChunkCoord {
	return ChunkCoord{
		X: int(math.Floor(x / chunkSize)),
		Y: int(math.Floor(y / chunkSize)),
	}
}

// DistSq returns the squared chunk-grid distance to another coordinate.
func (c ChunkCoord) DistSq(o ChunkCoord) int {
	dx := c.X - o.X
	dy := c.Y - o.Y
	return dx*dx + dy*dy
}
