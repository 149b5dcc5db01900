// Package protocol defines the JSON messages exchanged between the terrain
// server and mesh consumers. The server streams built chunk geometry and
// eviction notices; the client sends position updates that drive streaming.
package protocol

import (
	"encoding/json"
	"fmt"

	"terrastream/internal/world"
)

// Version is bumped on any incompatible message change.
const Version = "1.0"

// Message types.
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypePosition = "POSITION"
	TypeChunk    = "CHUNK"
	TypeEvict    = "EVICT"
	TypeError    = "ERROR"
)

// Base carries only the type tag, enough to dispatch an incoming frame.
type Base struct {
	Type string `json:"type"`
}

// DecodeBase extracts the type tag from a raw frame.
func DecodeBase(raw []byte) (Base, error) {
	var b Base
	if err := json.Unmarshal(raw, &b); err != nil {
		return b, fmt.Errorf("decode frame: %w", err)
	}
	if b.Type == "" {
		return b, fmt.Errorf("frame missing type")
	}
	return b, nil
}

// HelloMsg opens a session.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// WorldParams describes the generation parameters a client needs to place
// and interpret incoming geometry.
type WorldParams struct {
	Seed             int64   `json:"seed"`
	ChunkSize        float64 `json:"chunk_size"`
	ViewDistance     int     `json:"view_distance"`
	WaterLevel       float64 `json:"water_level"`
	UpdateIntervalMs int     `json:"update_interval_ms"`
}

// WelcomeMsg acknowledges a session.
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	World           WorldParams `json:"world"`
}

// PositionMsg reports the player's world position.
type PositionMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// SegmentPayload is one quad of terrain geometry. Positions hold 4 vertices
// as x/y/z triples; the normal and color are flat across the quad.
type SegmentPayload struct {
	Positions [12]float64 `json:"positions"`
	Normal    [3]float64  `json:"normal"`
	Color     [4]float64  `json:"color"`
	Indices   [6]uint32   `json:"indices"`
	Mask      uint32      `json:"mask"`
}

// FeaturePayload is one decorative feature placement.
type FeaturePayload struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
	Slope  float64 `json:"slope"`
}

// ChunkMsg delivers a built chunk.
type ChunkMsg struct {
	Type     string           `json:"type"`
	ChunkX   int              `json:"chunk_x"`
	ChunkY   int              `json:"chunk_y"`
	Segments []SegmentPayload `json:"segments"`
	Features []FeaturePayload `json:"features,omitempty"`
}

// EvictMsg tells the client to drop a chunk.
type EvictMsg struct {
	Type   string `json:"type"`
	ChunkX int    `json:"chunk_x"`
	ChunkY int    `json:"chunk_y"`
}

// ErrorMsg reports a rejected frame.
type ErrorMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// EncodeChunk converts a built chunk into its wire form.
func EncodeChunk(c *world.Chunk) ChunkMsg {
	msg := ChunkMsg{
		Type:     TypeChunk,
		ChunkX:   c.Coord.X,
		ChunkY:   c.Coord.Y,
		Segments: make([]SegmentPayload, 0, len(c.Segments)),
	}
	for _, seg := range c.Segments {
		var p SegmentPayload
		for i, v := range seg.Positions {
			p.Positions[i*3] = v.X()
			p.Positions[i*3+1] = v.Y()
			p.Positions[i*3+2] = v.Z()
		}
		p.Normal = [3]float64{seg.Normals[0].X(), seg.Normals[0].Y(), seg.Normals[0].Z()}
		p.Color = [4]float64{seg.Color.X(), seg.Color.Y(), seg.Color.Z(), seg.Color.W()}
		p.Indices = seg.Indices
		p.Mask = seg.Mask
		msg.Segments = append(msg.Segments, p)
	}
	for _, f := range c.Features {
		msg.Features = append(msg.Features, FeaturePayload{
			X:      f.Pos.X(),
			Y:      f.Pos.Y(),
			Height: f.Pos.Z(),
			Slope:  f.Slope,
		})
	}
	return msg
}

// EvictNotice builds the eviction message for a chunk coordinate.
func EvictNotice(coord world.ChunkCoord) EvictMsg {
	return EvictMsg{Type: TypeEvict, ChunkX: coord.X, ChunkY: coord.Y}
}
