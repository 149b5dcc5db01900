// Package store persists pre-generated ("baked") chunk geometry in a sqlite
// database, with payloads zstd-compressed. The bake command fills the store;
// consumers read chunk payloads back without regenerating terrain.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"terrastream/internal/protocol"
	"terrastream/internal/world"
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_x       INTEGER NOT NULL,
	chunk_y       INTEGER NOT NULL,
	seed          INTEGER NOT NULL,
	segment_count INTEGER NOT NULL,
	feature_count INTEGER NOT NULL,
	payload       BLOB    NOT NULL,
	baked_at      TEXT    NOT NULL,
	PRIMARY KEY (chunk_x, chunk_y)
);`

// BakeStore is a single-writer chunk archive.
type BakeStore struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open creates or opens the store at path. ":memory:" gives an ephemeral
// store for tests.
func Open(path string) (*BakeStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty store path")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BakeStore{db: db, enc: enc, dec: dec}, nil
}

// Put stores a built chunk, replacing any previous bake of the same
// coordinate.
func (s *BakeStore) Put(chunk *world.Chunk, seed int64) error {
	msg := protocol.EncodeChunk(chunk)
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode chunk %v: %w", chunk.Coord, err)
	}
	blob := s.enc.EncodeAll(raw, nil)

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO chunks
		 (chunk_x, chunk_y, seed, segment_count, feature_count, payload, baked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		chunk.Coord.X, chunk.Coord.Y, seed,
		len(chunk.Segments), len(chunk.Features),
		blob, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store chunk %v: %w", chunk.Coord, err)
	}
	return nil
}

// Get loads the baked payload for a chunk coordinate. The second return is
// false when the coordinate was never baked.
func (s *BakeStore) Get(coord world.ChunkCoord) (protocol.ChunkMsg, bool, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT payload FROM chunks WHERE chunk_x = ? AND chunk_y = ?`,
		coord.X, coord.Y,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return protocol.ChunkMsg{}, false, nil
	}
	if err != nil {
		return protocol.ChunkMsg{}, false, fmt.Errorf("load chunk %v: %w", coord, err)
	}

	raw, err := s.dec.DecodeAll(blob, nil)
	if err != nil {
		return protocol.ChunkMsg{}, false, fmt.Errorf("decompress chunk %v: %w", coord, err)
	}
	var msg protocol.ChunkMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return protocol.ChunkMsg{}, false, fmt.Errorf("decode chunk %v: %w", coord, err)
	}
	return msg, true, nil
}

// Count returns the number of baked chunks.
func (s *BakeStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Coords lists every baked chunk coordinate.
func (s *BakeStore) Coords() ([]world.ChunkCoord, error) {
	rows, err := s.db.Query(`SELECT chunk_x, chunk_y FROM chunks ORDER BY chunk_x, chunk_y`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.ChunkCoord
	for rows.Next() {
		var c world.ChunkCoord
		if err := rows.Scan(&c.X, &c.Y); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close releases the database and codec resources.
func (s *BakeStore) Close() error {
	s.enc.Close()
	s.dec.Close()
	return s.db.Close()
}
