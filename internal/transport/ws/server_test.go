package ws_test

import (
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"terrastream/internal/config"
	"terrastream/internal/protocol"
	"terrastream/internal/transport/ws"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Terrain.Seed = 99
	cfg.Terrain.ViewDistance = 1
	cfg.Server.UpdateIntervalMs = 20
	return cfg
}

func startServer(t *testing.T, cfg config.Config) *websocket.Conn {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	srv := httptest.NewServer(ws.NewServer(cfg, logger).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) []byte {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func handshake(t *testing.T, conn *websocket.Conn) protocol.WelcomeMsg {
	t.Helper()
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "test-client",
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("send hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(readFrame(t, conn, 2*time.Second), &welcome); err != nil {
		t.Fatalf("decode welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome {
		t.Fatalf("expected WELCOME, got %s", welcome.Type)
	}
	return welcome
}

func TestHandshakeReturnsWorldParams(t *testing.T) {
	cfg := testConfig()
	conn := startServer(t, cfg)
	welcome := handshake(t, conn)

	if welcome.SessionID == "" {
		t.Fatal("empty session id")
	}
	if welcome.ProtocolVersion != protocol.Version {
		t.Fatalf("protocol version: got %s", welcome.ProtocolVersion)
	}
	if welcome.World.Seed != cfg.Terrain.Seed {
		t.Fatalf("seed: got %d want %d", welcome.World.Seed, cfg.Terrain.Seed)
	}
	if welcome.World.ChunkSize != cfg.Terrain.ChunkSize {
		t.Fatalf("chunk size: got %v want %v", welcome.World.ChunkSize, cfg.Terrain.ChunkSize)
	}
	if welcome.World.ViewDistance != cfg.Terrain.ViewDistance {
		t.Fatalf("view distance: got %d want %d", welcome.World.ViewDistance, cfg.Terrain.ViewDistance)
	}
}

func TestPositionDrivesChunkStream(t *testing.T) {
	conn := startServer(t, testConfig())
	handshake(t, conn)

	pos := protocol.PositionMsg{Type: protocol.TypePosition, X: 0, Y: 0, Z: 10}
	if err := conn.WriteJSON(pos); err != nil {
		t.Fatalf("send position: %v", err)
	}

	// view_distance 1 keeps the 5 chunks of the unit disc resident.
	want := 5
	got := map[[2]int]bool{}
	deadline := time.Now().Add(5 * time.Second)
	for len(got) < want {
		if time.Now().After(deadline) {
			t.Fatalf("received %d distinct chunks, want %d", len(got), want)
		}
		raw := readFrame(t, conn, time.Until(deadline))
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			t.Fatalf("decode base: %v", err)
		}
		if base.Type != protocol.TypeChunk {
			continue
		}
		var chunk protocol.ChunkMsg
		if err := json.Unmarshal(raw, &chunk); err != nil {
			t.Fatalf("decode chunk: %v", err)
		}
		got[[2]int{chunk.ChunkX, chunk.ChunkY}] = true
	}

	for _, c := range [][2]int{{0, 0}, {1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		if !got[c] {
			t.Fatalf("missing chunk %v", c)
		}
	}
}

func TestMovementEvictsChunks(t *testing.T) {
	cfg := testConfig()
	conn := startServer(t, cfg)
	handshake(t, conn)

	send := func(x float64) {
		pos := protocol.PositionMsg{Type: protocol.TypePosition, X: x, Y: 0, Z: 10}
		if err := conn.WriteJSON(pos); err != nil {
			t.Fatalf("send position: %v", err)
		}
	}
	send(0)

	// Wait for the initial neighborhood, then jump far along X and expect
	// EVICT frames for the old chunks.
	chunks := 0
	deadline := time.Now().Add(5 * time.Second)
	for chunks < 5 {
		if time.Now().After(deadline) {
			t.Fatalf("initial stream incomplete: %d chunks", chunks)
		}
		base, _ := protocol.DecodeBase(readFrame(t, conn, time.Until(deadline)))
		if base.Type == protocol.TypeChunk {
			chunks++
		}
	}

	send(20 * cfg.Terrain.ChunkSize)
	evicted := false
	for !evicted {
		if time.Now().After(deadline) {
			t.Fatal("no EVICT frame after teleport")
		}
		base, _ := protocol.DecodeBase(readFrame(t, conn, time.Until(deadline)))
		if base.Type == protocol.TypeEvict {
			evicted = true
		}
	}
}

func TestRejectsWrongFirstFrame(t *testing.T) {
	conn := startServer(t, testConfig())

	pos := protocol.PositionMsg{Type: protocol.TypePosition, X: 0, Y: 0, Z: 0}
	if err := conn.WriteJSON(pos); err != nil {
		t.Fatalf("send position: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close for non-HELLO first frame")
	}
}

func TestRejectsBadProtocolVersion(t *testing.T) {
	conn := startServer(t, testConfig())

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.0"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("send hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected close for bad protocol version")
	}
}

func TestUnknownFrameGetsError(t *testing.T) {
	conn := startServer(t, testConfig())
	handshake(t, conn)

	if err := conn.WriteJSON(map[string]string{"type": "NONSENSE"}); err != nil {
		t.Fatalf("send frame: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		if time.Now().After(deadline) {
			t.Fatal("no ERROR frame for unknown type")
		}
		raw := readFrame(t, conn, time.Until(deadline))
		base, err := protocol.DecodeBase(raw)
		if err != nil {
			t.Fatalf("decode base: %v", err)
		}
		if base.Type == protocol.TypeError {
			var em protocol.ErrorMsg
			if err := json.Unmarshal(raw, &em); err != nil {
				t.Fatalf("decode error frame: %v", err)
			}
			if !strings.Contains(em.Reason, "NONSENSE") {
				t.Fatalf("reason should name the bad type: %q", em.Reason)
			}
			return
		}
	}
}
