// Package ws serves terrain geometry over websocket. Each connection gets
// its own streamer driven by the client's POSITION reports; built chunks and
// eviction notices flow back as CHUNK and EVICT frames.
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"terrastream/internal/config"
	"terrastream/internal/noise"
	"terrastream/internal/protocol"
	"terrastream/internal/world"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	outQueueSize     = 64
)

// Server upgrades connections and runs one streaming session per client.
type Server struct {
	cfg config.Config
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, logger *log.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess := s.handshake(conn)
		if sess == nil {
			return
		}
		s.log.Printf("session %s: client %q connected", sess.id, sess.clientName)
		sess.run(conn)
		s.log.Printf("session %s: closed", sess.id)
	}
}

func (s *Server) handshake(conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"),
			time.Now().Add(time.Second))
		return nil
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"),
			time.Now().Add(time.Second))
		return nil
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	sess := newSession(s.cfg, hello.ClientName, s.log)

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		World: protocol.WorldParams{
			Seed:             s.cfg.Terrain.Seed,
			ChunkSize:        s.cfg.Terrain.ChunkSize,
			ViewDistance:     s.cfg.Terrain.ViewDistance,
			WaterLevel:       s.cfg.Terrain.WaterLevel,
			UpdateIntervalMs: s.cfg.Server.UpdateIntervalMs,
		},
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil
	}
	return sess
}

// session owns the terrain stack for one client. Generation state is not
// shared between sessions, so each client streams around its own position.
type session struct {
	id         string
	clientName string
	log        *log.Logger
	interval   time.Duration

	streamer *world.Streamer
	out      chan []byte

	mu     sync.Mutex
	pos    mgl64.Vec3
	hasPos bool
}

func newSession(cfg config.Config, clientName string, logger *log.Logger) *session {
	sess := &session{
		id:         uuid.NewString(),
		clientName: clientName,
		log:        logger,
		interval:   time.Duration(cfg.Server.UpdateIntervalMs) * time.Millisecond,
		out:        make(chan []byte, outQueueSize),
	}

	tc := cfg.Terrain
	field := noise.NewField(tc.Seed)
	sampler := world.NewHeightSampler(field, tc)
	colors := world.NewColorClassifier(sampler, tc)
	builder := world.NewMeshBuilder(sampler, colors, tc, logger)
	scatter := world.NewFeatureScatter(sampler, tc)
	sess.streamer = world.NewStreamer(builder, scatter, sampler, sess, tc, logger)
	return sess
}

// Attach implements world.MeshSink.
func (sess *session) Attach(chunk *world.Chunk) {
	sess.push(protocol.EncodeChunk(chunk))
}

// Detach implements world.MeshSink.
func (sess *session) Detach(chunk *world.Chunk) {
	sess.push(protocol.EvictNotice(chunk.Coord))
}

func (sess *session) push(msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		sess.log.Printf("session %s: encode frame: %v", sess.id, err)
		return
	}
	select {
	case sess.out <- b:
	default:
		sess.log.Printf("session %s: out queue full, dropping frame", sess.id)
	}
}

func (sess *session) setPosition(p mgl64.Vec3) {
	sess.mu.Lock()
	sess.pos = p
	sess.hasPos = true
	sess.mu.Unlock()
}

func (sess *session) position() (mgl64.Vec3, bool) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.pos, sess.hasPos
}

func (sess *session) run(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The streamer is single-goroutine; only the ticker goroutine touches it,
	// and Close waits for that goroutine to drain before tearing down.
	var tickerDone sync.WaitGroup
	defer func() {
		cancel()
		tickerDone.Wait()
		sess.streamer.Close()
	}()

	// Writer goroutine.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-sess.out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// Streaming ticker. Re-running Update on an unchanged chunk is a no-op,
	// so the cadence only bounds how fast chunks churn.
	tickerDone.Add(1)
	go func() {
		defer tickerDone.Done()
		ticker := time.NewTicker(sess.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if p, ok := sess.position(); ok {
					sess.streamer.Update(p)
				}
			}
		}
	}()

	// Reader loop.
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			cancel()
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		if base.Type != protocol.TypePosition {
			sess.push(protocol.ErrorMsg{Type: protocol.TypeError, Reason: "unexpected " + base.Type})
			continue
		}
		var pos protocol.PositionMsg
		if err := json.Unmarshal(msg, &pos); err != nil {
			sess.push(protocol.ErrorMsg{Type: protocol.TypeError, Reason: "bad POSITION frame"})
			continue
		}
		sess.setPosition(mgl64.Vec3{pos.X, pos.Y, pos.Z})
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
