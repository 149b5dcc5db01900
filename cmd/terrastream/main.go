package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/xlab/closer"

	"terrastream/internal/config"
	"terrastream/internal/noise"
	"terrastream/internal/profiling"
	"terrastream/internal/transport/ws"
	"terrastream/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to settings yaml (optional)")
		serve      = flag.Bool("serve", false, "run the websocket mesh server")
		addr       = flag.String("addr", "", "listen address override for -serve")
		seed       = flag.Int64("seed", 0, "terrain seed override")
		steps      = flag.Int("steps", 20, "demo mode: number of walk steps")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[terrastream] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *seed != 0 {
		cfg.Terrain.Seed = *seed
	}
	if cfg.Terrain.Seed == 0 {
		cfg.Terrain.Seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	logger.Printf("terrain seed %d", cfg.Terrain.Seed)

	if *serve {
		runServer(cfg, logger)
		return
	}
	runDemo(cfg, logger, *steps)
}

func runServer(cfg config.Config, logger *log.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", ws.NewServer(cfg, logger).Handler())

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: mux}
	closer.Bind(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		logger.Println("server stopped")
	})

	go func() {
		logger.Printf("mesh server listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("serve: %v", err)
			closer.Close()
		}
	}()
	closer.Hold()
}

// demoSink counts geometry flowing through the streamer so the walk has
// something observable without a renderer attached.
type demoSink struct {
	log      *log.Logger
	attached int
	detached int
	segments int
}

func (d *demoSink) Attach(c *world.Chunk) {
	d.attached++
	d.segments += len(c.Segments)
	d.log.Printf("attach chunk (%d,%d): %d segments, %d features",
		c.Coord.X, c.Coord.Y, len(c.Segments), len(c.Features))
}

func (d *demoSink) Detach(c *world.Chunk) {
	d.detached++
	d.log.Printf("evict chunk (%d,%d)", c.Coord.X, c.Coord.Y)
}

// runDemo walks a straight line through the world on the configured update
// cadence, streaming chunks asynchronously, then prints timing totals.
func runDemo(cfg config.Config, logger *log.Logger, steps int) {
	tc := cfg.Terrain
	field := noise.NewField(tc.Seed)
	sampler := world.NewHeightSampler(field, tc)
	colors := world.NewColorClassifier(sampler, tc)
	builder := world.NewMeshBuilder(sampler, colors, tc, logger)
	scatter := world.NewFeatureScatter(sampler, tc)

	sink := &demoSink{log: logger}
	streamer := world.NewStreamer(builder, scatter, sampler, sink, tc, logger)
	pool := world.NewBuildPool(builder, scatter, runtime.NumCPU(), 64)
	defer pool.Shutdown()
	defer streamer.Close()

	profiling.Reset()
	interval := time.Duration(cfg.Server.UpdateIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := mgl64.Vec3{0, 0, 0}
	stride := tc.ChunkSize / 2
	for i := 0; i < steps; i++ {
		<-ticker.C
		streamer.UpdateAsync(pos, pool)
		streamer.Integrate(pool)
		pos = pos.Add(mgl64.Vec3{stride, 0, 0})
	}

	// Let in-flight builds land before reporting.
	drainDeadline := time.Now().Add(5 * time.Second)
	for pool.Pending() > 0 && time.Now().Before(drainDeadline) {
		streamer.Integrate(pool)
		time.Sleep(10 * time.Millisecond)
	}
	streamer.Integrate(pool)

	logger.Printf("walked %d steps: %d chunks attached, %d evicted, %d resident, %d segments total",
		steps, sink.attached, sink.detached, streamer.ResidentCount(), sink.segments)
	logger.Printf("hot spots:\n%s", profiling.TopN(5))
}
