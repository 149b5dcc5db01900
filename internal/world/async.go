package world

import (
	"context"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// BuildPool runs chunk mesh building on background workers so a burst of
// newly-visible chunks (a teleport, a sharp turn at high speed) does not
// stall the update loop. Results come back over a channel and are folded
// into the resident set by Integrate on the caller's goroutine; jobs whose
// chunk leaves the visible set before a worker picks them up are cancelled.
type buildJob struct {
	coord    ChunkCoord
	features bool
}

type BuildPool struct {
	builder *MeshBuilder
	scatter *FeatureScatter

	jobs    chan buildJob
	results chan *Chunk
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu        sync.Mutex
	pending   map[ChunkCoord]struct{}
	cancelled map[ChunkCoord]struct{}
}

// NewBuildPool starts workers goroutines over a bounded job queue.
func NewBuildPool(builder *MeshBuilder, scatter *FeatureScatter, workers, queueSize int) *BuildPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &BuildPool{
		builder:   builder,
		scatter:   scatter,
		jobs:      make(chan buildJob, queueSize),
		results:   make(chan *Chunk, queueSize),
		ctx:       ctx,
		cancel:    cancel,
		pending:   make(map[ChunkCoord]struct{}),
		cancelled: make(map[ChunkCoord]struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit queues a build. Returns false if the coordinate is already pending
// or the queue is full. A coordinate that was cancelled while its job is
// still queued is un-cancelled here, so an evict-then-return sequence leaves
// the queued job live instead of letting a worker drop it.
func (p *BuildPool) Submit(coord ChunkCoord, withFeatures bool) bool {
	p.mu.Lock()
	delete(p.cancelled, coord)
	if _, ok := p.pending[coord]; ok {
		p.mu.Unlock()
		return false
	}
	p.pending[coord] = struct{}{}
	p.mu.Unlock()

	select {
	case p.jobs <- buildJob{coord: coord, features: withFeatures}:
		return true
	default:
		// Queue full: roll back.
		p.mu.Lock()
		delete(p.pending, coord)
		p.mu.Unlock()
		return false
	}
}

// CancelExcept marks every pending job outside keep as cancelled. Workers
// drop cancelled jobs without building them.
func (p *BuildPool) CancelExcept(keep map[ChunkCoord]struct{}) {
	p.mu.Lock()
	for coord := range p.pending {
		if _, ok := keep[coord]; !ok {
			p.cancelled[coord] = struct{}{}
		}
	}
	p.mu.Unlock()
}

// Results delivers built chunks to the integrating goroutine.
func (p *BuildPool) Results() <-chan *Chunk {
	return p.results
}

// Pending returns the number of submitted-but-undelivered builds.
func (p *BuildPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Shutdown stops the workers and waits for them to exit.
func (p *BuildPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

func (p *BuildPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			p.mu.Lock()
			_, dropped := p.cancelled[job.coord]
			if dropped {
				delete(p.cancelled, job.coord)
				delete(p.pending, job.coord)
			}
			p.mu.Unlock()
			if dropped {
				continue
			}

			chunk := p.builder.Build(job.coord)
			if job.features {
				chunk.Features = p.scatter.Scatter(job.coord)
			}

			p.mu.Lock()
			delete(p.pending, job.coord)
			p.mu.Unlock()

			select {
			case p.results <- chunk:
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			return
		}
	}
}

// UpdateAsync is the non-blocking variant of Update: eviction still happens
// immediately, but missing chunks are queued on the pool nearest-first and
// arrive later through Integrate. The resident set converges to the visible
// set once the queue drains.
func (s *Streamer) UpdateAsync(playerPos mgl64.Vec3, pool *BuildPool) {
	center := ChunkCoordAt(playerPos.X(), playerPos.Y(), s.chunkSize)
	if s.hasCenter && s.center == center {
		return
	}
	s.center = center
	s.hasCenter = true

	visible := s.visibleSet(center)
	pool.CancelExcept(visible)

	for coord, chunk := range s.resident {
		if _, ok := visible[coord]; !ok {
			s.evict(coord, chunk)
		}
	}
	s.sampler.Prune(visible)

	missing := s.missingByDistance(visible, center)
	inner := s.viewDistance - 1
	for _, coord := range missing {
		withFeatures := s.genFeatures && inner > 0 && coord.DistSq(center) < inner*inner
		pool.Submit(coord, withFeatures)
	}
}

// Integrate drains completed builds without blocking, attaching chunks that
// are still visible and discarding the rest.
func (s *Streamer) Integrate(pool *BuildPool) int {
	if !s.hasCenter {
		return 0
	}
	vd := s.viewDistance
	attached := 0
	for {
		select {
		case chunk := <-pool.Results():
			if _, ok := s.resident[chunk.Coord]; ok {
				chunk.Release()
				continue
			}
			if chunk.Coord.DistSq(s.center) > vd*vd {
				chunk.Release()
				continue
			}
			s.resident[chunk.Coord] = chunk
			s.sink.Attach(chunk)
			attached++
		default:
			return attached
		}
	}
}

// missingByDistance lists visible-but-absent coordinates, nearest first.
func (s *Streamer) missingByDistance(visible map[ChunkCoord]struct{}, center ChunkCoord) []ChunkCoord {
	missing := make([]ChunkCoord, 0, len(visible))
	for coord := range visible {
		if _, ok := s.resident[coord]; !ok {
			missing = append(missing, coord)
		}
	}
	sortByDistance(missing, center)
	return missing
}
