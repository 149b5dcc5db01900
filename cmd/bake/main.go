// Command bake pre-generates a rectangular region of chunks into a sqlite
// store, so a viewer can load geometry without running the generator.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"terrastream/internal/config"
	"terrastream/internal/noise"
	"terrastream/internal/preview"
	"terrastream/internal/store"
	"terrastream/internal/world"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to settings yaml (optional)")
		seed       = flag.Int64("seed", 0, "terrain seed override")
		out        = flag.String("out", "bake/terrain.db", "output database path")
		minX       = flag.Int("min-x", -4, "region west edge, in chunks")
		minY       = flag.Int("min-y", -4, "region south edge, in chunks")
		maxX       = flag.Int("max-x", 4, "region east edge, in chunks")
		maxY       = flag.Int("max-y", 4, "region north edge, in chunks")
		workers    = flag.Int("workers", runtime.NumCPU(), "parallel chunk builders")
		previewOut   = flag.String("preview", "", "also write a region preview PNG here (optional)")
		previewRes   = flag.Int("preview-samples", 8, "preview samples per chunk axis")
		previewWidth = flag.Int("preview-width", 0, "rescale the preview to this width (0 keeps native resolution)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bake] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if *seed != 0 {
		cfg.Terrain.Seed = *seed
	}
	if *minX > *maxX || *minY > *maxY {
		logger.Fatalf("empty region (%d,%d)..(%d,%d)", *minX, *minY, *maxX, *maxY)
	}
	if *workers < 1 {
		*workers = 1
	}

	tc := cfg.Terrain
	sampler := world.NewHeightSampler(noise.NewField(tc.Seed), tc)
	colors := world.NewColorClassifier(sampler, tc)
	builder := world.NewMeshBuilder(sampler, colors, tc, logger)
	scatter := world.NewFeatureScatter(sampler, tc)

	db, err := store.Open(*out)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}
	defer db.Close()

	start := time.Now()
	total := (*maxX - *minX + 1) * (*maxY - *minY + 1)

	coords := make(chan world.ChunkCoord)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		defer close(coords)
		for y := *minY; y <= *maxY; y++ {
			for x := *minX; x <= *maxX; x++ {
				select {
				case coords <- world.ChunkCoord{X: x, Y: y}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		return nil
	})
	for i := 0; i < *workers; i++ {
		g.Go(func() error {
			for coord := range coords {
				chunk := builder.Build(coord)
				if tc.GenerateFeatures {
					chunk.Features = scatter.Scatter(coord)
				}
				if err := db.Put(chunk, tc.Seed); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatalf("bake: %v", err)
	}
	logger.Printf("baked %d chunks (seed %d) into %s in %s",
		total, tc.Seed, *out, time.Since(start).Round(time.Millisecond))

	if *previewOut != "" {
		img, err := preview.Render(sampler, colors, tc,
			world.ChunkCoord{X: *minX, Y: *minY},
			world.ChunkCoord{X: *maxX, Y: *maxY}, *previewRes)
		if err != nil {
			logger.Fatalf("render preview: %v", err)
		}
		if *previewWidth > 0 {
			img = preview.Scale(img, *previewWidth)
		}
		if err := preview.Save(*previewOut, img); err != nil {
			logger.Fatalf("save preview: %v", err)
		}
		logger.Printf("preview written to %s", *previewOut)
	}
}
