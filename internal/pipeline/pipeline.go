package pipeline

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"tweetpress/internal/archive"
	"tweetpress/internal/classify"
	"tweetpress/internal/metadata"
	"tweetpress/internal/render"
	"tweetpress/internal/replygraph"
	"tweetpress/internal/resolve"
	"tweetpress/internal/thread"
	"tweetpress/pkg/logger"
)

// Counters is the run's aggregate report. Per-unit counts are collected
// from the fan-out results and summed afterwards; nothing is mutated across
// goroutines.
type Counters struct {
	ByKind           map[archive.Kind]int
	MalformedReplies int
	DownloadFailures int
	MetadataFailures int
	Written          int
}

// Options wires the pipeline's collaborators and tuning
type Options struct {
	LocalAuthorID string
	OutputDir     string
	RenderWorkers int
	// LLMConcurrency separately caps in-flight text-generation calls,
	// independent of render parallelism
	LLMConcurrency int
	Resolver       *resolve.Resolver
	Renderer       *render.Renderer
	Generator      *metadata.Generator
}

// unitResult carries one storable post's rendered document and its local
// failure counts back to the aggregator.
type unitResult struct {
	post           *archive.Post
	frontmatter    metadata.Frontmatter
	rendered       *render.Result
	metadataFailed bool
}

// Run executes the pipeline over an ingested store. Graph construction,
// classification, promotion, resolution, and thread reconstruction run
// sequentially; they write the fields the concurrent stage reads. Per-post
// rendering and metadata generation then fan out, and results are persisted
// in ingest order and counted.
func Run(ctx context.Context, store *archive.Store, opts Options) (*Counters, error) {
	log := logger.Get()

	g, err := replygraph.Build(store, opts.LocalAuthorID)
	if err != nil {
		return nil, err
	}
	classify.Classify(store)
	if err := classify.PromoteThreads(store, g); err != nil {
		return nil, err
	}
	log.Info("classified archive", zap.Int("posts", store.Len()))

	for _, post := range store.All() {
		opts.Resolver.BuildReplacements(ctx, post)
	}

	suppressed, err := thread.Reconstruct(store, g)
	if err != nil {
		return nil, err
	}
	log.Info("reconstructed threads", zap.Int("suppressed_members", len(suppressed)))

	// Storable posts in ingest order. Thread members other than the root
	// are owned by their thread and skipped.
	var storable []*archive.Post
	for _, post := range store.All() {
		if suppressed[post.ID] {
			continue
		}
		storable = append(storable, post)
	}

	results := make([]*unitResult, len(storable))
	llmGate := semaphore.NewWeighted(int64(opts.LLMConcurrency))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.RenderWorkers)
	for i, post := range storable {
		i, post := i, post
		eg.Go(func() error {
			rendered := opts.Renderer.Render(egCtx, post)
			post.RenderedBody = rendered.Body

			if err := llmGate.Acquire(egCtx, 1); err != nil {
				return err
			}
			fm, serviceFailed := opts.Generator.Generate(egCtx, post)
			llmGate.Release(1)

			results[i] = &unitResult{
				post:           post,
				frontmatter:    fm,
				rendered:       rendered,
				metadataFailed: serviceFailed,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	counters := &Counters{ByKind: make(map[archive.Kind]int)}
	for _, post := range store.All() {
		counters.ByKind[post.Kind]++
	}

	writer := newSiteWriter(opts.OutputDir)
	for _, res := range results {
		if err := writer.write(res); err != nil {
			return nil, err
		}
		counters.Written++
		counters.DownloadFailures += res.rendered.DownloadFailures
		if res.rendered.MalformedReply {
			counters.MalformedReplies++
		}
		if res.metadataFailed {
			counters.MetadataFailures++
		}
	}

	report(log, counters)
	return counters, nil
}

func report(log *zap.Logger, c *Counters) {
	for _, kind := range archive.Kinds() {
		log.Info("kind summary",
			zap.String("kind", kind.String()),
			zap.Int("count", c.ByKind[kind]))
	}
	log.Info("run summary",
		zap.Int("written", c.Written),
		zap.Int("malformed_replies", c.MalformedReplies),
		zap.Int("download_failures", c.DownloadFailures),
		zap.Int("metadata_failures", c.MetadataFailures))
}
