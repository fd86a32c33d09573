package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetpress/internal/archive"
	"tweetpress/internal/metadata"
	"tweetpress/internal/render"
	"tweetpress/internal/resolve"
	"tweetpress/pkg/errors"
)

type stubProbe struct{}

func (stubProbe) Resolve(_ context.Context, url string) string { return url }

type stubFetcher struct{ assets map[string][]byte }

func (s stubFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if data, ok := s.assets[url]; ok {
		return data, nil
	}
	return nil, errors.NewAssetNotFound(url)
}

// fixedCompleter always answers the same two lines, standing in for a
// deterministic text-generation service.
type fixedCompleter struct{}

func (fixedCompleter) Complete(context.Context, string) (string, error) {
	return "Fixed Title\nfixed-slug", nil
}

func mustAdd(t *testing.T, store *archive.Store, raw string, p *archive.Post) {
	t.Helper()
	created, err := archive.ParseCreatedAt(raw)
	require.NoError(t, err)
	p.CreatedAt = created
	p.CreatedAtRaw = raw
	require.NoError(t, store.Add(p))
}

func threadArchive(t *testing.T) *archive.Store {
	t.Helper()
	store := archive.NewStore()
	mustAdd(t, store, "Sat Feb 01 10:00:00 +0000 2025", &archive.Post{
		ID: "A", AuthorID: "42", BodyText: "Hello",
	})
	mustAdd(t, store, "Sat Feb 01 10:05:00 +0000 2025", &archive.Post{
		ID: "B", AuthorID: "42", BodyText: "@alice world",
		ReplyToID: "A", ReplyToAuthorID: "42", ReplyToAuthor: "alice",
	})
	return store
}

func testOptions(outDir string, completer metadata.Completer) Options {
	gen := metadata.NewGenerator(completer, metadata.DefaultPolicy(), time.Time{})
	return Options{
		LocalAuthorID:  "42",
		OutputDir:      outDir,
		RenderWorkers:  4,
		LLMConcurrency: 1,
		Resolver:       resolve.New(stubProbe{}),
		Renderer:       render.New(stubFetcher{}, nil, "https://x.com"),
		Generator:      gen,
	}
}

func TestRunMergesSelfReplyChainIntoThread(t *testing.T) {
	outDir := t.TempDir()
	store := threadArchive(t)

	counters, err := Run(context.Background(), store, testOptions(outDir, nil))
	require.NoError(t, err)

	assert.Equal(t, 2, counters.ByKind[archive.KindThread])
	assert.Equal(t, 1, counters.Written)

	// One thread document, members not emitted separately
	doc := filepath.Join(outDir, "thread", "202502011000.md")
	data, err := os.ReadFile(doc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hello\n\nworld")
	assert.Contains(t, string(data), "is_thread: true")

	entries, err := os.ReadDir(filepath.Join(outDir, "thread"))
	require.NoError(t, err)
	assert.Len(t, entries, 2) // _index.md and the document

	_, err = os.Stat(filepath.Join(outDir, "post"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCreatesSectionIndexes(t *testing.T) {
	outDir := t.TempDir()
	store := archive.NewStore()
	mustAdd(t, store, "Sat Feb 01 10:00:00 +0000 2025", &archive.Post{
		ID: "A", AuthorID: "42", BodyText: "plain post",
	})

	_, err := Run(context.Background(), store, testOptions(outDir, nil))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, "post", "_index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Post")
}

func TestRunCountsMalformedReplies(t *testing.T) {
	outDir := t.TempDir()
	store := archive.NewStore()
	mustAdd(t, store, "Sat Feb 01 10:00:00 +0000 2025", &archive.Post{
		ID: "A", AuthorID: "42", BodyText: "parent",
	})
	// Reply with linkage to a foreign author but no screen name recorded
	mustAdd(t, store, "Sat Feb 01 10:05:00 +0000 2025", &archive.Post{
		ID: "B", AuthorID: "42", BodyText: "@ghost hello",
		ReplyToID: "A", ReplyToAuthorID: "7",
	})

	counters, err := Run(context.Background(), store, testOptions(outDir, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, counters.MalformedReplies)
	assert.Equal(t, 1, counters.ByKind[archive.KindReply])
}

func TestRunKeepsBundleLayoutWhenMediaDownloadFails(t *testing.T) {
	outDir := t.TempDir()
	store := archive.NewStore()
	mustAdd(t, store, "Sat Feb 01 10:00:00 +0000 2025", &archive.Post{
		ID: "A", AuthorID: "42", BodyText: "look https://t.co/abc1",
		Media: []archive.EntityMedia{
			{ShortToken: "https://t.co/abc1", MediaURL: "https://pics.example.com/media/pic.jpg"},
		},
	})

	// Fetcher holds no assets, so the download falls back to a plain link,
	// but the post still owns a bundle folder.
	counters, err := Run(context.Background(), store, testOptions(outDir, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, counters.DownloadFailures)

	data, err := os.ReadFile(filepath.Join(outDir, "post", "202502011000", "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://pics.example.com/media/pic.jpg")

	_, err = os.Stat(filepath.Join(outDir, "post", "202502011000.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunIsIdempotent(t *testing.T) {
	// Fixed archive plus deterministic collaborators: two runs must produce
	// byte-identical output.
	run := func(dir string) map[string]string {
		store := threadArchive(t)
		mustAdd(t, store, "Sat Feb 01 11:00:00 +0000 2025", &archive.Post{
			ID: "C", AuthorID: "42", BodyText: "standalone note",
		})
		_, err := Run(context.Background(), store, testOptions(dir, fixedCompleter{}))
		require.NoError(t, err)

		files := make(map[string]string)
		require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files[rel] = string(data)
			return nil
		}))
		return files
	}

	first := run(t.TempDir())
	second := run(t.TempDir())
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestRunDuplicateDetectionHappensBeforePipeline(t *testing.T) {
	store := archive.NewStore()
	mustAdd(t, store, "Sat Feb 01 10:00:00 +0000 2025", &archive.Post{ID: "A", BodyText: "x"})
	err := store.Add(&archive.Post{ID: "A", BodyText: "y"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}
