package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetpress/internal/archive"
	"tweetpress/internal/replygraph"
)

func at(minute int) time.Time {
	return time.Date(2025, 2, 1, 10, minute, 0, 0, time.UTC)
}

func testStore(t *testing.T, posts ...*archive.Post) *archive.Store {
	t.Helper()
	store := archive.NewStore()
	for _, p := range posts {
		require.NoError(t, store.Add(p))
	}
	return store
}

func TestClassifyKinds(t *testing.T) {
	store := testStore(t,
		&archive.Post{ID: "1", BodyText: "just a post", CreatedAt: at(0)},
		&archive.Post{ID: "2", BodyText: "RT @someone: cool", CreatedAt: at(1)},
		&archive.Post{ID: "3", BodyText: "an answer", ReplyToID: "1", CreatedAt: at(2)},
	)

	Classify(store)

	assert.Equal(t, archive.KindPost, store.Get("1").Kind)
	assert.Equal(t, archive.KindRetweet, store.Get("2").Kind)
	assert.Equal(t, archive.KindReply, store.Get("3").Kind)
}

func TestRetweetMarkerWinsOverReplyLinkage(t *testing.T) {
	// Classification is a pure function of body text and reply linkage;
	// the retweet marker takes precedence even when linkage is present.
	store := testStore(t,
		&archive.Post{ID: "1", BodyText: "parent", CreatedAt: at(0)},
		&archive.Post{ID: "2", BodyText: "RT @x: quoted", ReplyToID: "1", CreatedAt: at(1)},
	)

	Classify(store)
	assert.Equal(t, archive.KindRetweet, store.Get("2").Kind)
}

func TestMentionPrefixIsNotAReplySignal(t *testing.T) {
	// A body starting with @ but without reply linkage stays a Post: reply
	// detection is graph-derived only.
	store := testStore(t,
		&archive.Post{ID: "1", BodyText: "@someone nice take", CreatedAt: at(0)},
	)

	Classify(store)
	assert.Equal(t, archive.KindPost, store.Get("1").Kind)
}

func TestPromoteThreads(t *testing.T) {
	store := testStore(t,
		&archive.Post{ID: "a", BodyText: "one", CreatedAt: at(0)},
		&archive.Post{ID: "b", BodyText: "@me two", ReplyToID: "a", ReplyToAuthorID: "42", CreatedAt: at(5)},
		&archive.Post{ID: "c", BodyText: "@me three", ReplyToID: "b", ReplyToAuthorID: "42", CreatedAt: at(10)},
	)
	g, err := replygraph.Build(store, "42")
	require.NoError(t, err)

	Classify(store)
	require.NoError(t, PromoteThreads(store, g))

	assert.Equal(t, archive.KindThread, store.Get("a").Kind)
	assert.Equal(t, archive.KindThread, store.Get("b").Kind)
	assert.Equal(t, archive.KindThread, store.Get("c").Kind)
}

func TestPromoteIsIdempotent(t *testing.T) {
	store := testStore(t,
		&archive.Post{ID: "a", BodyText: "one", CreatedAt: at(0)},
		&archive.Post{ID: "b", BodyText: "two", ReplyToID: "a", ReplyToAuthorID: "42", CreatedAt: at(5)},
	)
	g, err := replygraph.Build(store, "42")
	require.NoError(t, err)

	Classify(store)
	require.NoError(t, PromoteThreads(store, g))
	require.NoError(t, PromoteThreads(store, g))

	assert.Equal(t, archive.KindThread, store.Get("a").Kind)
	assert.Equal(t, archive.KindThread, store.Get("b").Kind)
}

func TestNoPromotionForChainOfOne(t *testing.T) {
	// A lone candidate with no continuation keeps its pass-1 kind.
	store := testStore(t,
		&archive.Post{ID: "a", BodyText: "alone", CreatedAt: at(0)},
	)
	store.Get("a").IsThreadCandidate = true
	g, err := replygraph.Build(store, "42")
	require.NoError(t, err)

	Classify(store)
	require.NoError(t, PromoteThreads(store, g))
	assert.Equal(t, archive.KindPost, store.Get("a").Kind)
}

func TestNoPromotionWhenRootIsNotAPost(t *testing.T) {
	// Root classified Retweet pre-promotion: the chain is left alone.
	store := testStore(t,
		&archive.Post{ID: "a", BodyText: "RT @x: quoted", CreatedAt: at(0)},
		&archive.Post{ID: "b", BodyText: "follow-up", ReplyToID: "a", ReplyToAuthorID: "42", CreatedAt: at(5)},
	)
	g, err := replygraph.Build(store, "42")
	require.NoError(t, err)

	Classify(store)
	require.NoError(t, PromoteThreads(store, g))

	assert.Equal(t, archive.KindRetweet, store.Get("a").Kind)
	assert.Equal(t, archive.KindReply, store.Get("b").Kind)
}
