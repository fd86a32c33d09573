package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweetpress/pkg/errors"
)

const sampleExport = `[
  {"tweet": {
    "id_str": "100",
    "user_id_str": "42",
    "full_text": "Hello world https://t.co/abc",
    "created_at": "Sat Feb 01 09:30:00 +0000 2025",
    "entities": {
      "urls": [{"url": "https://t.co/abc", "expanded_url": "https://example.com/a"}]
    }
  }},
  {"tweet": {
    "id_str": "101",
    "user_id_str": "42",
    "full_text": "@someone a reply",
    "created_at": "Sat Feb 01 09:35:00 +0000 2025",
    "in_reply_to_status_id_str": "100",
    "in_reply_to_user_id": "42",
    "in_reply_to_screen_name": "someone",
    "entities": {}
  }}
]`

func TestLoad(t *testing.T) {
	store, err := Load(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	first := store.Get("100")
	require.NotNil(t, first)
	assert.Equal(t, "42", first.AuthorID)
	assert.Equal(t, "Hello world https://t.co/abc", first.BodyText)
	assert.Equal(t, "Sat Feb 01 09:30:00 +0000 2025", first.CreatedAtRaw)
	require.Len(t, first.Links, 1)
	assert.Equal(t, "https://t.co/abc", first.Links[0].ShortToken)
	assert.Equal(t, "https://example.com/a", first.Links[0].ExpandedURL)

	second := store.Get("101")
	require.NotNil(t, second)
	assert.Equal(t, "100", second.ReplyToID)
	assert.Equal(t, "42", second.ReplyToAuthorID)
	assert.Equal(t, "someone", second.ReplyToAuthor)
}

func TestLoadDuplicateID(t *testing.T) {
	dup := `[
	  {"tweet": {"id_str": "100", "full_text": "a", "created_at": "Sat Feb 01 09:30:00 +0000 2025"}},
	  {"tweet": {"id_str": "100", "full_text": "b", "created_at": "Sat Feb 01 09:31:00 +0000 2025"}}
	]`
	_, err := Load(strings.NewReader(dup))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeStructural))
	assert.True(t, errors.IsFatal(err))
}

func TestParseCreatedAt(t *testing.T) {
	got, err := ParseCreatedAt("Sat Feb 01 09:30:00 +0000 2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC), got)

	_, err = ParseCreatedAt("2025-02-01T09:30:00Z")
	assert.Error(t, err)
}

func TestStorageName(t *testing.T) {
	p := &Post{CreatedAt: time.Date(2025, 2, 1, 9, 30, 0, 0, time.UTC)}
	assert.Equal(t, "202502010930", p.StorageName())
}

func TestSortedByCreatedAt(t *testing.T) {
	store := NewStore()
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Add(&Post{ID: "c", CreatedAt: base.Add(2 * time.Minute)}))
	require.NoError(t, store.Add(&Post{ID: "a", CreatedAt: base}))
	require.NoError(t, store.Add(&Post{ID: "b", CreatedAt: base.Add(time.Minute)}))

	got := store.SortedByCreatedAt([]string{"c", "a", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestKindDirs(t *testing.T) {
	assert.Equal(t, "post", KindPost.Dir())
	assert.Equal(t, "reply", KindReply.Dir())
	assert.Equal(t, "retweet", KindRetweet.Dir())
	assert.Equal(t, "thread", KindThread.Dir())
}
