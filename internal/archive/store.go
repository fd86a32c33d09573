package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"tweetpress/pkg/errors"
)

// Store is the in-memory post table, keyed by post id. Posts are created
// once at ingest and never removed.
type Store struct {
	posts map[string]*Post
	order []string // ids in ingest order
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{posts: make(map[string]*Post)}
}

// Add inserts a post. A duplicate id is a structural error: the archive is
// not trustworthy and the run must not start.
func (s *Store) Add(p *Post) error {
	if _, exists := s.posts[p.ID]; exists {
		return errors.NewDuplicatePostID(p.ID)
	}
	s.posts[p.ID] = p
	s.order = append(s.order, p.ID)
	return nil
}

// Get returns the post with the given id, or nil
func (s *Store) Get(id string) *Post {
	return s.posts[id]
}

// Has reports whether the id is present
func (s *Store) Has(id string) bool {
	_, ok := s.posts[id]
	return ok
}

// Len returns the number of posts
func (s *Store) Len() int {
	return len(s.posts)
}

// IDs returns every post id in ingest order
func (s *Store) IDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// All returns every post in ingest order
func (s *Store) All() []*Post {
	out := make([]*Post, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.posts[id])
	}
	return out
}

// SortedByCreatedAt returns the given ids reordered ascending by their
// posts' creation timestamps. Equal timestamps keep their incoming relative
// order.
func (s *Store) SortedByCreatedAt(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.SliceStable(out, func(i, j int) bool {
		return s.posts[out[i]].CreatedAt.Before(s.posts[out[j]].CreatedAt)
	})
	return out
}

// Archive export wire format: a JSON array of {"tweet": {...}} records.

type exportRecord struct {
	Tweet exportTweet `json:"tweet"`
}

type exportTweet struct {
	IDStr                string         `json:"id_str"`
	UserIDStr            string         `json:"user_id_str"`
	FullText             string         `json:"full_text"`
	CreatedAt            string         `json:"created_at"`
	InReplyToStatusIDStr string         `json:"in_reply_to_status_id_str"`
	InReplyToUserID      string         `json:"in_reply_to_user_id"`
	InReplyToScreenName  string         `json:"in_reply_to_screen_name"`
	Entities             exportEntities `json:"entities"`
}

type exportEntities struct {
	URLs  []exportURL   `json:"urls"`
	Media []exportMedia `json:"media"`
}

type exportURL struct {
	URL         string `json:"url"`
	ExpandedURL string `json:"expanded_url"`
}

type exportMedia struct {
	URL           string `json:"url"`
	MediaURLHTTPS string `json:"media_url_https"`
}

// Load reads a full archive export from r into a new store. The whole
// archive is materialized up front; a duplicate id or a count mismatch
// aborts before the pipeline starts.
func Load(r io.Reader) (*Store, error) {
	var records []exportRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	store := NewStore()
	for _, rec := range records {
		post, err := rec.Tweet.toPost()
		if err != nil {
			return nil, err
		}
		if err := store.Add(post); err != nil {
			return nil, err
		}
	}

	if store.Len() != len(records) {
		return nil, errors.NewIngestCountMismatch(len(records), store.Len())
	}
	return store, nil
}

// LoadFile reads an archive export from disk
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (t exportTweet) toPost() (*Post, error) {
	createdAt, err := ParseCreatedAt(t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("post %s: bad created_at %q: %w", t.IDStr, t.CreatedAt, err)
	}

	post := &Post{
		ID:              t.IDStr,
		AuthorID:        t.UserIDStr,
		CreatedAt:       createdAt,
		CreatedAtRaw:    t.CreatedAt,
		BodyText:        t.FullText,
		ReplyToID:       t.InReplyToStatusIDStr,
		ReplyToAuthorID: t.InReplyToUserID,
		ReplyToAuthor:   t.InReplyToScreenName,
	}
	for _, u := range t.Entities.URLs {
		post.Links = append(post.Links, EntityLink{ShortToken: u.URL, ExpandedURL: u.ExpandedURL})
	}
	for _, m := range t.Entities.Media {
		post.Media = append(post.Media, EntityMedia{ShortToken: m.URL, MediaURL: m.MediaURLHTTPS})
	}
	return post, nil
}
