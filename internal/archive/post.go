package archive

import (
	"time"
)

// createdAtLayout is the fixed timestamp format used by archive exports,
// e.g. "Sat Feb 01 09:30:00 +0000 2025".
const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// Kind classifies a post after the pipeline's classification passes.
type Kind int

const (
	// KindPost is a standalone post
	KindPost Kind = iota
	// KindReply is a post answering another post
	KindReply
	// KindRetweet is a repost of someone else's post
	KindRetweet
	// KindThread is the root of a merged multi-post chain
	KindThread
)

// String returns the capitalized kind name used in summaries
func (k Kind) String() string {
	switch k {
	case KindReply:
		return "Reply"
	case KindRetweet:
		return "Retweet"
	case KindThread:
		return "Thread"
	default:
		return "Post"
	}
}

// Dir returns the lower-cased output subtree name for this kind
func (k Kind) Dir() string {
	switch k {
	case KindReply:
		return "reply"
	case KindRetweet:
		return "retweet"
	case KindThread:
		return "thread"
	default:
		return "post"
	}
}

// Kinds lists every kind in summary order
func Kinds() []Kind {
	return []Kind{KindPost, KindReply, KindThread, KindRetweet}
}

// EntityLink is a short-link token the platform recorded together with its
// expansion.
type EntityLink struct {
	ShortToken  string
	ExpandedURL string
}

// EntityMedia is a short-link token standing in for an uploaded media asset.
type EntityMedia struct {
	ShortToken string
	MediaURL   string
}

// Replacement is the resolved expansion for one short-link token. A
// non-empty MediaFilename marks a downloadable asset; otherwise the token is
// a pass-through link.
type Replacement struct {
	ExpandedURL   string
	MediaFilename string
	AltText       string
}

// IsMedia reports whether this replacement refers to a downloadable asset
func (r Replacement) IsMedia() bool {
	return r.MediaFilename != ""
}

// Post is one archive record. The input fields are immutable after ingest;
// the derived fields are each written exactly once, in pipeline order
// (graph, classify, resolve, render).
type Post struct {
	ID              string
	AuthorID        string
	CreatedAt       time.Time
	CreatedAtRaw    string // source-format timestamp, kept for fallback titles
	BodyText        string
	ReplyToID       string
	ReplyToAuthorID string
	ReplyToAuthor   string // screen name of the replied-to account
	Links           []EntityLink
	Media           []EntityMedia

	// Derived by the pipeline
	Kind              Kind
	IsThreadCandidate bool
	Replacements      map[string]Replacement
	RenderedBody      string
}

// StorageName is the timestamp-derived key a post's document is stored
// under: minute precision in UTC, e.g. "202502010930".
func (p *Post) StorageName() string {
	return p.CreatedAt.UTC().Format("200601021504")
}

// HasMedia reports whether any resolved replacement is a media asset
func (p *Post) HasMedia() bool {
	for _, r := range p.Replacements {
		if r.IsMedia() {
			return true
		}
	}
	return false
}

// ParseCreatedAt parses the archive's fixed timestamp format, normalized to
// UTC.
func ParseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(createdAtLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
