package thread

import (
	"regexp"
	"strings"

	"tweetpress/internal/archive"
	"tweetpress/internal/replygraph"
	"tweetpress/pkg/errors"
)

// leadingMentionRE matches the reply mention the platform prepends to a
// continuation post's body.
var leadingMentionRE = regexp.MustCompile(`^@\w+\s+`)

// MergeReplacements combines two token→replacement maps. A token present in
// both with differing sub-fields means the archive recorded two different
// expansions for the same short link, which cannot be reconciled: the run
// aborts rather than guess.
func MergeReplacements(a, b map[string]archive.Replacement) (map[string]archive.Replacement, error) {
	merged := make(map[string]archive.Replacement, len(a)+len(b))
	for token, r := range a {
		merged[token] = r
	}
	for token, rb := range b {
		ra, ok := merged[token]
		if !ok {
			merged[token] = rb
			continue
		}
		if ra.ExpandedURL != rb.ExpandedURL {
			return nil, errors.NewReplacementConflict(token, "expanded url")
		}
		if ra.MediaFilename != rb.MediaFilename {
			return nil, errors.NewReplacementConflict(token, "media filename")
		}
		if ra.AltText != rb.AltText {
			return nil, errors.NewReplacementConflict(token, "alt text")
		}
	}
	return merged, nil
}

// Reconstruct rewrites every thread root in place: the ordered chain's body
// texts are joined with a blank line and the members' replacement maps are
// merged left to right. Non-root members are suppressed from independent
// output; their ids are returned. Each root is rewritten exactly once, and
// this runs synchronously before any per-post fan-out.
func Reconstruct(store *archive.Store, g *replygraph.Graph) (suppressed map[string]bool, err error) {
	suppressed = make(map[string]bool)
	for _, post := range store.All() {
		if post.Kind != archive.KindThread {
			continue
		}
		root, err := g.FindRoot(post.ID)
		if err != nil {
			return nil, err
		}
		if root != post.ID {
			suppressed[post.ID] = true
			continue
		}

		chain, err := g.Sequence(root)
		if err != nil {
			return nil, err
		}

		segments := make([]string, 0, len(chain))
		merged := map[string]archive.Replacement{}
		for i, id := range chain {
			member := store.Get(id)
			body := member.BodyText
			if i > 0 {
				// Continuations carry a leading mention pointing back into
				// the same conversation; inside the merged thread it is
				// redundant.
				body = leadingMentionRE.ReplaceAllString(body, "")
			}
			segments = append(segments, body)
			merged, err = MergeReplacements(merged, member.Replacements)
			if err != nil {
				return nil, err
			}
		}
		post.BodyText = strings.Join(segments, "\n\n")
		post.Replacements = merged
	}
	return suppressed, nil
}
