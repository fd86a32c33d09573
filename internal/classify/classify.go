package classify

import (
	"strings"

	"tweetpress/internal/archive"
	"tweetpress/internal/replygraph"
)

// retweetMarker prefixes the body of every repost record in the export
const retweetMarker = "RT @"

// Classify runs the first, graph-independent pass: every post gets a kind
// from its own fields alone. A body starting with the retweet marker is
// always a Retweet, even when reply linkage is present; otherwise having a
// reply target makes it a Reply; everything else is a Post. Must run before
// thread promotion.
func Classify(store *archive.Store) {
	for _, post := range store.All() {
		switch {
		case strings.HasPrefix(strings.TrimSpace(post.BodyText), retweetMarker):
			post.Kind = archive.KindRetweet
		case post.ReplyToID != "":
			post.Kind = archive.KindReply
		default:
			post.Kind = archive.KindPost
		}
	}
}

// PromoteThreads runs the second pass. A candidate chain is promoted when
// its root is itself a candidate whose pre-promotion kind is Post and the
// chain has more than one member; every member of the chain is then
// relabeled Thread. A lone self-reply with no continuation keeps its pass-1
// kind. Promotion is idempotent.
func PromoteThreads(store *archive.Store, g *replygraph.Graph) error {
	for _, post := range store.All() {
		if !post.IsThreadCandidate {
			continue
		}
		root, err := g.FindRoot(post.ID)
		if err != nil {
			return err
		}
		if root != post.ID {
			continue
		}
		if post.Kind != archive.KindPost && post.Kind != archive.KindThread {
			continue
		}
		chain, err := g.Sequence(root)
		if err != nil {
			return err
		}
		if len(chain) <= 1 {
			continue
		}
		for _, id := range chain {
			store.Get(id).Kind = archive.KindThread
		}
	}
	return nil
}
