package replygraph

import (
	"tweetpress/internal/archive"
	"tweetpress/pkg/errors"
)

// Graph is the directed reply structure over post ids. The data is a
// forest: each post has at most one parent, and independent trees plus
// isolated singletons coexist. Parent lookup is O(1) via the child→parent
// table; children are kept in insertion order.
type Graph struct {
	store    *archive.Store
	parent   map[string]string   // child id → parent id
	children map[string][]string // parent id → child ids
}

// Build runs the single linear pass over the store. For every post whose
// reply target resolves inside the store, it records the parent→child edge.
// When the child is replying to the local author, both endpoints belong to a
// self-authored conversation and are flagged as thread candidates.
func Build(store *archive.Store, localAuthorID string) (*Graph, error) {
	g := &Graph{
		store:    store,
		parent:   make(map[string]string),
		children: make(map[string][]string),
	}

	for _, post := range store.All() {
		if post.ReplyToID == "" || !store.Has(post.ReplyToID) {
			continue
		}
		g.parent[post.ID] = post.ReplyToID
		g.children[post.ReplyToID] = append(g.children[post.ReplyToID], post.ID)

		if post.ReplyToAuthorID == localAuthorID {
			post.IsThreadCandidate = true
			store.Get(post.ReplyToID).IsThreadCandidate = true
		}
	}
	return g, nil
}

// Parent returns the id of the post this one replies to, if the edge exists
func (g *Graph) Parent(id string) (string, bool) {
	p, ok := g.parent[id]
	return p, ok
}

// Children returns the direct replies to the given post
func (g *Graph) Children(id string) []string {
	return g.children[id]
}

// FindRoot walks the single parent edge until a node has none. A revisited
// node means the reply data is cyclic, which the archive format does not
// allow; that is a structural error, not something to resolve silently.
func (g *Graph) FindRoot(id string) (string, error) {
	seen := map[string]bool{id: true}
	for {
		parent, ok := g.parent[id]
		if !ok {
			return id, nil
		}
		if seen[parent] {
			return "", errors.NewReplyCycle(parent)
		}
		seen[parent] = true
		id = parent
	}
}

// Sequence returns the ids of every post reachable from root via child
// edges, ordered strictly by creation timestamp ascending. Traversal order
// only establishes membership; the timestamp is the single source of truth
// for sequence order. Ties keep a stable but unspecified order.
func (g *Graph) Sequence(root string) ([]string, error) {
	var members []string
	seen := make(map[string]bool)
	stack := []string{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			// Reachable through two distinct chains: the forest assumption
			// is broken and sequencing would be ambiguous.
			return nil, errors.NewMultipleParents(id)
		}
		seen[id] = true
		members = append(members, id)
		kids := g.children[id]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return g.store.SortedByCreatedAt(members), nil
}
