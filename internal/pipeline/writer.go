package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"tweetpress/internal/archive"
	"tweetpress/pkg/logger"
)

// siteWriter lays out the output content tree: one subtree per kind, one
// document per storable post. Posts with media replacements get their own
// folder holding index.md plus whatever assets downloaded; everything else
// is a flat file. Each kind subtree lazily gets a default section index.
type siteWriter struct {
	root         string
	indexedKinds map[archive.Kind]bool
	logger       *zap.Logger
}

func newSiteWriter(root string) *siteWriter {
	return &siteWriter{
		root:         root,
		indexedKinds: make(map[archive.Kind]bool),
		logger:       logger.Get(),
	}
}

func (w *siteWriter) write(res *unitResult) error {
	kindDir := filepath.Join(w.root, res.post.Kind.Dir())
	if err := w.ensureSectionIndex(res.post.Kind, kindDir); err != nil {
		return err
	}

	front, err := res.frontmatter.Encode()
	if err != nil {
		return err
	}
	doc := front + res.rendered.Body

	// Bundling follows the post's replacements, not the download outcome; a
	// post whose asset failed to fetch still keeps its folder.
	target := filepath.Join(kindDir, res.frontmatter.Slug+".md")
	if res.post.HasMedia() {
		bundle := filepath.Join(kindDir, res.frontmatter.Slug)
		if err := os.MkdirAll(bundle, 0o755); err != nil {
			return fmt.Errorf("create bundle dir: %w", err)
		}
		for name, data := range res.rendered.Assets {
			if err := os.WriteFile(filepath.Join(bundle, name), data, 0o644); err != nil {
				return fmt.Errorf("write asset %s: %w", name, err)
			}
		}
		target = filepath.Join(bundle, "index.md")
	}

	if err := os.WriteFile(target, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	w.logger.Info("saved", zap.String("path", target))
	return nil
}

// ensureSectionIndex creates the kind directory and, once per run, a
// default _index.md if the section does not already have one.
func (w *siteWriter) ensureSectionIndex(kind archive.Kind, kindDir string) error {
	if w.indexedKinds[kind] {
		return nil
	}
	if err := os.MkdirAll(kindDir, 0o755); err != nil {
		return fmt.Errorf("create section dir: %w", err)
	}
	indexPath := filepath.Join(kindDir, "_index.md")
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		index := fmt.Sprintf("---\ntitle: %s\n---\n", kind.String())
		if err := os.WriteFile(indexPath, []byte(index), 0o644); err != nil {
			return fmt.Errorf("write section index: %w", err)
		}
	}
	w.indexedKinds[kind] = true
	return nil
}
