package fixtags

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"tweetpress/pkg/logger"
)

// Truncated retweets of other accounts leak into the published set looking
// like posts: their body ends in an ellipsis plus a status link to someone
// else's profile. This pass walks an existing output tree and demotes them
// to drafts, tagging them as retweets so templates can tell.

var (
	draftFalseRE = regexp.MustCompile(`(?m)^[ \t]*draft:[ \t]*false[ \t]*$`)
	isTweetRE    = regexp.MustCompile(`(?m)^[ \t]*is_tweet:[ \t]*true[ \t]*$`)
)

// Result reports what the pass touched
type Result struct {
	Examined int
	Altered  int
}

// Run processes every .md file under root. localHandle is the archive
// owner's screen name; links back to their own statuses mark legitimate
// self-threads and are left alone.
func Run(root, localHandle string) (*Result, error) {
	log := logger.Get()
	res := &Result{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		res.Examined++

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		content := string(data)
		if !shouldDemote(content, localHandle) {
			return nil
		}

		modified := draftFalseRE.ReplaceAllString(content, "draft: true")
		modified = isTweetRE.ReplaceAllString(modified, "is_tweet: true\nis_retweet: true")
		if modified == content {
			return nil
		}

		if err := os.WriteFile(path, []byte(modified), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Info("altered", zap.String("path", path))
		res.Altered++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// shouldDemote matches documents with a truncated trailing status link that
// does not point back at the local author, outside of threads.
func shouldDemote(content, localHandle string) bool {
	if !strings.Contains(content, "… <https://x.com/") {
		return false
	}
	if !strings.Contains(content, "is_thread: false") {
		return false
	}
	if localHandle != "" && strings.Contains(content, "… <https://x.com/"+localHandle) {
		return false
	}
	return true
}
