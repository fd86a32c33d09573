package metadata

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"tweetpress/internal/archive"
	"tweetpress/pkg/errors"
	"tweetpress/pkg/logger"
)

const (
	minTitleLength = 3
	maxSlugLength  = 80
)

// slugDisallowedRE strips everything a filename must not carry
var slugDisallowedRE = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Frontmatter is the metadata block prepended to every rendered document
type Frontmatter struct {
	Title      string   `yaml:"title"`
	Draft      bool     `yaml:"draft"`
	Date       string   `yaml:"date"`
	Slug       string   `yaml:"slug"`
	Tags       []string `yaml:"tags"`
	IsTweet    bool     `yaml:"is_tweet"`
	IsThread   bool     `yaml:"is_thread"`
	SourceID   string   `yaml:"source_id"`
	DocumentID string   `yaml:"document_id"`
}

// Encode renders the YAML frontmatter block, fenced and followed by a blank
// line.
func (f Frontmatter) Encode() (string, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode frontmatter: %w", err)
	}
	return "---\n" + string(data) + "---\n", nil
}

// Generator produces a post's frontmatter, asking the text-generation
// service for a title and slug when one is configured and falling back
// deterministically when it is not, or when retries exhaust.
type Generator struct {
	completer Completer // nil means never configured
	policy    Policy
	sleep     Sleeper
	random    func() float64
	cutoff    time.Time // posts created before this are forced draft; zero disables
	logger    *zap.Logger
}

// NewGenerator builds a generator. completer may be nil; cutoff may be the
// zero time.
func NewGenerator(completer Completer, policy Policy, cutoff time.Time) *Generator {
	return &Generator{
		completer: completer,
		policy:    policy,
		cutoff:    cutoff,
		logger:    logger.Get(),
	}
}

// documentID derives the stable identifier tying a document back to its
// source post.
func documentID(post *archive.Post) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("tweetpress:post:"+post.ID)).String()
}

// Generate builds the frontmatter for one post. serviceFailed is true only
// when a configured service failed past its retry budget; the caller counts
// those.
func (g *Generator) Generate(ctx context.Context, post *archive.Post) (Frontmatter, bool) {
	fm := Frontmatter{
		Date:       post.CreatedAt.UTC().Format(time.RFC3339),
		Tags:       []string{"tweets"},
		IsTweet:    true,
		IsThread:   post.Kind == archive.KindThread,
		SourceID:   post.ID,
		DocumentID: documentID(post),
	}

	// Draft state outside the fallback case: forced for non-publishable
	// kinds and for posts predating the cutoff.
	forcedDraft := post.Kind != archive.KindPost && post.Kind != archive.KindThread
	if !g.cutoff.IsZero() && post.CreatedAt.Before(g.cutoff) {
		forcedDraft = true
	}

	title, slug, err := g.requestTitleAndSlug(ctx, post)
	if err != nil {
		g.fallback(&fm, post)
		if stderrors.Is(err, errors.ErrCompletionUnavailable) {
			return fm, false
		}
		g.logger.Warn("title generation failed, using fallback metadata",
			zap.String("post", post.ID), zap.Error(err))
		return fm, true
	}

	fm.Title = title
	fm.Slug = post.StorageName() + "-" + slug
	fm.Draft = forcedDraft
	return fm, false
}

// fallback fills the deterministic metadata: raw timestamp title, storage
// name slug, draft forced.
func (g *Generator) fallback(fm *Frontmatter, post *archive.Post) {
	fm.Title = post.CreatedAtRaw
	fm.Slug = post.StorageName()
	fm.Draft = true
}

// requestTitleAndSlug asks the service for a two-line response and
// sanitizes it, retrying per policy on any service or validation failure.
// The returned error reports how many attempts were actually made.
func (g *Generator) requestTitleAndSlug(ctx context.Context, post *archive.Post) (string, string, error) {
	if g.completer == nil {
		return "", "", errors.ErrCompletionUnavailable
	}
	prompt := buildPrompt(post.RenderedBody)

	var (
		title, slug string
		attempts    int
	)
	err := Do(ctx, g.policy, g.sleep, g.random, retryable, func() error {
		attempts++
		text, err := g.completer.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		t, s, err := parseTwoLineResponse(text)
		if err != nil {
			return err
		}
		title, slug = t, s
		return nil
	})
	if err != nil {
		return "", "", errors.NewCompletionFailed(attempts, err)
	}
	return title, slug, nil
}

// buildPrompt asks for exactly two lines: a title, then a filename
// candidate.
func buildPrompt(rendered string) string {
	return "Write a very short, clever, informative blog title for the post below " +
		"and return it on the first line.\n" +
		"On the second line, return a short valid file name the post can be saved under.\n" +
		"Return nothing else.\n\n" + rendered
}

// parseTwoLineResponse validates and sanitizes the service's answer. Any
// shape problem is reported as a malformed completion, which the retry
// policy treats as retryable.
func parseTwoLineResponse(text string) (title, slug string, err error) {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 2 {
		return "", "", errors.NewCompletionMalformed(fmt.Sprintf("expected 2 lines, got %d", len(lines)))
	}

	title = stripQuotes(lines[0])
	if len(title) < minTitleLength {
		return "", "", errors.NewCompletionMalformed("title too short")
	}

	slug = SanitizeSlug(lines[1])
	if len(slug) < minTitleLength {
		return "", "", errors.NewCompletionMalformed("slug too short")
	}
	return title, slug, nil
}

// SanitizeSlug turns a filename candidate into a safe slug: quotes and a
// trailing .md stripped, whitespace collapsed to dashes, disallowed
// filesystem characters removed, length capped.
func SanitizeSlug(candidate string) string {
	s := stripQuotes(candidate)
	s = strings.TrimSuffix(s, ".md")
	s = strings.Join(strings.Fields(s), "-")
	s = slugDisallowedRE.ReplaceAllString(s, "")
	s = strings.Trim(s, "-._")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
	}
	return s
}

func stripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// retryable reports whether another attempt may help. Service and
// validation failures are retryable; a cancelled context is not.
func retryable(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
