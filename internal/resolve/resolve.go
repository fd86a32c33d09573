package resolve

import (
	"context"
	"net/url"
	"path"
	"regexp"

	"go.uber.org/zap"

	"tweetpress/internal/archive"
	"tweetpress/internal/transport"
	"tweetpress/pkg/logger"
)

// shortLinkRE matches the platform's short-link lexical form embedded in
// post bodies.
var shortLinkRE = regexp.MustCompile(`https?://t\.co/\w+`)

// statusRE matches the canonical status-post URL shape
// {host}/{user}/status/{id}, with optional query parameters.
var statusRE = regexp.MustCompile(`^https?://(?:x\.com|twitter\.com)/([^/]+)/status/([^/?]+)(?:\?.*)?$`)

// firstPathSegmentRE pulls the asset id out of a short link
var firstPathSegmentRE = regexp.MustCompile(`https?://[^/]+/([^/]+)`)

// ShortLinks extracts every short-link token from body text, in order of
// occurrence.
func ShortLinks(text string) []string {
	return shortLinkRE.FindAllString(text, -1)
}

// StatusURL holds the parts of a quoted-post URL
type StatusURL struct {
	User string
	ID   string
}

// ParseStatusURL reports whether the expansion has the canonical status-post
// shape, and the {user, id} it carries if so.
func ParseStatusURL(expanded string) (StatusURL, bool) {
	m := statusRE.FindStringSubmatch(expanded)
	if m == nil {
		return StatusURL{}, false
	}
	return StatusURL{User: m[1], ID: m[2]}, true
}

// MediaFilename synthesizes the deterministic local filename for a media
// asset: the asset id embedded in the short link plus the media URL's path
// extension.
func MediaFilename(shortToken, mediaURL string) string {
	m := firstPathSegmentRE.FindStringSubmatch(shortToken)
	if m == nil {
		return ""
	}
	id := m[1]
	ext := ""
	if u, err := url.Parse(mediaURL); err == nil {
		ext = path.Ext(u.Path)
	}
	return id + ext
}

// Resolver builds the per-post token→replacement map
type Resolver struct {
	probe  transport.Resolver
	logger *zap.Logger
}

// New returns a resolver that uses probe for tokens the entities don't
// cover
func New(probe transport.Resolver) *Resolver {
	return &Resolver{probe: probe, logger: logger.Get()}
}

// BuildReplacements resolves every short-link token in the post's body, in
// priority order: a stored entity link wins, then entity media (with a
// synthesized filename and empty alt text), and anything left is probed for
// its final destination. Probe failure leaves the token as its own
// expansion; that path never errors. The map is written exactly once per
// post.
func (r *Resolver) BuildReplacements(ctx context.Context, post *archive.Post) {
	links := make(map[string]string, len(post.Links))
	for _, l := range post.Links {
		links[l.ShortToken] = l.ExpandedURL
	}
	media := make(map[string]string, len(post.Media))
	for _, m := range post.Media {
		media[m.ShortToken] = m.MediaURL
	}

	replacements := make(map[string]archive.Replacement)
	for _, token := range ShortLinks(post.BodyText) {
		if _, done := replacements[token]; done {
			continue
		}
		switch {
		case links[token] != "":
			replacements[token] = archive.Replacement{ExpandedURL: links[token]}
		case media[token] != "":
			replacements[token] = archive.Replacement{
				ExpandedURL:   media[token],
				MediaFilename: MediaFilename(token, media[token]),
			}
		default:
			final := r.probe.Resolve(ctx, token)
			if final == token {
				r.logger.Debug("short link did not resolve, keeping as-is",
					zap.String("post", post.ID), zap.String("token", token))
			}
			replacements[token] = archive.Replacement{ExpandedURL: final}
		}
	}
	post.Replacements = replacements
}
