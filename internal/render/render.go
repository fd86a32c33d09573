package render

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"tweetpress/internal/archive"
	"tweetpress/internal/resolve"
	"tweetpress/internal/transport"
	"tweetpress/pkg/logger"
)

// mentionRE matches @handle tokens at the start of the text or after
// whitespace; a handle glued to a preceding character (emails, markdown
// links already built) is left alone.
var mentionRE = regexp.MustCompile(`(^|\s)@(\w+)`)

// truncatedRE matches bodies the platform silently truncated: anything
// ending in an ellipsis followed by one or more whitespace-separated links
// (bare or angle-bracketed, as left by token substitution).
var truncatedRE = regexp.MustCompile(`(?s)^(.*?)(?:\.\.\.|…)\s+((?:<?https?://\S+?>?(?:\s+|$))+)$`)

// trailingLinkRE pulls the individual links back out of the trailing group
var trailingLinkRE = regexp.MustCompile(`<?(https?://\S+?)>?(?:\s|$)`)

// bracketedURLRE matches an angle-bracketed URL for shortcode rewriting
var bracketedURLRE = regexp.MustCompile(`<([^<>\s]+)>`)

// Result is one rendered unit, ready for persistence
type Result struct {
	Body string
	// Assets maps synthesized media filenames to downloaded bytes
	Assets map[string][]byte
	// DownloadFailures counts media assets that fell back to plain links
	DownloadFailures int
	// MalformedReply is set when a Reply lacks the linkage fields needed
	// for its pointer
	MalformedReply bool
}

// Renderer turns a post's body and replacement map into publishable
// markdown. Rendering one post never touches another post's state.
type Renderer struct {
	fetcher     transport.Fetcher
	titler      transport.Titler // nil disables title lookup
	siteBaseURL string
	logger      *zap.Logger
}

// New builds a renderer. titler may be nil.
func New(fetcher transport.Fetcher, titler transport.Titler, siteBaseURL string) *Renderer {
	return &Renderer{
		fetcher:     fetcher,
		titler:      titler,
		siteBaseURL: strings.TrimRight(siteBaseURL, "/"),
		logger:      logger.Get(),
	}
}

// TweetShortcode renders the quoted-post embed directive
func TweetShortcode(user, id string) string {
	return fmt.Sprintf(`{{< tweet user="%s" id="%s" >}}`, user, id)
}

// Render produces the publishable document body for one post. Substitution
// order per token occurrence: media embeds (with plain-link fallback when
// the download fails), quoted-post shortcodes, angle-bracketed external
// links; then truncation recovery, YouTube shortcodes, and mention links
// over the whole text.
func (r *Renderer) Render(ctx context.Context, post *archive.Post) *Result {
	res := &Result{Assets: make(map[string][]byte)}
	body := "\n" + post.BodyText + "\n"

	if post.Kind == archive.KindReply {
		body, res.MalformedReply = r.replyPointer(post, body)
	}

	// Longest tokens substitute first so a token that is a prefix of another
	// never clobbers the longer one's occurrences.
	tokens := make([]string, 0, len(post.Replacements))
	for token := range post.Replacements {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})

	for _, token := range tokens {
		rep := post.Replacements[token]
		switch {
		case rep.IsMedia():
			data, err := r.fetcher.Fetch(ctx, rep.ExpandedURL)
			if err != nil {
				res.DownloadFailures++
				r.logger.Warn("media download failed, falling back to link",
					zap.String("post", post.ID),
					zap.String("url", rep.ExpandedURL),
					zap.Error(err))
				body = strings.ReplaceAll(body, token, rep.ExpandedURL)
				continue
			}
			res.Assets[rep.MediaFilename] = data
			embed := fmt.Sprintf("\n\n![%s](%s)", rep.AltText, rep.MediaFilename)
			body = strings.ReplaceAll(body, token, embed)
		default:
			if status, ok := resolve.ParseStatusURL(rep.ExpandedURL); ok {
				body = strings.ReplaceAll(body, token, TweetShortcode(status.User, status.ID))
				continue
			}
			body = strings.ReplaceAll(body, token, "<"+rep.ExpandedURL+">")
		}
	}

	body = r.recoverTruncated(ctx, body)
	body = youtubeShortcodes(body)
	body = r.linkMentions(body)

	res.Body = body
	return res
}

// replyPointer replaces the reply's leading mention with a quoted-post
// shortcode for the post it answers. A reply without both linkage fields
// cannot be pointed anywhere; it is reported malformed and left untouched.
func (r *Renderer) replyPointer(post *archive.Post, body string) (string, bool) {
	if post.ReplyToID == "" || post.ReplyToAuthor == "" {
		return body, true
	}
	parts := strings.SplitN(strings.TrimSpace(body), " ", 2)
	if len(parts) != 2 || !strings.HasPrefix(parts[0], "@") {
		return body, true
	}
	return TweetShortcode(post.ReplyToAuthor, post.ReplyToID) + "\n\n" + parts[1], false
}

// recoverTruncated rewrites the truncated-with-trailing-link suffix: the
// first trailing link becomes a continue-reading pointer and any further
// trailing links become standalone lines.
func (r *Renderer) recoverTruncated(ctx context.Context, body string) string {
	m := truncatedRE.FindStringSubmatch(strings.TrimRight(body, "\n"))
	if m == nil {
		return body
	}
	prefix, trailing := m[1], m[2]

	var links []string
	for _, lm := range trailingLinkRE.FindAllStringSubmatch(trailing, -1) {
		links = append(links, lm[1])
	}
	if len(links) == 0 {
		return body
	}

	label := "Continue reading"
	if r.titler != nil {
		if title := r.titler.PageTitle(ctx, links[0]); title != "" {
			label = "Continue reading: " + title
		}
	}

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("…\n\n")
	fmt.Fprintf(&b, "[%s](%s)\n", label, links[0])
	for _, l := range links[1:] {
		b.WriteString("\n<" + l + ">\n")
	}
	return b.String()
}

// linkMentions rewrites free-standing @handle tokens into profile links
func (r *Renderer) linkMentions(body string) string {
	return mentionRE.ReplaceAllString(body, "${1}[@${2}]("+r.siteBaseURL+"/${2})")
}

// youtubeShortcodes rewrites angle-bracketed YouTube URLs into embed
// shortcodes; every other bracketed URL stays as it is.
func youtubeShortcodes(body string) string {
	return bracketedURLRE.ReplaceAllStringFunc(body, func(match string) string {
		raw := bracketedURLRE.FindStringSubmatch(match)[1]
		id := youtubeVideoID(raw)
		if id == "" {
			return match
		}
		return "{{< youtube " + id + " >}}"
	})
}

// youtubeVideoID extracts the video id from watch, embed, and youtu.be URL
// forms. Empty string when the URL is not a YouTube video.
func youtubeVideoID(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	switch {
	case strings.HasSuffix(host, "youtube.com"):
		if u.Path == "/watch" {
			return u.Query().Get("v")
		}
		if strings.HasPrefix(u.Path, "/embed/") {
			return strings.TrimPrefix(u.Path, "/embed/")
		}
	case host == "youtu.be":
		return strings.TrimPrefix(u.Path, "/")
	}
	return ""
}
