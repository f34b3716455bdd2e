package media

import (
	"context"
	"regexp"
	"strings"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/redditapi"
)

var (
	redgifsWatchRe = regexp.MustCompile(`/watch/([A-Za-z0-9]+)`)
	redgifsIfrRe   = regexp.MustCompile(`/ifr/([A-Za-z0-9]+)`)
	redgifsTailRe  = regexp.MustCompile(`/([A-Za-z0-9]+)$`)
)

func (c *Classifier) redgifs(ctx context.Context, p *redditapi.Post) (*Resolution, bool) {
	if c.opts.Slugs == nil {
		return nil, false
	}
	slug := redgifsSlug(p)
	if slug == "" {
		return nil, false
	}
	src, err := c.opts.Slugs.ResolveSlug(ctx, slug)
	if err != nil || src == "" {
		logger.FromContext(ctx).Debug("redgifs slug unresolved", "component", "media", "slug", slug, "error", err)
		return nil, false
	}
	return single(p, KindGIF, src), true
}

// redgifsSlug finds the redgifs id for p, or "".
func redgifsSlug(p *redditapi.Post) string {
	for _, m := range []*redditapi.MediaBlock{p.SecureMedia, p.Media} {
		if m != nil && m.Redgifs != nil && m.Redgifs.GifID != "" {
			return strings.ToLower(m.Redgifs.GifID)
		}
	}
	if slug := slugFromURL(unwrapOutbound(p.URL)); slug != "" {
		return slug
	}
	for _, m := range []*redditapi.MediaBlock{p.SecureMedia, p.Media} {
		if m != nil && m.Oembed != nil && strings.EqualFold(m.Oembed.ProviderName, "redgifs") {
			if slug := slugFromURL(iframeSrc(m.Oembed.HTML)); slug != "" {
				return slug
			}
		}
	}
	return ""
}

func slugFromURL(raw string) string {
	u := parse(raw)
	if u == nil || !hostIs(u.Host, "redgifs.com") {
		return ""
	}
	path := strings.TrimRight(u.Path, "/")
	for _, re := range []*regexp.Regexp{redgifsWatchRe, redgifsIfrRe, redgifsTailRe} {
		if m := re.FindStringSubmatch(path); m != nil {
			return strings.ToLower(m[1])
		}
	}
	return ""
}

// unwrapOutbound returns the destination of an out.reddit.com redirect link.
func unwrapOutbound(raw string) string {
	u := parse(raw)
	if u == nil || !hostIs(u.Host, "out.reddit.com") {
		return raw
	}
	if dest := u.Query().Get("url"); dest != "" {
		return dest
	}
	return raw
}
