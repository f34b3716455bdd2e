package media

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/onnwee/redpull/internal/redditapi"
)

// provider builds an iframe URL for links to a known video host.
type provider struct {
	name  string
	embed func(u *url.URL, parent string) string
}

var (
	youtubeIDRe   = regexp.MustCompile(`^[A-Za-z0-9_-]{6,}$`)
	youtubePathRe = regexp.MustCompile(`^/(?:shorts|embed|live)/([A-Za-z0-9_-]{6,})`)
	vimeoRe       = regexp.MustCompile(`/(\d+)`)
	twitchClipRe  = regexp.MustCompile(`clip/([^/?]+)`)
	redtubeRe     = regexp.MustCompile(`^/(\d+)`)
	tweetRe       = regexp.MustCompile(`^/([A-Za-z0-9_]+)/status(?:es)?/(\d+)`)
)

var providers = []provider{
	{"youtube", youtubeEmbed},
	{"vimeo", vimeoEmbed},
	{"twitch", twitchEmbed},
	{"streamable", streamableEmbed},
	{"pornhub", pornhubEmbed},
	{"redtube", redtubeEmbed},
	{"twitter", twitterEmbed},
}

func (c *Classifier) embed(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	if u := parse(unwrapOutbound(p.URL)); u != nil {
		for _, pr := range providers {
			if src := pr.embed(u, c.opts.EmbedParent); src != "" {
				return single(p, KindEmbed, src), true
			}
		}
	}
	if src := oembedSrc(p); src != "" {
		return single(p, KindEmbed, src), true
	}
	return nil, false
}

func youtubeEmbed(u *url.URL, _ string) string {
	var id string
	switch {
	case hostIs(u.Host, "youtu.be"):
		id = strings.Trim(u.Path, "/")
	case hostIs(u.Host, "youtube.com"), hostIs(u.Host, "youtube-nocookie.com"):
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if m := youtubePathRe.FindStringSubmatch(u.Path); m != nil {
			id = m[1]
		}
	default:
		return ""
	}
	if !youtubeIDRe.MatchString(id) {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

func vimeoEmbed(u *url.URL, _ string) string {
	if !hostIs(u.Host, "vimeo.com") {
		return ""
	}
	m := vimeoRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return "https://player.vimeo.com/video/" + m[1]
}

func twitchEmbed(u *url.URL, parent string) string {
	var slug string
	switch {
	case hostIs(u.Host, "clips.twitch.tv"):
		slug = strings.Trim(u.Path, "/")
		if i := strings.IndexByte(slug, '/'); i >= 0 {
			slug = slug[:i]
		}
	case hostIs(u.Host, "twitch.tv"):
		if m := twitchClipRe.FindStringSubmatch(u.Path); m != nil {
			slug = m[1]
		}
	}
	if slug == "" {
		return ""
	}
	q := url.Values{"clip": {slug}, "parent": {parent}}
	return "https://clips.twitch.tv/embed?" + q.Encode()
}

func streamableEmbed(u *url.URL, _ string) string {
	if !hostIs(u.Host, "streamable.com") {
		return ""
	}
	id := lastSegment(u.Path)
	if id == "" || id == "e" {
		return ""
	}
	return "https://streamable.com/e/" + id
}

func pornhubEmbed(u *url.URL, _ string) string {
	if !hostIs(u.Host, "pornhub.com") {
		return ""
	}
	key := u.Query().Get("viewkey")
	if key == "" {
		return ""
	}
	return "https://www.pornhub.com/embed/" + url.PathEscape(key)
}

func redtubeEmbed(u *url.URL, _ string) string {
	if !hostIs(u.Host, "redtube.com") {
		return ""
	}
	if hostIs(u.Host, "embed.redtube.com") {
		if id := u.Query().Get("id"); id != "" {
			return "https://embed.redtube.com/?id=" + url.QueryEscape(id) + "&bgcolor=000000"
		}
		return ""
	}
	m := redtubeRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return "https://embed.redtube.com/?id=" + m[1] + "&bgcolor=000000"
}

func twitterEmbed(u *url.URL, _ string) string {
	if !hostIs(u.Host, "twitter.com") && !hostIs(u.Host, "x.com") {
		return ""
	}
	m := tweetRe.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	tweet := "https://twitter.com/" + m[1] + "/status/" + m[2]
	return "https://twitframe.com/show?url=" + url.QueryEscape(tweet)
}

// oembedSrc extracts an iframe src from the post's embed HTML.
func oembedSrc(p *redditapi.Post) string {
	var fragments []string
	for _, m := range []*redditapi.MediaBlock{p.SecureMedia, p.Media} {
		if m != nil && m.Oembed != nil {
			fragments = append(fragments, m.Oembed.HTML)
		}
	}
	if p.SecureMediaEmbed != nil {
		fragments = append(fragments, p.SecureMediaEmbed.Content)
	}
	for _, f := range fragments {
		if src := iframeSrc(f); src != "" {
			return src
		}
	}
	return ""
}

// iframeSrc returns the absolute src of the first iframe in fragment.
func iframeSrc(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if strings.Contains(fragment, "&lt;") {
		fragment = unescape(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, ok := doc.Find("iframe[src]").First().Attr("src")
	if !ok {
		return ""
	}
	u := parse(src)
	if u == nil || (u.Scheme != "https" && u.Scheme != "http") {
		return ""
	}
	return u.String()
}
