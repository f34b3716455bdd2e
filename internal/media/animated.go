package media

import (
	"context"
	"regexp"
	"strings"

	"github.com/onnwee/redpull/internal/redditapi"
)

// animatedRule maps a looping-image host to its mp4 rendition.
type animatedRule struct {
	name  string
	toMP4 func(p *redditapi.Post, ext string) string
}

var (
	giphyMediaRe = regexp.MustCompile(`/media/([A-Za-z0-9]+)`)
	giphyGifsRe  = regexp.MustCompile(`/gifs/(?:[^/]*-)?([A-Za-z0-9]+)/?$`)
)

var animatedRules = []animatedRule{
	{"preview_mp4", previewMP4},
	{"imgur", imgurMP4},
	{"gfycat", gfycatMP4},
	{"giphy", giphyMP4},
	{"extension", extensionMP4},
}

func (c *Classifier) animated(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	ext := pathExt(p.URL)
	for _, r := range animatedRules {
		if src := r.toMP4(p, ext); src != "" {
			return single(p, KindGIF, src), true
		}
	}
	return nil, false
}

func isGIFExt(ext string) bool { return ext == ".gif" || ext == ".gifv" }

func previewMP4(p *redditapi.Post, ext string) string {
	if !isGIFExt(ext) || p.Preview == nil {
		return ""
	}
	for _, img := range p.Preview.Images {
		if img.Variants.MP4 != nil {
			if u := unescape(img.Variants.MP4.Source.URL); u != "" {
				return u
			}
		}
	}
	return ""
}

func imgurMP4(p *redditapi.Post, ext string) string {
	u := parse(p.URL)
	if u == nil || !hostIs(u.Host, "imgur.com") || !isGIFExt(ext) {
		return ""
	}
	id := strings.TrimSuffix(lastSegment(u.Path), ext)
	if id == "" {
		return ""
	}
	return "https://i.imgur.com/" + id + ".mp4"
}

func gfycatMP4(p *redditapi.Post, _ string) string {
	u := parse(p.URL)
	if u == nil || !hostIs(u.Host, "gfycat.com") {
		return ""
	}
	slug := lastSegment(u.Path)
	if i := strings.IndexAny(slug, "-."); i >= 0 {
		slug = slug[:i]
	}
	if slug == "" {
		return ""
	}
	return "https://giant.gfycat.com/" + slug + ".mp4"
}

func giphyMP4(p *redditapi.Post, _ string) string {
	u := parse(p.URL)
	if u == nil || !hostIs(u.Host, "giphy.com") {
		return ""
	}
	var id string
	if m := giphyMediaRe.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	} else if m := giphyGifsRe.FindStringSubmatch(u.Path); m != nil {
		id = m[1]
	}
	if id == "" {
		return ""
	}
	return "https://i.giphy.com/media/" + id + "/giphy.mp4"
}

func extensionMP4(p *redditapi.Post, ext string) string {
	if !isGIFExt(ext) {
		return ""
	}
	return replaceExt(p.URL, ".mp4")
}
