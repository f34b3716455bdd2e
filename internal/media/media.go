// Package media decides how a listing post should be displayed.
package media

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/tracing"
	"github.com/onnwee/redpull/internal/utils"
)

// Kind is how a media item is painted.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	// KindGIF is a muted looping video; SourceURL is always a video asset.
	KindGIF   Kind = "gif"
	KindEmbed Kind = "embed"
	// KindText has no SourceURL; the page shows the title and a link.
	KindText Kind = "text"
)

// Media is one displayable item.
type Media struct {
	Kind      Kind   `json:"kind"`
	SourceURL string `json:"source_url,omitempty"`
	PostID    string `json:"post_id"`
	Title     string `json:"title"`
	OriginURL string `json:"origin_url"`
}

// Resolution is the outcome of classifying a post. Gallery resolutions hold
// one or more image items sharing a post id.
type Resolution struct {
	Items   []Media `json:"items"`
	Gallery bool    `json:"gallery"`
	Rule    string  `json:"rule"`
}

// Kind returns the kind of the first item.
func (r *Resolution) Kind() Kind {
	if r == nil || len(r.Items) == 0 {
		return ""
	}
	return r.Items[0].Kind
}

// SlugResolver turns a short-form video slug into a playable mp4 URL.
type SlugResolver interface {
	ResolveSlug(ctx context.Context, slug string) (string, error)
}

// GalleryRecoverer lists image URLs for a gallery post Reddit no longer describes.
type GalleryRecoverer interface {
	GalleryImages(ctx context.Context, postURL string) ([]string, error)
}

// Options configures a Classifier. Collaborators are optional.
type Options struct {
	BlockTerms  []string // lower-cased
	EmbedParent string
	Slugs       SlugResolver
	Gallery     GalleryRecoverer
}

// Classifier applies an ordered rule table to posts.
type Classifier struct {
	opts  Options
	rules []rule
}

type rule struct {
	name string
	// apply returns ok=false when the rule does not match. A matching rule may
	// return a nil Resolution to filter the post out.
	apply func(ctx context.Context, p *redditapi.Post) (res *Resolution, ok bool)
}

// New builds a Classifier.
func New(opts Options) *Classifier {
	if opts.EmbedParent == "" {
		opts.EmbedParent = "localhost"
	}
	c := &Classifier{opts: opts}
	c.rules = []rule{
		{"blocked", c.blocked},
		{"gallery", c.gallery},
		{"direct_image", c.directImage},
		{"redgifs", c.redgifs},
		{"animated", c.animated},
		{"reddit_video", c.redditVideo},
		{"post_hint_image", c.postHintImage},
		{"embed", c.embed},
	}
	return c
}

// Classify returns how p should be shown, or nil when it is filtered by
// content policy. It never panics and always yields at least one item for
// unfiltered posts.
func (c *Classifier) Classify(ctx context.Context, p *redditapi.Post) (res *Resolution) {
	if p == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "media.Classify")
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("classifier panicked; falling back to text",
				"component", "media", "post_id", p.ID, "panic", fmt.Sprint(r))
			res = fallback(p)
		}
		if res != nil {
			span.SetAttributes(attribute.String("media.rule", res.Rule), attribute.String("media.kind", string(res.Kind())))
			metrics.Classifications.WithLabelValues(res.Rule, string(res.Kind())).Inc()
		} else {
			metrics.Classifications.WithLabelValues("blocked", "none").Inc()
		}
		span.End()
	}()

	for _, r := range c.rules {
		out, ok := r.apply(ctx, p)
		if !ok {
			continue
		}
		if out != nil {
			out.Rule = r.name
		}
		return out
	}
	return fallback(p)
}

func (c *Classifier) blocked(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	for _, s := range []string{p.Title, p.Selftext, p.URL} {
		if _, hit := utils.ContainsAnyFold(s, c.opts.BlockTerms); hit {
			return nil, true
		}
	}
	return nil, false
}

func single(p *redditapi.Post, kind Kind, src string) *Resolution {
	return &Resolution{Items: []Media{item(p, kind, src)}}
}

func item(p *redditapi.Post, kind Kind, src string) Media {
	return Media{Kind: kind, SourceURL: src, PostID: p.ID, Title: p.Title, OriginURL: p.URL}
}

func fallback(p *redditapi.Post) *Resolution {
	r := single(p, KindText, "")
	r.Rule = "fallback"
	return r
}

func (c *Classifier) directImage(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	switch pathExt(p.URL) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return single(p, KindImage, p.URL), true
	}
	return nil, false
}

func (c *Classifier) postHintImage(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	if p.PostHint == "image" && p.URL != "" {
		return single(p, KindImage, p.URL), true
	}
	return nil, false
}

func (c *Classifier) redditVideo(_ context.Context, p *redditapi.Post) (*Resolution, bool) {
	if src := videoFallback(p); src != "" {
		return single(p, KindVideo, src), true
	}
	for _, parent := range p.CrosspostParentList[:min(1, len(p.CrosspostParentList))] {
		if src := videoFallback(&parent); src != "" {
			return single(p, KindVideo, src), true
		}
	}
	return nil, false
}

func videoFallback(p *redditapi.Post) string {
	if !p.IsVideo {
		return ""
	}
	for _, m := range []*redditapi.MediaBlock{p.Media, p.SecureMedia} {
		if m != nil && m.RedditVideo != nil && m.RedditVideo.FallbackURL != "" {
			return m.RedditVideo.FallbackURL
		}
	}
	return ""
}
