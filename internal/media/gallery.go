package media

import (
	"context"
	"strings"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/redditapi"
)

var mimeExt = map[string]string{
	"image/jpg":  "jpg",
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// gallery claims posts carrying both gallery blocks. Without them only a
// successful proxy recovery claims the post; otherwise later rules run.
func (c *Classifier) gallery(ctx context.Context, p *redditapi.Post) (*Resolution, bool) {
	if !p.IsGallery {
		return nil, false
	}
	if !p.HasGalleryData() {
		if items := c.recoverGallery(ctx, p); len(items) > 0 {
			return &Resolution{Items: items, Gallery: true}, true
		}
		return nil, false
	}

	var items []Media
	md := p.MediaMetadata()
	for _, gi := range p.GalleryItems() {
		entry, ok := md[gi.MediaID]
		if !ok {
			continue
		}
		if src := galleryItemURL(gi.MediaID, entry); src != "" {
			items = append(items, item(p, KindImage, src))
		}
	}
	if len(items) == 0 {
		items = c.recoverGallery(ctx, p)
	}
	if len(items) == 0 {
		return single(p, KindText, ""), true
	}
	return &Resolution{Items: items, Gallery: true}, true
}

// galleryItemURL picks the best URL for one media_metadata entry.
func galleryItemURL(id string, e redditapi.MediaEntry) string {
	if e.S != nil {
		for _, u := range []string{e.S.U, e.S.GIF, e.S.MP4} {
			if u = unescape(u); u != "" {
				return u
			}
		}
	}
	if best, ok := e.Largest(); ok {
		if u := unescape(best.U); u != "" {
			return u
		}
	}
	if strings.EqualFold(e.Status, "failed") {
		return ""
	}
	ext, ok := mimeExt[strings.ToLower(e.M)]
	if !ok {
		ext = "jpg"
	}
	return "https://i.redd.it/" + id + "." + ext
}

func (c *Classifier) recoverGallery(ctx context.Context, p *redditapi.Post) []Media {
	if c.opts.Gallery == nil || p.URL == "" {
		return nil
	}
	urls, err := c.opts.Gallery.GalleryImages(ctx, p.URL)
	if err != nil {
		logger.FromContext(ctx).Debug("gallery recovery failed", "component", "media", "post_id", p.ID, "error", err)
		return nil
	}
	var items []Media
	for _, u := range urls {
		if u = unescape(u); u != "" {
			items = append(items, item(p, KindImage, u))
		}
	}
	return items
}
