package redditapi

import (
	"encoding/json"
	"sort"
)

// Post is a link submission as returned inside a listing. Optional fields that
// are missing or carry an unexpected JSON type are left at their zero value.
type Post struct {
	ID                  string
	Name                string
	Title               string
	URL                 string
	Subreddit           string
	Permalink           string
	Domain              string
	PostHint            string
	Selftext            string
	IsVideo             bool
	IsGallery           bool
	Over18              bool
	Media               *MediaBlock
	SecureMedia         *MediaBlock
	SecureMediaEmbed    *EmbedBlock
	Preview             *Preview
	CrosspostParentList []Post

	galleryData   json.RawMessage
	mediaMetadata json.RawMessage
}

// MediaBlock is the media / secure_media object.
type MediaBlock struct {
	Type        string       `json:"type"`
	RedditVideo *RedditVideo `json:"reddit_video"`
	Oembed      *Oembed      `json:"oembed"`
	Redgifs     *RedgifsRef  `json:"redgifs"`
}

// RedditVideo describes a video hosted on v.redd.it.
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	IsGIF       bool   `json:"is_gif"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Oembed is the provider description Reddit attaches to embeddable links.
type Oembed struct {
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	Type         string `json:"type"`
	Title        string `json:"title"`
	HTML         string `json:"html"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// RedgifsRef is present on some redgifs posts.
type RedgifsRef struct {
	GifID string `json:"gif_id"`
}

// EmbedBlock is the secure_media_embed object.
type EmbedBlock struct {
	Content        string `json:"content"`
	MediaDomainURL string `json:"media_domain_url"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

// Preview holds Reddit-generated preview renditions.
type Preview struct {
	Images             []PreviewImage `json:"images"`
	RedditVideoPreview *RedditVideo   `json:"reddit_video_preview"`
}

type PreviewImage struct {
	ID          string     `json:"id"`
	Source      ImageRef   `json:"source"`
	Resolutions []ImageRef `json:"resolutions"`
	Variants    Variants   `json:"variants"`
}

type Variants struct {
	MP4 *VariantSet `json:"mp4"`
	GIF *VariantSet `json:"gif"`
}

type VariantSet struct {
	Source      ImageRef   `json:"source"`
	Resolutions []ImageRef `json:"resolutions"`
}

type ImageRef struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GalleryItem is one entry of gallery_data.items.
type GalleryItem struct {
	MediaID string `json:"media_id"`
	Caption string `json:"caption"`
}

// MediaEntry is one media_metadata value.
type MediaEntry struct {
	Status string       `json:"status"`
	E      string       `json:"e"` // Image, AnimatedImage, RedditVideo
	M      string       `json:"m"` // mime type
	S      *MediaSource `json:"s"`
	P      []MediaSize  `json:"p"`
	ID     string       `json:"id"`
}

// MediaSource is the full-size rendition of a gallery item.
type MediaSource struct {
	U   string `json:"u"`
	GIF string `json:"gif"`
	MP4 string `json:"mp4"`
	X   int    `json:"x"`
	Y   int    `json:"y"`
}

// MediaSize is one downscaled rendition.
type MediaSize struct {
	U string `json:"u"`
	X int    `json:"x"`
	Y int    `json:"y"`
}

// UnmarshalJSON decodes each known field independently so one bad field never
// loses the rest of the post.
func (p *Post) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Post{}
	field(raw, "id", &p.ID)
	field(raw, "name", &p.Name)
	field(raw, "title", &p.Title)
	field(raw, "url", &p.URL)
	field(raw, "subreddit", &p.Subreddit)
	field(raw, "permalink", &p.Permalink)
	field(raw, "domain", &p.Domain)
	field(raw, "post_hint", &p.PostHint)
	field(raw, "selftext", &p.Selftext)
	field(raw, "is_video", &p.IsVideo)
	field(raw, "is_gallery", &p.IsGallery)
	field(raw, "over_18", &p.Over18)
	field(raw, "media", &p.Media)
	field(raw, "secure_media", &p.SecureMedia)
	field(raw, "secure_media_embed", &p.SecureMediaEmbed)
	field(raw, "preview", &p.Preview)
	if v, ok := raw["crosspost_parent_list"]; ok {
		var parents []json.RawMessage
		if json.Unmarshal(v, &parents) == nil {
			for _, pr := range parents {
				var parent Post
				if json.Unmarshal(pr, &parent) == nil {
					p.CrosspostParentList = append(p.CrosspostParentList, parent)
				}
			}
		}
	}
	p.galleryData = raw["gallery_data"]
	p.mediaMetadata = raw["media_metadata"]
	return nil
}

// field decodes raw[key] into dst, leaving dst untouched on any error.
func field[T any](raw map[string]json.RawMessage, key string, dst *T) {
	v, ok := raw[key]
	if !ok {
		return
	}
	var tmp T
	if json.Unmarshal(v, &tmp) == nil {
		*dst = tmp
	}
}

// MarshalJSON emits the listing field names, including the raw gallery blocks.
func (p Post) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID                  string          `json:"id,omitempty"`
		Name                string          `json:"name,omitempty"`
		Title               string          `json:"title,omitempty"`
		URL                 string          `json:"url,omitempty"`
		Subreddit           string          `json:"subreddit,omitempty"`
		Permalink           string          `json:"permalink,omitempty"`
		Domain              string          `json:"domain,omitempty"`
		PostHint            string          `json:"post_hint,omitempty"`
		Selftext            string          `json:"selftext,omitempty"`
		IsVideo             bool            `json:"is_video"`
		IsGallery           bool            `json:"is_gallery,omitempty"`
		Over18              bool            `json:"over_18"`
		Media               *MediaBlock     `json:"media,omitempty"`
		SecureMedia         *MediaBlock     `json:"secure_media,omitempty"`
		SecureMediaEmbed    *EmbedBlock     `json:"secure_media_embed,omitempty"`
		Preview             *Preview        `json:"preview,omitempty"`
		CrosspostParentList []Post          `json:"crosspost_parent_list,omitempty"`
		GalleryData         json.RawMessage `json:"gallery_data,omitempty"`
		MediaMetadata       json.RawMessage `json:"media_metadata,omitempty"`
	}
	return json.Marshal(wire{
		p.ID, p.Name, p.Title, p.URL, p.Subreddit, p.Permalink, p.Domain, p.PostHint, p.Selftext,
		p.IsVideo, p.IsGallery, p.Over18, p.Media, p.SecureMedia, p.SecureMediaEmbed, p.Preview,
		p.CrosspostParentList, p.galleryData, p.mediaMetadata,
	})
}

// SetGallery attaches gallery_data and media_metadata as raw JSON.
func (p *Post) SetGallery(galleryData, mediaMetadata json.RawMessage) {
	p.galleryData = galleryData
	p.mediaMetadata = mediaMetadata
}

// HasGalleryData reports whether both gallery blocks are present and non-null.
func (p *Post) HasGalleryData() bool {
	return present(p.galleryData) && present(p.mediaMetadata)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

// GalleryItems returns gallery_data.items in order. Items that fail to decode
// or lack a media_id are skipped.
func (p *Post) GalleryItems() []GalleryItem {
	var gd struct {
		Items []json.RawMessage `json:"items"`
	}
	if !present(p.galleryData) || json.Unmarshal(p.galleryData, &gd) != nil {
		return nil
	}
	items := make([]GalleryItem, 0, len(gd.Items))
	for _, raw := range gd.Items {
		var it GalleryItem
		if json.Unmarshal(raw, &it) == nil && it.MediaID != "" {
			items = append(items, it)
		}
	}
	return items
}

// MediaMetadata returns the decodable media_metadata entries keyed by media id.
func (p *Post) MediaMetadata() map[string]MediaEntry {
	var raw map[string]json.RawMessage
	if !present(p.mediaMetadata) || json.Unmarshal(p.mediaMetadata, &raw) != nil {
		return nil
	}
	out := make(map[string]MediaEntry, len(raw))
	for id, v := range raw {
		var e MediaEntry
		if json.Unmarshal(v, &e) == nil {
			out[id] = e
		}
	}
	return out
}

// Largest returns the rendition in P with the greatest area; ties go to the
// later entry.
func (e MediaEntry) Largest() (MediaSize, bool) {
	if len(e.P) == 0 {
		return MediaSize{}, false
	}
	sizes := append([]MediaSize(nil), e.P...)
	sort.SliceStable(sizes, func(i, j int) bool { return sizes[i].X*sizes[i].Y < sizes[j].X*sizes[j].Y })
	return sizes[len(sizes)-1], true
}

// Listing is the envelope returned by listing endpoints.
type Listing struct {
	Kind string `json:"kind"`
	Data *struct {
		After    *string           `json:"after"`
		Children []json.RawMessage `json:"children"`
	} `json:"data"`
}

// Thing wraps one listing child.
type Thing struct {
	Kind string `json:"kind"`
	Data Post   `json:"data"`
}

// Page is one page of posts and the cursor for the next one. An empty
// NextCursor means there are no more pages.
type Page struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"next_cursor,omitempty"`
}
