package redditapi

import (
	"encoding/json"
	"testing"
)

func TestPostGalleryAccessors(t *testing.T) {
	raw := `{
		"id": "g1", "url": "https://www.reddit.com/gallery/g1", "is_gallery": true,
		"gallery_data": {"items": [{"media_id": "m1"}, {"media_id": 5}, {"media_id": "m2"}]},
		"media_metadata": {
			"m1": {"status": "valid", "e": "Image", "m": "image/jpg", "s": {"u": "https://preview.redd.it/m1.jpg?a=1&amp;b=2", "x": 10, "y": 10}},
			"m2": "garbage"
		}
	}`
	var p Post
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !p.HasGalleryData() {
		t.Fatal("expected gallery data")
	}
	items := p.GalleryItems()
	if len(items) != 2 || items[0].MediaID != "m1" || items[1].MediaID != "m2" {
		t.Fatalf("GalleryItems = %+v", items)
	}
	md := p.MediaMetadata()
	if _, ok := md["m2"]; ok {
		t.Error("undecodable entry should be absent")
	}
	if md["m1"].S == nil || md["m1"].S.U == "" {
		t.Errorf("m1 entry = %+v", md["m1"])
	}
}

func TestPostLenientFields(t *testing.T) {
	raw := `{"id": "x", "url": "https://a.example/b.png", "media": "oops", "preview": 12, "is_gallery": "yes",
		"crosspost_parent_list": [{"id": "parent", "media": {"reddit_video": {"fallback_url": "https://v.redd.it/p/DASH_720.mp4"}}}, 7]}`
	var p Post
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Media != nil || p.Preview != nil || p.IsGallery {
		t.Errorf("mistyped fields should be zero: %+v", p)
	}
	if len(p.CrosspostParentList) != 1 || p.CrosspostParentList[0].Media.RedditVideo.FallbackURL == "" {
		t.Errorf("crosspost parents = %+v", p.CrosspostParentList)
	}
	if p.HasGalleryData() {
		t.Error("no gallery blocks expected")
	}
}

func TestMediaEntryLargest(t *testing.T) {
	e := MediaEntry{P: []MediaSize{{U: "small", X: 10, Y: 10}, {U: "big", X: 20, Y: 20}, {U: "big-later", X: 40, Y: 10}}}
	got, ok := e.Largest()
	if !ok || got.U != "big-later" {
		t.Fatalf("Largest = %+v, want the later of the equal-area entries", got)
	}
	if _, ok := (MediaEntry{}).Largest(); ok {
		t.Fatal("expected no rendition")
	}
}

func TestDecodeListingSkipsNonPosts(t *testing.T) {
	page, err := decodeListing([]byte(`{"data":{"after":"t3_z","children":[{"kind":"t1","data":{"id":"c"}},{"kind":"t3","data":{"id":"p"}},"bad"]}}`))
	if err != nil {
		t.Fatalf("decodeListing: %v", err)
	}
	if len(page.Posts) != 1 || page.Posts[0].ID != "p" {
		t.Fatalf("Posts = %+v", page.Posts)
	}
}
