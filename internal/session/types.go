package session

import (
	"context"

	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/media"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/target"
)

// Classifier turns a post into displayable media.
type Classifier interface {
	Classify(ctx context.Context, p *redditapi.Post) *media.Resolution
}

// Settings are the per-deployment knobs sessions read.
type Settings struct {
	ScrollThresholdPx float64
	ViewerActiveZone  float64
	ViewerKeyboard    bool
	DefaultMode       target.Mode
}

// SettingsFromConfig copies the session knobs out of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		ScrollThresholdPx: float64(cfg.ScrollThresholdPx),
		ViewerActiveZone:  cfg.ViewerActiveZone,
		ViewerKeyboard:    cfg.ViewerKeyboard,
		DefaultMode:       target.ParseMode(cfg.DefaultMode),
	}
}

// Filters select which tile kinds are shown. Filtered posts are still
// recorded as seen.
type Filters struct {
	Images bool `json:"images"`
	Videos bool `json:"videos"`
	Other  bool `json:"other"`
}

// DefaultFilters shows everything.
func DefaultFilters() Filters { return Filters{Images: true, Videos: true, Other: true} }

// Allows reports whether a resolution passes the filters.
func (f Filters) Allows(res *media.Resolution) bool {
	if res.Gallery {
		return f.Images
	}
	switch res.Kind() {
	case media.KindImage, media.KindGIF:
		return f.Images
	case media.KindVideo:
		return f.Videos
	default:
		return f.Other
	}
}

// Tile is one rendered post. Gallery tiles carry several items.
type Tile struct {
	ID         string        `json:"id"`
	Seq        int           `json:"seq"`
	PostID     string        `json:"post_id"`
	Kind       media.Kind    `json:"kind"`
	Gallery    bool          `json:"gallery"`
	Items      []media.Media `json:"items"`
	Title      string        `json:"title"`
	OriginURL  string        `json:"origin_url"`
	Subreddit  string        `json:"subreddit,omitempty"`
	Permalink  string        `json:"permalink,omitempty"`
	Generation uint64        `json:"generation"`
}

// Status explains what a Load or More call did.
type Status string

const (
	StatusOK Status = "ok"
	// StatusBusy: a fetch for the current generation is already in flight.
	StatusBusy Status = "busy"
	// StatusDone: the listing has no further pages.
	StatusDone Status = "done"
	// StatusIdle: nothing is loaded.
	StatusIdle Status = "idle"
	// StatusFar: the viewport is not near the bottom of the document.
	StatusFar Status = "far"
	// StatusStale: the session was reset while the fetch was in flight.
	StatusStale Status = "stale"
)

// Skipped counts posts that produced no tile.
type Skipped struct {
	Duplicate int `json:"duplicate"`
	Blocked   int `json:"blocked"`
	Filtered  int `json:"filtered"`
}

// Batch is the result of one page fetch.
type Batch struct {
	Status     Status         `json:"status"`
	Generation uint64         `json:"generation"`
	Target     *target.Target `json:"target,omitempty"`
	Tiles      []Tile         `json:"tiles"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
	Skipped    Skipped        `json:"skipped"`
}

// Viewport is the scroll position reported by the page.
type Viewport struct {
	ScrollY        float64 `json:"scroll_y"`
	ViewportHeight float64 `json:"viewport_height"`
	DocumentHeight float64 `json:"document_height"`
}

// NearBottom reports whether the bottom of the viewport is within threshold
// pixels of the end of the document.
func (v Viewport) NearBottom(threshold float64) bool {
	return v.ScrollY+v.ViewportHeight >= v.DocumentHeight-threshold
}

// LoadRequest starts a fresh browse. Nil Filters keep the session's current ones.
type LoadRequest struct {
	Input   string      `json:"input"`
	Mode    target.Mode `json:"mode"`
	Filters *Filters    `json:"filters,omitempty"`
}

// EventType labels a streamed event.
type EventType string

const (
	EventTile   EventType = "tile"
	EventReset  EventType = "reset"
	EventError  EventType = "error"
	EventViewer EventType = "viewer"
)

// Event is pushed to sinks as the session changes.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Generation uint64    `json:"generation"`
	Payload    any       `json:"payload,omitempty"`
}

// Sink receives session events. Emit must not block for long.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiSink fans events out to every non-nil sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ctx, ev)
		}
	}
}

// Publisher is the subset of an event bus a sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// PublishTo forwards events to p under "<session id>.<type>".
func PublishTo(p Publisher) Sink {
	return SinkFunc(func(ctx context.Context, ev Event) {
		if err := p.Publish(ctx, ev.SessionID+"."+string(ev.Type), ev); err != nil {
			logger.FromContext(ctx).Debug("event publish failed", "component", "session", "error", err)
		}
	})
}
