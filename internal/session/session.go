// Package session holds per-visitor browse state: the loaded target, the
// pagination cursor, the seen-url set and the rendered tiles.
package session

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/media"
	"github.com/onnwee/redpull/internal/metrics"
	"github.com/onnwee/redpull/internal/redditapi"
	"github.com/onnwee/redpull/internal/target"
)

var (
	ErrNotFound      = errors.New("session not found")
	ErrLimit         = errors.New("too many sessions")
	ErrTileNotFound  = errors.New("tile not found")
	ErrViewerNotOpen = errors.New("viewer not open")
	ErrInvalidIndex  = errors.New("item index out of range")
)

// Deps are the collaborators a session calls.
type Deps struct {
	Fetcher    redditapi.Fetcher
	Classifier Classifier
	Sink       Sink
}

// Session is one browse. All methods are safe for concurrent use; at most
// one page fetch per generation is in flight.
type Session struct {
	id       string
	deps     Deps
	settings Settings

	mu         sync.Mutex
	generation uint64
	target     *target.Target
	cursor     string
	seen       map[string]struct{}
	fetching   bool
	tiles      []Tile
	nextID     int
	filters    Filters
	viewer     *viewerState
	lastActive time.Time
}

func newSession(id string, deps Deps, settings Settings, now time.Time) *Session {
	return &Session{
		id:         id,
		deps:       deps,
		settings:   settings,
		seen:       make(map[string]struct{}),
		filters:    DefaultFilters(),
		lastActive: now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State is a point-in-time view of a session.
type State struct {
	ID         string         `json:"id"`
	Target     *target.Target `json:"target"`
	Cursor     string         `json:"cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
	Fetching   bool           `json:"fetching"`
	Generation uint64         `json:"generation"`
	Tiles      int            `json:"tiles"`
	Seen       int            `json:"seen"`
	Filters    Filters        `json:"filters"`
	Viewer     *ViewerState   `json:"viewer"`
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		ID:         s.id,
		Cursor:     s.cursor,
		HasMore:    s.target != nil && s.cursor != "",
		Fetching:   s.fetching,
		Generation: s.generation,
		Tiles:      len(s.tiles),
		Seen:       len(s.seen),
		Filters:    s.filters,
		Viewer:     s.viewerStateLocked(),
	}
	if s.target != nil {
		t := *s.target
		st.Target = &t
	}
	return st
}

// Tiles returns the current generation's tiles from offset on.
func (s *Session) Tiles(offset int) []Tile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.tiles) {
		return []Tile{}
	}
	return append([]Tile(nil), s.tiles[offset:]...)
}

// Load resets the session and fetches the first page for req.Input. The
// reset happens even when the input does not resolve.
func (s *Session) Load(ctx context.Context, req LoadRequest) (Batch, error) {
	ctx = logger.WithSessionID(ctx, s.id)
	mode := req.Mode
	if mode == target.ModeAuto {
		mode = s.settings.DefaultMode
	}

	s.mu.Lock()
	s.resetLocked()
	if req.Filters != nil {
		s.filters = *req.Filters
	}
	gen := s.generation
	t, err := target.Resolve(req.Input, mode)
	if err == nil {
		s.target = &t
		s.fetching = true
	}
	s.mu.Unlock()

	s.emit(ctx, EventReset, gen, nil)
	if err != nil {
		logger.FromContext(ctx).Debug("input did not resolve", "component", "session", "error", err)
		return Batch{Status: StatusIdle, Generation: gen, Tiles: []Tile{}}, err
	}
	logger.FromContext(ctx).Info("loading target", "component", "session", "target", t.String(), "generation", gen)
	return s.fetch(ctx, gen, t, "")
}

// More fetches the next page when the viewport is near the bottom. A nil
// viewport skips the distance check.
func (s *Session) More(ctx context.Context, vp *Viewport) (Batch, error) {
	ctx = logger.WithSessionID(ctx, s.id)

	s.mu.Lock()
	gen := s.generation
	status := StatusOK
	switch {
	case s.fetching:
		status = StatusBusy
	case s.target == nil:
		status = StatusIdle
	case s.cursor == "":
		status = StatusDone
	case vp != nil && !vp.NearBottom(s.settings.ScrollThresholdPx):
		status = StatusFar
	}
	if status != StatusOK {
		b := Batch{Status: status, Generation: gen, Target: copyTarget(s.target), Tiles: []Tile{}, NextCursor: s.cursor, HasMore: s.cursor != ""}
		s.mu.Unlock()
		return b, nil
	}
	t, cursor := *s.target, s.cursor
	s.fetching = true
	s.mu.Unlock()

	return s.fetch(ctx, gen, t, cursor)
}

// Clear drops everything and returns to idle. A fetch still in flight
// completes but its results are discarded.
func (s *Session) Clear(ctx context.Context) {
	ctx = logger.WithSessionID(ctx, s.id)
	s.mu.Lock()
	s.resetLocked()
	gen := s.generation
	s.mu.Unlock()
	s.emit(ctx, EventReset, gen, nil)
}

func (s *Session) resetLocked() {
	s.generation++
	s.target = nil
	s.cursor = ""
	s.seen = make(map[string]struct{})
	s.fetching = false
	s.tiles = nil
	s.viewer = nil
}

type classified struct {
	post redditapi.Post
	key  string
	res  *media.Resolution
}

func (s *Session) fetch(ctx context.Context, gen uint64, t target.Target, cursor string) (Batch, error) {
	log := logger.FromContext(ctx)
	page, err := s.deps.Fetcher.FetchPage(ctx, t, cursor)
	if err != nil {
		s.mu.Lock()
		stale := gen != s.generation
		if !stale {
			s.fetching = false
		}
		s.mu.Unlock()
		if stale {
			metrics.StaleResultsDiscarded.Inc()
			return s.staleBatch(gen), nil
		}
		log.Warn("page fetch failed", "component", "session", "target", t.String(), "error", err)
		s.emit(ctx, EventError, gen, err.Error())
		return Batch{Status: StatusIdle, Generation: gen, Target: &t, Tiles: []Tile{}, NextCursor: cursor, HasMore: cursor != ""}, err
	}

	var skipped Skipped
	batchSeen := make(map[string]struct{}, len(page.Posts))
	results := make([]classified, 0, len(page.Posts))
	for i := range page.Posts {
		p := page.Posts[i]
		key := dedupKey(&p)
		if _, dup := batchSeen[key]; dup || s.isSeen(gen, key) {
			skipped.Duplicate++
			metrics.PostsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}
		batchSeen[key] = struct{}{}
		results = append(results, classified{post: p, key: key, res: s.deps.Classifier.Classify(ctx, &p)})
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		metrics.StaleResultsDiscarded.Inc()
		log.Debug("discarding stale page", "component", "session", "generation", gen)
		return s.staleBatch(gen), nil
	}
	added := make([]Tile, 0, len(results))
	for _, r := range results {
		if _, dup := s.seen[r.key]; dup {
			skipped.Duplicate++
			metrics.PostsSkipped.WithLabelValues("duplicate").Inc()
			continue
		}
		s.seen[r.key] = struct{}{}
		if r.res == nil || len(r.res.Items) == 0 {
			skipped.Blocked++
			metrics.PostsSkipped.WithLabelValues("blocked").Inc()
			continue
		}
		if !s.filters.Allows(r.res) {
			skipped.Filtered++
			metrics.PostsSkipped.WithLabelValues("filtered").Inc()
			continue
		}
		tile := s.newTileLocked(&r.post, r.res, gen)
		s.tiles = append(s.tiles, tile)
		added = append(added, tile)
	}
	s.cursor = page.NextCursor
	s.fetching = false
	s.mu.Unlock()

	for _, tile := range added {
		metrics.TilesRendered.WithLabelValues(string(tile.Kind)).Inc()
		s.emit(ctx, EventTile, gen, tile)
	}
	log.Debug("page applied", "component", "session", "tiles", len(added), "duplicates", skipped.Duplicate,
		"blocked", skipped.Blocked, "filtered", skipped.Filtered, "has_more", page.NextCursor != "")

	return Batch{
		Status:     StatusOK,
		Generation: gen,
		Target:     &t,
		Tiles:      added,
		NextCursor: page.NextCursor,
		HasMore:    page.NextCursor != "",
		Skipped:    skipped,
	}, nil
}

func (s *Session) isSeen(gen uint64, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	_, ok := s.seen[key]
	return ok
}

func (s *Session) staleBatch(gen uint64) Batch {
	return Batch{Status: StatusStale, Generation: gen, Tiles: []Tile{}}
}

func (s *Session) newTileLocked(p *redditapi.Post, res *media.Resolution, gen uint64) Tile {
	s.nextID++
	return Tile{
		ID:         "t" + strconv.Itoa(s.nextID),
		Seq:        len(s.tiles),
		PostID:     p.ID,
		Kind:       res.Kind(),
		Gallery:    res.Gallery,
		Items:      append([]media.Media(nil), res.Items...),
		Title:      p.Title,
		OriginURL:  p.URL,
		Subreddit:  p.Subreddit,
		Permalink:  p.Permalink,
		Generation: gen,
	}
}

// dedupKey is the post url; posts without one fall back to their id.
func dedupKey(p *redditapi.Post) string {
	if p.URL != "" {
		return p.URL
	}
	return "id:" + p.ID
}

func (s *Session) emit(ctx context.Context, typ EventType, gen uint64, payload any) {
	if s.deps.Sink == nil {
		return
	}
	s.deps.Sink.Emit(ctx, Event{Type: typ, SessionID: s.id, Generation: gen, Payload: payload})
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func copyTarget(t *target.Target) *target.Target {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
