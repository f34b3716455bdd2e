package session

import (
	"context"

	"github.com/onnwee/redpull/internal/logger"
	"github.com/onnwee/redpull/internal/media"
)

type viewerState struct {
	tileID string
	index  int
}

// ViewerState describes the open enlarge overlay. Navigation never leaves
// the items of TileID.
type ViewerState struct {
	TileID  string      `json:"tile_id"`
	Index   int         `json:"index"`
	Count   int         `json:"count"`
	Gallery bool        `json:"gallery"`
	Item    media.Media `json:"item"`
}

// PointerEvent is a click or tap on a tile. X and Y are offsets inside the
// tile; Width and Height its rendered size. Pointer is "mouse", "touch" or "pen".
type PointerEvent struct {
	TileID  string  `json:"tile_id"`
	Index   int     `json:"index"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Pointer string  `json:"pointer"`
}

// OpenViewer shows item index of a tile, replacing any open viewer.
func (s *Session) OpenViewer(ctx context.Context, tileID string, index int) (*ViewerState, error) {
	s.mu.Lock()
	tile := s.tileLocked(tileID)
	if tile == nil {
		s.mu.Unlock()
		return nil, ErrTileNotFound
	}
	if index < 0 || index >= len(tile.Items) {
		s.mu.Unlock()
		return nil, ErrInvalidIndex
	}
	s.viewer = &viewerState{tileID: tileID, index: index}
	st := s.viewerStateLocked()
	gen := s.generation
	s.mu.Unlock()

	s.emit(ctx, EventViewer, gen, st)
	return st, nil
}

// Navigate moves the viewer by step items, wrapping at either end.
func (s *Session) Navigate(ctx context.Context, step int) (*ViewerState, error) {
	s.mu.Lock()
	if s.viewer == nil {
		s.mu.Unlock()
		return nil, ErrViewerNotOpen
	}
	tile := s.tileLocked(s.viewer.tileID)
	if tile == nil {
		s.viewer = nil
		s.mu.Unlock()
		return nil, ErrViewerNotOpen
	}
	n := len(tile.Items)
	s.viewer.index = ((s.viewer.index+step)%n + n) % n
	st := s.viewerStateLocked()
	gen := s.generation
	s.mu.Unlock()

	s.emit(ctx, EventViewer, gen, st)
	return st, nil
}

// CloseViewer disposes the viewer. Closing a closed viewer is a no-op.
func (s *Session) CloseViewer(ctx context.Context) {
	s.mu.Lock()
	wasOpen := s.viewer != nil
	s.viewer = nil
	gen := s.generation
	s.mu.Unlock()
	if wasOpen {
		s.emit(ctx, EventViewer, gen, nil)
	}
}

// HandleKey applies a keyboard shortcut to the open viewer. handled is false
// when keyboard navigation is disabled, the key is unbound or no viewer is open.
// A nil state with handled true means the viewer was closed.
func (s *Session) HandleKey(ctx context.Context, key string) (st *ViewerState, handled bool, err error) {
	if !s.settings.ViewerKeyboard {
		return s.Viewer(), false, nil
	}
	if s.Viewer() == nil {
		return nil, false, nil
	}
	switch key {
	case "ArrowLeft", "Left":
		st, err = s.Navigate(ctx, -1)
	case "ArrowRight", "Right":
		st, err = s.Navigate(ctx, 1)
	case "Escape", "Esc":
		s.CloseViewer(ctx)
		return nil, true, nil
	default:
		return s.Viewer(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// Activate handles a pointer or touch activation on a tile. Activations
// outside the configured active zone are ignored (opened is false).
func (s *Session) Activate(ctx context.Context, ev PointerEvent) (st *ViewerState, opened bool, err error) {
	if !InActiveZone(ev, s.settings.ViewerActiveZone) {
		logger.FromContext(ctx).Debug("activation in dead zone", "component", "session", "tile_id", ev.TileID, "pointer", ev.Pointer)
		return s.Viewer(), false, nil
	}
	st, err = s.OpenViewer(ctx, ev.TileID, ev.Index)
	if err != nil {
		return nil, false, err
	}
	return st, true, nil
}

// InActiveZone reports whether ev falls inside the centred fraction zone of
// the tile on both axes. A zone of 0 or 1, or a tile without dimensions,
// accepts everything.
func InActiveZone(ev PointerEvent, zone float64) bool {
	if zone <= 0 || zone >= 1 {
		return true
	}
	margin := (1 - zone) / 2
	inside := func(pos, size float64) bool {
		if size <= 0 {
			return true
		}
		f := pos / size
		return f >= margin && f <= 1-margin
	}
	return inside(ev.X, ev.Width) && inside(ev.Y, ev.Height)
}

// Viewer returns the open viewer or nil.
func (s *Session) Viewer() *ViewerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewerStateLocked()
}

func (s *Session) viewerStateLocked() *ViewerState {
	if s.viewer == nil {
		return nil
	}
	tile := s.tileLocked(s.viewer.tileID)
	if tile == nil {
		return nil
	}
	return &ViewerState{
		TileID:  tile.ID,
		Index:   s.viewer.index,
		Count:   len(tile.Items),
		Gallery: tile.Gallery,
		Item:    tile.Items[s.viewer.index],
	}
}

func (s *Session) tileLocked(id string) *Tile {
	for i := range s.tiles {
		if s.tiles[i].ID == id {
			return &s.tiles[i]
		}
	}
	return nil
}
