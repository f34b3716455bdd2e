package handlers

import (
	"net/http"
	"sort"

	"github.com/onnwee/redpull/internal/cache"
)

type cacheStats struct {
	Name      string `json:"name"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	KeysAdded uint64 `json:"keysAdded"`
	Evictions uint64 `json:"evictions"`
	SizeBytes int64  `json:"sizeBytes"`
	Items     int64  `json:"items"`
}

type statusResponse struct {
	Sessions int          `json:"sessions"`
	Caches   []cacheStats `json:"caches"`
}

// Status reports live session and cache counters.
// GET /api/status
func Status(store SessionStore, caches map[string]cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := statusResponse{Sessions: store.Count(), Caches: make([]cacheStats, 0, len(caches))}
		for name, c := range caches {
			if c == nil {
				continue
			}
			st := c.Stats()
			out.Caches = append(out.Caches, cacheStats{
				Name:      name,
				Hits:      st.Hits,
				Misses:    st.Misses,
				KeysAdded: st.KeysAdded,
				Evictions: st.Evictions,
				SizeBytes: st.Size,
				Items:     st.Items,
			})
		}
		sort.Slice(out.Caches, func(i, j int) bool { return out.Caches[i].Name < out.Caches[j].Name })
		writeJSON(w, http.StatusOK, out)
	}
}
