package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/onnwee/redpull/internal/api/handlers"
	"github.com/onnwee/redpull/internal/cache"
	"github.com/onnwee/redpull/internal/config"
	"github.com/onnwee/redpull/internal/middleware"
	"github.com/onnwee/redpull/internal/web"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Sessions handlers.SessionStore
	Hub      *handlers.Hub
	Limiter  *middleware.RateLimiter // nil disables rate limiting
	Caches   map[string]cache.Cache
}

// NewRouter registers every route. Cross-cutting middleware is applied by
// Handler.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics)

	// Page
	r.Handle("/", middleware.ETag(web.Index())).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/static/").Handler(middleware.ETag(web.Assets())).Methods(http.MethodGet, http.MethodHead)

	// Ops
	r.HandleFunc("/health", handlers.Health(d.Sessions)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/config", handlers.Config(d.Sessions)).Methods(http.MethodGet)
	api.HandleFunc("/resolve", handlers.Resolve(d.Sessions)).Methods(http.MethodGet)
	api.HandleFunc("/status", handlers.Status(d.Sessions, d.Caches)).Methods(http.MethodGet)

	// Sessions
	sh := handlers.NewSessionHandler(d.Sessions)
	api.HandleFunc("/sessions", sh.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", sh.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", sh.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/load", sh.Load).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/more", sh.More).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/clear", sh.Clear).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/tiles", sh.Tiles).Methods(http.MethodGet)

	// Viewer
	vh := handlers.NewViewerHandler(d.Sessions)
	api.HandleFunc("/sessions/{id}/viewer", vh.Open).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/viewer", vh.Close).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/viewer/navigate", vh.Navigate).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/viewer/key", vh.Key).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/viewer/activate", vh.Activate).Methods(http.MethodPost)

	// Tile stream
	if d.Hub != nil {
		var origins []string
		if d.Config != nil {
			origins = d.Config.CORSAllowedOrigins
		}
		wsh := handlers.NewWebSocketHandler(d.Hub, d.Sessions, origins)
		api.HandleFunc("/sessions/{id}/ws", wsh.HandleWebSocket).Methods(http.MethodGet)
	}

	return r
}

// Handler wraps the router in the request chain, outermost first: tracing,
// request id, panic recovery, security headers, CORS, rate limiting, body
// limit and compression.
func Handler(d Deps) http.Handler {
	var h http.Handler = NewRouter(d)

	maxBody := int64(middleware.DefaultMaxRequestBodySize)
	cors := middleware.DefaultCORSConfig()
	if d.Config != nil {
		maxBody = d.Config.MaxRequestBodyBytes
		cors = middleware.CORSConfigFromConfig(d.Config)
	}

	h = middleware.Compress(h)
	h = middleware.LimitBody(maxBody)(h)
	if d.Limiter != nil {
		h = d.Limiter.Limit(h)
	}
	h = middleware.CORS(cors)(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RecoverWithSentry(h)
	h = middleware.RequestID(h)
	return otelhttp.NewHandler(h, "redpull",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
