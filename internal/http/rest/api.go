package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/bwise1/campus_safety/config"
	"github.com/bwise1/campus_safety/internal/campus"
	deps "github.com/bwise1/campus_safety/internal/debs"
	"github.com/bwise1/campus_safety/internal/photo"
	"github.com/bwise1/campus_safety/util/storage"
	"github.com/bwise1/campus_safety/util/values"
	"github.com/bwise1/campus_safety/util/websockets"
	"github.com/bwise1/campus_safety/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultShutdownPeriod = 30 * time.Second
	defaultRequestTimeout = 20 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

// ServeHTTP writes the handler's response. A nil response means the handler
// already wrote the body itself.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	writeServerResponse(w, resp)
}

type API struct {
	Server    *http.Server
	Config    *config.Config
	Deps      *deps.Dependencies
	Reports   ReportStore
	Photos    *photo.Manager
	Campus    *campus.Boundary
	WebSocket *websockets.WebSocketManager
	Logger    *zap.Logger
}

// Init fills the API's collaborators from Deps where they were not set
// explicitly.
func (api *API) Init() {
	if api.Config == nil {
		api.Config = &config.Config{}
	}
	if api.Deps != nil {
		if api.Reports == nil {
			api.Reports = &ReportRepo{DB: api.Deps.Pool()}
		}
		if api.Photos == nil {
			api.Photos = api.Deps.Photos
		}
		if api.Campus == nil {
			api.Campus = api.Deps.Campus
		}
		if api.WebSocket == nil {
			api.WebSocket = api.Deps.WebSocket
		}
		if api.Logger == nil {
			api.Logger = api.Deps.Logger
		}
	}
	if api.Campus == nil {
		api.Campus = campus.Default()
	}
	if api.Logger == nil {
		api.Logger = zap.NewNop()
	}
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

// Routes builds the full HTTP handler.
func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Use(RequestTracing)
	mux.Use(api.RequestLogger)

	mux.Method(http.MethodGet, "/healthz", Handler(api.Health))
	mux.Method(http.MethodGet, "/metrics", promhttp.Handler())
	mux.Method(http.MethodGet, "/campus/boundary", Handler(api.GetCampusBoundary))
	if api.WebSocket != nil {
		mux.Get("/ws", api.WebSocket.HandleConnections)
	}

	mux.Mount("/reports", api.ReportRoutes())

	if local, ok := api.localStorage(); ok {
		mux.Handle(local.Prefix()+"/*", http.StripPrefix(local.Prefix(), photoHeaders(noDirListing(http.FileServer(http.Dir(local.Root()))))))
	}

	mux.Handle("/*", http.FileServer(http.FS(web.Static())))

	return mux
}

func (api *API) localStorage() (*storage.Local, bool) {
	if api.Photos == nil {
		return nil, false
	}
	local, ok := api.Photos.Backend().(*storage.Local)
	return local, ok
}

// photoHeaders pins the Content-Type of served uploads to an image type, or to
// application/octet-stream for anything else, and stops browsers sniffing.
func photoHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := "application/octet-stream"
		if byExt := mime.TypeByExtension(path.Ext(r.URL.Path)); strings.HasPrefix(byExt, "image/") {
			contentType = byExt
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withTimeout bounds database and storage calls so a stalled backend turns
// into a retryable 503 instead of a hung request.
func (api *API) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := api.Config.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (api *API) Health(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingFrom(r)

	if err := api.Reports.Ping(r.Context()); err != nil {
		return respondWithError(classifyDBError(err), "database unreachable", values.Unavailable, &tc)
	}
	return &ServerResponse{
		Message:    "ok",
		Status:     values.Success,
		StatusCode: http.StatusOK,
		Data:       map[string]string{"status": "ok"},
	}
}

func (api *API) GetCampusBoundary(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return &ServerResponse{
		Message:    "Campus boundary",
		Status:     values.Success,
		StatusCode: http.StatusOK,
		Data:       api.Campus.Feature(),
	}
}

func (api *API) Shutdown() error {
	if api.Server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeServerResponse(w http.ResponseWriter, resp *ServerResponse) {
	if resp.StatusCode == 0 {
		resp.StatusCode = http.StatusOK
	}

	var payload interface{}
	switch {
	case resp.StatusCode >= http.StatusBadRequest:
		payload = resp.errorBody()
		if resp.StatusCode == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "5")
		}
	case resp.Data != nil:
		payload = resp.Data
	default:
		payload = map[string]string{"message": resp.Message}
	}

	respByte, err := json.Marshal(payload)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

func writeJSONResponse(w http.ResponseWriter, body []byte, statusCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	writeServerResponse(w, &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: statusCode(status),
		Err:        err,
	})
}
