package webchat

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/hookchat/pkg/workflows"
)

// Router owns the HTTP mux for the chat UI and API.
type Router struct {
	baseCtx       context.Context
	svc           ChatService
	workflows     WorkflowLister
	workflowLimit int
	staticFS      fs.FS
	md            *MarkdownRenderer
	upgrader      websocket.Upgrader
	logger        zerolog.Logger
	mux           *http.ServeMux
}

type RouterOption func(*Router)

func WithWorkflowLister(l WorkflowLister, limit int) RouterOption {
	return func(r *Router) {
		r.workflows = l
		r.workflowLimit = limit
	}
}

// WithStaticFS sets the FS holding static/index.html and other assets.
func WithStaticFS(staticFS fs.FS) RouterOption {
	return func(r *Router) { r.staticFS = staticFS }
}

func WithLogger(logger zerolog.Logger) RouterOption {
	return func(r *Router) { r.logger = logger }
}

func WithUpgrader(u websocket.Upgrader) RouterOption {
	return func(r *Router) { r.upgrader = u }
}

func NewRouter(ctx context.Context, svc ChatService, opts ...RouterOption) *Router {
	if ctx == nil {
		ctx = context.Background()
	}
	r := &Router{
		baseCtx:       ctx,
		svc:           svc,
		workflowLimit: workflows.DefaultLimit,
		md:            NewMarkdownRenderer(),
		upgrader:      websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		logger:        log.With().Str("component", "webchat").Logger(),
		mux:           http.NewServeMux(),
	}
	for _, o := range opts {
		o(r)
	}
	r.registerAPIHandlers(r.mux)
	r.registerUIHandlers(r.mux)
	return r
}

func (r *Router) Handler() http.Handler { return r.mux }

func (r *Router) registerAPIHandlers(mux *http.ServeMux) {
	mux.Handle("/api/chat", NewChatHTTPHandler(r.svc, r.md, r.logger))
	mux.Handle("/api/status", NewStatusHTTPHandler(r.svc))
	mux.Handle("/api/workflows", NewWorkflowsHTTPHandler(r.workflows, r.workflowLimit))
	mux.Handle("/ws", NewWSHTTPHandler(r.baseCtx, r.svc, r.md, r.upgrader, r.logger))
}

func (r *Router) registerUIHandlers(mux *http.ServeMux) {
	if r.staticFS == nil {
		r.logger.Warn().Msg("static FS not configured; UI handler disabled")
		return
	}

	if staticSub, err := fs.Sub(r.staticFS, "static"); err == nil {
		mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	} else {
		r.logger.Warn().Err(err).Msg("failed to mount /static/ asset handler")
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/" {
			http.NotFound(w, req)
			return
		}
		b, err := fs.ReadFile(r.staticFS, "static/index.html")
		if err != nil {
			r.logger.Error().Err(err).Msg("index not found in static FS")
			http.Error(w, "index not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(b)
	})
}
