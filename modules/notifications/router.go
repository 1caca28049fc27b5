package notifications

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meshly/backend/pkg/auth"
	"github.com/meshly/backend/pkg/logger"
	"github.com/meshly/backend/pkg/notification"
	"github.com/meshly/backend/pkg/stream"
)

// replayTimeout bounds the event store call made while a client connects.
// A store slower than this rejects the stream before any frame is written,
// leaving the client's cursor untouched.
const replayTimeout = 5 * time.Second

// RouterOptions carries the collaborators of the notifications module.
type RouterOptions struct {
	Store    notification.Store
	Gateway  *stream.Gateway
	Service  *notification.Service
	Resolver auth.Resolver
	Logger   *slog.Logger
}

// Router creates the notifications HTTP surface:
//
//	GET  /        — point-in-time paginated fetch for poll clients
//	GET  /stream  — long-lived SSE stream with cursor resume
//	POST /        — internal producer publish call
//
// All endpoints require an authenticated subject.
func Router(opts RouterOptions) chi.Router {
	if opts.Store == nil {
		panic("notifications: store cannot be nil")
	}
	if opts.Gateway == nil {
		panic("notifications: gateway cannot be nil")
	}
	if opts.Service == nil {
		panic("notifications: service cannot be nil")
	}
	if opts.Resolver == nil {
		panic("notifications: resolver cannot be nil")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}

	h := &handlers{
		store:   opts.Store,
		gateway: opts.Gateway,
		service: opts.Service,
		logger:  log,
	}

	r := chi.NewRouter()
	r.Use(auth.Middleware(opts.Resolver))
	r.Get("/", h.handleList)
	r.Get("/stream", h.handleStream)
	r.Post("/", h.handlePublish)

	return r
}
