package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/campuscommunity/synckit/cache"
	"github.com/campuscommunity/synckit/ch"
	"github.com/campuscommunity/synckit/logger"
	"github.com/campuscommunity/synckit/metrics"
	"github.com/campuscommunity/synckit/model"
	"github.com/campuscommunity/synckit/notification"
	"github.com/campuscommunity/synckit/queue"
	"github.com/campuscommunity/synckit/syncer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Syncer is the part of syncer.Syncer the routes use
type Syncer interface {
	SyncNow(ctx context.Context) (queue.Result, error)
	Status() syncer.Status
}

// ConnectivitySwitch lets the host report connectivity. connectivity.Manual
// satisfies it.
type ConnectivitySwitch interface {
	IsOnline() bool
	SetOnline(online bool)
}

// AuditSource reads the sync event trail. ch.AuditReader satisfies it.
type AuditSource interface {
	Recent(ctx context.Context, limit int) ([]ch.SyncEvent, error)
	Count(ctx context.Context, outcome string, since time.Time) (uint64, error)
}

// Deps are the collaborators behind the routes. News, Clubs, Switch, Audit
// and Gatherer are optional; their routes are not mounted when nil.
type Deps struct {
	Queue         queue.Queue
	Syncer        Syncer
	Notifications notification.Service
	News          cache.ReadThrough[model.NewsItem]
	Clubs         cache.ReadThrough[model.Club]
	Switch        ConnectivitySwitch
	Audit         AuditSource
	Gatherer      prometheus.Gatherer
}

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 1000
)

var auditOutcomes = []string{
	ch.OutcomeEnqueued,
	string(queue.OutcomeSuccess),
	string(queue.OutcomeFailure),
	string(queue.OutcomeDropped),
}

type handler struct {
	logger logger.Logger
	deps   *Deps
}

// NewRouter builds the admin router
func NewRouter(log logger.Logger, deps *Deps) http.Handler {
	h := &handler{logger: log, deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/status", h.status)

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", h.listQueue)
		r.Post("/", h.enqueue)
		r.Delete("/", h.clearQueue)
		r.Post("/sync", h.syncNow)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.listNotifications)
		r.Delete("/", h.clearNotifications)
		r.Get("/unread-count", h.unreadCount)
		r.Post("/read-all", h.markAllRead)
		r.Post("/{id}/read", h.markRead)
	})

	if deps.News != nil {
		r.Get("/news", serveRead(h, deps.News))
	}
	if deps.Clubs != nil {
		r.Get("/clubs", serveRead(h, deps.Clubs))
	}
	if deps.Switch != nil {
		r.Put("/connectivity", h.setConnectivity)
	}
	if deps.Audit != nil {
		r.Route("/audit", func(r chi.Router) {
			r.Get("/events", h.auditEvents)
			r.Get("/summary", h.auditSummary)
		})
	}
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}
	return r
}

// requestLogger logs every request at debug level, server errors at warn
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			}
			if ww.Status() >= http.StatusInternalServerError {
				log.Warn("admin request failed", fields...)
				return
			}
			log.Debug("admin request", fields...)
		})
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"online": h.deps.Syncer.Status().Online,
	})
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Syncer.Status())
}

type queueResponse struct {
	Length  int                   `json:"length"`
	Actions []queue.PendingAction `json:"actions"`
}

func (h *handler) listQueue(w http.ResponseWriter, r *http.Request) {
	actions := h.deps.Queue.GetQueue()
	writeJSON(w, http.StatusOK, queueResponse{Length: len(actions), Actions: actions})
}

// enqueue accepts {"type": "...", "payload": {...}}
func (h *handler) enqueue(w http.ResponseWriter, r *http.Request) {
	var req queue.PendingAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	action, err := h.deps.Queue.AddAction(r.Context(), req.Payload)
	if err != nil {
		if errors.Is(err, queue.ErrNotInitialized) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, action)
}

func (h *handler) clearQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Queue.ClearQueue(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) syncNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Syncer.SyncNow(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, syncer.ErrOffline):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, syncer.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("manual sync failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// roleParams reads ?role= and ?clubId=. Roles outside the known set get the
// default news and system view from the filter.
func (h *handler) roleParams(r *http.Request) (model.Role, string) {
	q := r.URL.Query()
	role := model.Role(q.Get("role"))
	if role != "" && !role.Valid() {
		h.logger.Debug("unknown role, default view applied", zap.String("role", string(role)))
	}
	return role, q.Get("clubId")
}

func (h *handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	role, clubID := h.roleParams(r)
	if role == "" {
		writeJSON(w, http.StatusOK, h.deps.Notifications.GetAll(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Notifications.GetNotificationsForRole(r.Context(), role, clubID))
}

type countResponse struct {
	Count int `json:"count"`
}

func (h *handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	role, clubID := h.roleParams(r)
	n := h.deps.Notifications.GetUnreadCount(r.Context())
	if role != "" {
		n = h.deps.Notifications.GetUnreadCountForRole(r.Context(), role, clubID)
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

func (h *handler) markRead(w http.ResponseWriter, r *http.Request) {
	h.deps.Notifications.MarkAsRead(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	h.deps.Notifications.MarkAllAsRead(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearNotifications(w http.ResponseWriter, r *http.Request) {
	h.deps.Notifications.ClearAll(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type connectivityRequest struct {
	Online *bool `json:"online"`
}

func (h *handler) setConnectivity(w http.ResponseWriter, r *http.Request) {
	var req connectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		writeError(w, http.StatusBadRequest, `body must be {"online": true|false}`)
		return
	}
	h.deps.Switch.SetOnline(*req.Online)
	writeJSON(w, http.StatusOK, map[string]bool{"online": h.deps.Switch.IsOnline()})
}

// auditEvents serves ?limit= (default 50, max 1000) newest events
func (h *handler) auditEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.deps.Audit.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("audit query failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

type auditSummary struct {
	Since  time.Time         `json:"since"`
	Counts map[string]uint64 `json:"counts"`
}

// auditSummary counts events per outcome over ?window= (default 24h)
func (h *handler) auditSummary(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}

	resp := auditSummary{Since: time.Now().Add(-window), Counts: make(map[string]uint64, len(auditOutcomes))}
	for _, outcome := range auditOutcomes {
		n, err := h.deps.Audit.Count(r.Context(), outcome, resp.Since)
		if err != nil {
			h.logger.Error("audit query failed", zap.String("outcome", outcome), zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		resp.Counts[outcome] = n
	}
	writeJSON(w, http.StatusOK, resp)
}

type readResponse[T any] struct {
	Items  []T          `json:"items"`
	Source cache.Source `json:"source"`
	// Error is the fetch failure behind a cache or empty answer
	Error string `json:"error,omitempty"`
}

// serveRead answers from rt, live when online and from the cache otherwise.
// A fetch failure never fails the request.
func serveRead[T any](h *handler, rt cache.ReadThrough[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, src, err := rt.Get(r.Context())
		resp := readResponse[T]{Items: items, Source: src}
		if err != nil {
			h.logger.Debug("read served without live data", zap.String("source", string(src)), zap.Error(err))
			resp.Error = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
