// Package httpapi exposes the todo service as a JSON REST API with a
// Server-Sent Events stream of mutations.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/todo-realtime/internal/app"
	"github.com/dmehra2102/todo-realtime/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// TodoService is the set of operations the API exposes.
type TodoService interface {
	Find(ctx context.Context, query *domain.Query) ([]*domain.Todo, error)
	Get(ctx context.Context, id int64) (*domain.Todo, error)
	Create(ctx context.Context, in domain.Input) (*domain.Todo, error)
	Update(ctx context.Context, id int64, in domain.Input) (*domain.Todo, error)
	Patch(ctx context.Context, id int64, p domain.Patch) (*domain.Todo, error)
	Remove(ctx context.Context, id int64) (*domain.Todo, error)
}

type Config struct {
	// RequestTimeout bounds every non-streaming request. Zero disables it.
	RequestTimeout time.Duration
	// SSEHeartbeat is the interval between keep-alive comments on the event stream.
	SSEHeartbeat time.Duration
	// EventBuffer is the per-subscriber event buffer.
	EventBuffer int
	// PublicDir, when set, is served as static files at /.
	PublicDir string
}

type Handler struct {
	svc    TodoService
	subs   app.Subscriber
	cfg    Config
	logger *zap.Logger
}

func NewHandler(svc TodoService, subs app.Subscriber, cfg Config, logger *zap.Logger) *Handler {
	return &Handler{
		svc:    svc,
		subs:   subs,
		cfg:    cfg,
		logger: logger,
	}
}

// Routes builds the full handler including middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /todos", h.withTimeout(h.find))
	mux.Handle("POST /todos", h.withTimeout(h.create))
	mux.Handle("GET /todos/{id}", h.withTimeout(h.get))
	mux.Handle("PUT /todos/{id}", h.withTimeout(h.update))
	mux.Handle("PATCH /todos/{id}", h.withTimeout(h.patch))
	mux.Handle("DELETE /todos/{id}", h.withTimeout(h.remove))
	mux.HandleFunc("GET /todos/events", h.events)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if h.cfg.PublicDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(h.cfg.PublicDir)))
	}

	var handler http.Handler = mux
	handler = metricsMiddleware(handler)
	handler = loggingMiddleware(h.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(h.logger)(handler)
	return otelhttp.NewHandler(handler, "todo-http")
}

func (h *Handler) find(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuery(r.URL.RawQuery)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todos, err := h.svc.Find(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	fields, err := decodeBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.svc.Create(r.Context(), domain.ParseInput(fields))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := decodeBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.svc.Update(r.Context(), id, domain.ParseInput(fields))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := decodeBody(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.svc.Patch(r.Context(), id, domain.ParsePatch(fields))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.svc.Remove(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (h *Handler) withTimeout(fn http.HandlerFunc) http.Handler {
	if h.cfg.RequestTimeout <= 0 {
		return fn
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
		defer cancel()
		fn(w, r.WithContext(ctx))
	})
}

// invalidIDError reports a path id that no record can have.
type invalidIDError struct {
	raw string
}

func (e *invalidIDError) Error() string {
	return fmt.Sprintf("No record found for id '%s'", e.raw)
}

func (e *invalidIDError) Is(target error) bool {
	return target == domain.ErrNotFound
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &invalidIDError{raw: raw}
	}
	return id, nil
}

// decodeBody reads a JSON object. An empty body decodes as an empty object.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	fields := map[string]any{}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return fields, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.NewValidationError("body", "request body exceeds %d bytes", maxErr.Limit)
		}
		return nil, domain.NewValidationError("body", "request body must be a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("body", "request body must contain a single JSON object")
	}
	if fields == nil {
		// A literal null body.
		fields = map[string]any{}
	}
	return fields, nil
}
