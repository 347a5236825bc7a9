package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var storedTodos = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "todo_store_records",
		Help: "Number of todos currently held in memory",
	},
)

// Repository keeps todos in process memory. Records live in a map keyed by id
// while order holds ids in insertion order for default iteration.
type Repository struct {
	mu     sync.Mutex
	todos  map[int64]*domain.Todo
	order  []int64
	nextID int64
	now    func() time.Time
	tracer trace.Tracer
}

type Option func(*Repository)

// WithClock overrides the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		r.now = now
	}
}

func NewRepository(opts ...Option) *Repository {
	r := &Repository{
		todos:  make(map[int64]*domain.Todo),
		nextID: 1,
		now:    func() time.Time { return time.Now().UTC() },
		tracer: otel.Tracer("memory-repository"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) Find(ctx context.Context, query *domain.Query) ([]*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Find")
	defer span.End()

	if query == nil {
		query = &domain.Query{}
	}

	r.mu.Lock()
	matched := make([]*domain.Todo, 0, len(r.order))
	for _, id := range r.order {
		todo := r.todos[id]
		if query.Matches(todo) {
			matched = append(matched, todo.Clone())
		}
	}
	r.mu.Unlock()

	if len(query.Sort) > 0 {
		slices.SortStableFunc(matched, query.Compare)
	}

	start, end := query.Window(len(matched))
	result := matched[start:end]

	span.SetAttributes(
		attribute.Int("matched_count", len(matched)),
		attribute.Int("returned_count", len(result)),
	)

	return result, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Get")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	todo, ok := r.todos[id]
	if !ok {
		span.SetAttributes(attribute.Bool("not_found", true))
		return nil, &domain.NotFoundError{ID: id}
	}
	return todo.Clone(), nil
}

func (r *Repository) Create(ctx context.Context, in domain.Input) (*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Create")
	defer span.End()

	r.mu.Lock()
	defer r.mu.Unlock()

	todo, err := domain.NewTodo(in, r.now())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	todo.ID = r.nextID
	r.nextID++
	r.todos[todo.ID] = todo
	r.order = append(r.order, todo.ID)
	storedTodos.Inc()

	span.SetAttributes(attribute.Int64("todo.id", todo.ID))
	return todo.Clone(), nil
}

func (r *Repository) Update(ctx context.Context, id int64, in domain.Input) (*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.todos[id]
	if !ok {
		span.SetAttributes(attribute.Bool("not_found", true))
		return nil, &domain.NotFoundError{ID: id}
	}

	// Work on a copy so a rejected input leaves the stored record untouched.
	next := current.Clone()
	if err := next.Replace(in, r.now()); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.todos[id] = next
	return next.Clone(), nil
}

func (r *Repository) Patch(ctx context.Context, id int64, p domain.Patch) (*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Patch")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.todos[id]
	if !ok {
		span.SetAttributes(attribute.Bool("not_found", true))
		return nil, &domain.NotFoundError{ID: id}
	}

	next := current.Clone()
	if err := next.Apply(p, r.now()); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.todos[id] = next
	return next.Clone(), nil
}

func (r *Repository) Remove(ctx context.Context, id int64) (*domain.Todo, error) {
	_, span := r.tracer.Start(ctx, "repository.Remove")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	r.mu.Lock()
	defer r.mu.Unlock()

	todo, ok := r.todos[id]
	if !ok {
		span.SetAttributes(attribute.Bool("not_found", true))
		return nil, &domain.NotFoundError{ID: id}
	}

	delete(r.todos, id)
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	storedTodos.Dec()

	return todo, nil
}
