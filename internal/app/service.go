package app

import (
	"context"
	"errors"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Notifier receives an event after every successful mutation.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Event) {}

type TodoService struct {
	repo     domain.Repository
	logger   *zap.Logger
	tracer   trace.Tracer
	notifier Notifier
}

func NewTodoService(repo domain.Repository, logger *zap.Logger, notifier Notifier) *TodoService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TodoService{
		repo:     repo,
		logger:   logger,
		tracer:   otel.Tracer("todo-service"),
		notifier: notifier,
	}
}

func (s *TodoService) Find(ctx context.Context, query *domain.Query) ([]*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Find")
	defer span.End()

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to find todos", err)
		return nil, err
	}

	todos, err := s.repo.Find(ctx, query)
	if err != nil {
		s.fail(span, "failed to find todos", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("result.count", len(todos)))
	return todos, nil
}

func (s *TodoService) Get(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Get")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to get todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	todo, err := s.repo.Get(ctx, id)
	if err != nil {
		s.fail(span, "failed to get todo", err, zap.Int64("todo_id", id))
		return nil, err
	}
	return todo, nil
}

func (s *TodoService) Create(ctx context.Context, in domain.Input) (*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Create")
	defer span.End()

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to create todo", err)
		return nil, err
	}

	todo, err := s.repo.Create(ctx, in)
	if err != nil {
		s.fail(span, "failed to create todo", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("todo.id", todo.ID))
	s.logger.Info("todo created", zap.Int64("todo_id", todo.ID))
	s.notifier.Notify(ctx, domain.Event{Method: domain.MethodCreated, Todo: todo})

	return todo, nil
}

func (s *TodoService) Update(ctx context.Context, id int64, in domain.Input) (*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Update")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to update todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	todo, err := s.repo.Update(ctx, id, in)
	if err != nil {
		s.fail(span, "failed to update todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	s.logger.Info("todo updated", zap.Int64("todo_id", id))
	s.notifier.Notify(ctx, domain.Event{Method: domain.MethodUpdated, Todo: todo})

	return todo, nil
}

func (s *TodoService) Patch(ctx context.Context, id int64, p domain.Patch) (*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Patch")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to patch todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	todo, err := s.repo.Patch(ctx, id, p)
	if err != nil {
		s.fail(span, "failed to patch todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	s.logger.Info("todo patched", zap.Int64("todo_id", id))
	s.notifier.Notify(ctx, domain.Event{Method: domain.MethodPatched, Todo: todo})

	return todo, nil
}

func (s *TodoService) Remove(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "Remove")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	if err := ctx.Err(); err != nil {
		s.fail(span, "failed to remove todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	todo, err := s.repo.Remove(ctx, id)
	if err != nil {
		s.fail(span, "failed to remove todo", err, zap.Int64("todo_id", id))
		return nil, err
	}

	s.logger.Info("todo removed", zap.Int64("todo_id", id))
	s.notifier.Notify(ctx, domain.Event{Method: domain.MethodRemoved, Todo: todo})

	return todo, nil
}

// fail records err on the span. Caller mistakes are logged at debug level,
// expired or cancelled requests as warnings, anything else is an error.
func (s *TodoService) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	fields = append(fields, zap.Error(err))

	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug(msg, fields...)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(msg, fields...)
		return
	}

	span.SetStatus(codes.Error, err.Error())
	s.logger.Error(msg, fields...)
}
