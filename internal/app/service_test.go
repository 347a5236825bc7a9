package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/dmehra2102/todo-realtime/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event domain.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) methods() []domain.Method {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Method, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Method
	}
	return out
}

func newTestService(t *testing.T) (*TodoService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	return NewTodoService(memory.NewRepository(), zaptest.NewLogger(t), notifier), notifier
}

func TestServiceNotifiesSuccessfulMutations(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)

	created, err := svc.Create(ctx, domain.Input{Text: strPtr("Buy milk")})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, domain.Input{Text: strPtr("Buy oat milk")})
	require.NoError(t, err)

	patched, err := svc.Patch(ctx, created.ID, domain.Patch{Completed: boolPtr(true)})
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, patched, removed)

	assert.Equal(t, []domain.Method{
		domain.MethodCreated,
		domain.MethodUpdated,
		domain.MethodPatched,
		domain.MethodRemoved,
	}, notifier.methods())

	notifier.mu.Lock()
	assert.Equal(t, removed, notifier.events[3].Todo)
	notifier.mu.Unlock()
}

func TestServiceFailuresDoNotNotify(t *testing.T) {
	ctx := context.Background()
	svc, notifier := newTestService(t)

	_, err := svc.Create(ctx, domain.Input{Text: strPtr("   ")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, 9999, domain.Input{Text: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Patch(ctx, 9999, domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Remove(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Empty(t, notifier.methods())
}

func TestServiceFind(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	for _, text := range []string{"a", "b", "c"} {
		_, err := svc.Create(ctx, domain.Input{Text: strPtr(text), Completed: boolPtr(text != "b")})
		require.NoError(t, err)
	}

	todos, err := svc.Find(ctx, &domain.Query{Completed: boolPtr(true)})
	require.NoError(t, err)
	require.Len(t, todos, 2)
	assert.Equal(t, "a", todos[0].Text)
	assert.Equal(t, "c", todos[1].Text)
}

type brokenRepository struct {
	domain.Repository
}

func (brokenRepository) Find(context.Context, *domain.Query) ([]*domain.Todo, error) {
	return nil, errors.New("boom")
}

func TestServicePropagatesUnexpectedErrors(t *testing.T) {
	svc := NewTodoService(brokenRepository{}, zaptest.NewLogger(t), nil)

	_, err := svc.Find(context.Background(), nil)
	assert.EqualError(t, err, "boom")
}

func TestServiceRejectsDoneContext(t *testing.T) {
	svc, notifier := newTestService(t)

	created, err := svc.Create(context.Background(), domain.Input{Text: strPtr("keep")})
	require.NoError(t, err)
	notifier.mu.Lock()
	notifier.events = nil
	notifier.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = svc.Create(ctx, domain.Input{Text: strPtr("dropped")})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Patch(ctx, created.ID, domain.Patch{Completed: boolPtr(true)})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.Remove(ctx, created.ID)
	assert.ErrorIs(t, err, context.Canceled)

	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	_, err = svc.Find(expired, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	todos, err := svc.Find(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, created, todos[0])
	assert.Empty(t, notifier.methods())
}
