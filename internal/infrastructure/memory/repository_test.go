package memory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmehra2102/todo-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(n int) *int       { return &n }

// stepClock returns a time source that advances one second per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newSeeded(t *testing.T, texts ...string) *Repository {
	t.Helper()
	repo := NewRepository(WithClock(stepClock()))
	for i, text := range texts {
		_, err := repo.Create(context.Background(), domain.Input{
			Text:      strPtr(text),
			Completed: boolPtr(i%2 == 1),
		})
		require.NoError(t, err)
	}
	return repo
}

func ids(todos []*domain.Todo) []int64 {
	out := make([]int64, len(todos))
	for i, todo := range todos {
		out[i] = todo.ID
	}
	return out
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	tests := []struct {
		name    string
		input   domain.Input
		want    string
		wantErr bool
	}{
		{name: "valid", input: domain.Input{Text: strPtr("Buy milk")}, want: "Buy milk"},
		{name: "trimmed", input: domain.Input{Text: strPtr("  Walk dog  ")}, want: "Walk dog"},
		{name: "missing text", input: domain.Input{}, wantErr: true},
		{name: "whitespace only", input: domain.Input{Text: strPtr("   ")}, wantErr: true},
		{name: "too long", input: domain.Input{Text: strPtr(strings.Repeat("a", 501))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todo, err := repo.Create(ctx, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, todo.Text)
			assert.False(t, todo.Completed)
			assert.Equal(t, todo.CreatedAt, todo.UpdatedAt)
		})
	}
}

func TestCreateIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t, "a", "b", "c")

	_, err := repo.Remove(ctx, 3)
	require.NoError(t, err)
	_, err = repo.Remove(ctx, 2)
	require.NoError(t, err)

	todo, err := repo.Create(ctx, domain.Input{Text: strPtr("d")})
	require.NoError(t, err)
	assert.Equal(t, int64(4), todo.ID)
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	created, err := repo.Create(ctx, domain.Input{Text: strPtr("Buy milk")})
	require.NoError(t, err)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	// Returned records are copies.
	got.Text = "changed"
	again, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", again.Text)

	_, err = repo.Get(ctx, 42)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(42), nf.ID)
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	// completed alternates false, true, false, true, false
	repo := newSeeded(t, "e", "d", "c", "b", "a")

	tests := []struct {
		name  string
		query *domain.Query
		want  []int64
	}{
		{name: "nil query", query: nil, want: []int64{1, 2, 3, 4, 5}},
		{name: "completed true", query: &domain.Query{Completed: boolPtr(true)}, want: []int64{2, 4}},
		{name: "completed false", query: &domain.Query{Completed: boolPtr(false)}, want: []int64{1, 3, 5}},
		{name: "skip and limit", query: &domain.Query{Skip: 2, Limit: intPtr(2)}, want: []int64{3, 4}},
		{name: "skip beyond", query: &domain.Query{Skip: 9}, want: []int64{}},
		{
			name:  "sort text asc",
			query: &domain.Query{Sort: []domain.SortKey{{Field: "text", Direction: domain.SortAscending}}},
			want:  []int64{5, 4, 3, 2, 1},
		},
		{
			name: "multi key",
			query: &domain.Query{Sort: []domain.SortKey{
				{Field: "completed", Direction: domain.SortDescending},
				{Field: "id", Direction: domain.SortAscending},
			}},
			want: []int64{2, 4, 1, 3, 5},
		},
		{
			name:  "unknown sort field keeps input order",
			query: &domain.Query{Sort: []domain.SortKey{{Field: "priority", Direction: domain.SortDescending}}},
			want:  []int64{1, 2, 3, 4, 5},
		},
		{
			name: "stable ties",
			query: &domain.Query{Sort: []domain.SortKey{
				{Field: "completed", Direction: domain.SortAscending},
			}},
			want: []int64{1, 3, 5, 2, 4},
		},
		{
			name: "filter sort paginate",
			query: &domain.Query{
				Completed: boolPtr(false),
				Sort:      []domain.SortKey{{Field: "createdAt", Direction: domain.SortDescending}},
				Skip:      1,
				Limit:     intPtr(1),
			},
			want: []int64{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Find(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestFindReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t, "a")

	got, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	got[0].Text = "mutated"

	again, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Text)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(WithClock(stepClock()))

	created, err := repo.Create(ctx, domain.Input{Text: strPtr("a"), Completed: boolPtr(true)})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, created.ID, domain.Input{Text: strPtr(" b ")})
	require.NoError(t, err)
	assert.Equal(t, "b", updated.Text)
	assert.True(t, updated.Completed)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = repo.Update(ctx, created.ID, domain.Input{Completed: boolPtr(false)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored, "failed update leaves the record untouched")
}

func TestUpdateUnknownIDBeforeValidation(t *testing.T) {
	repo := NewRepository()

	_, err := repo.Update(context.Background(), 9999, domain.Input{Text: strPtr("   ")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPatch(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(WithClock(stepClock()))

	created, err := repo.Create(ctx, domain.Input{Text: strPtr("a")})
	require.NoError(t, err)

	patched, err := repo.Patch(ctx, created.ID, domain.Patch{})
	require.NoError(t, err)
	assert.Equal(t, created.Text, patched.Text)
	assert.Equal(t, created.Completed, patched.Completed)
	assert.False(t, patched.UpdatedAt.Before(created.UpdatedAt))

	patched, err = repo.Patch(ctx, created.ID, domain.Patch{Completed: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "a", patched.Text)
	assert.True(t, patched.Completed)

	patched, err = repo.Patch(ctx, created.ID, domain.Patch{Text: strPtr("  c ")})
	require.NoError(t, err)
	assert.Equal(t, "c", patched.Text)
	assert.True(t, patched.Completed)

	_, err = repo.Patch(ctx, created.ID, domain.Patch{Text: strPtr("")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = repo.Patch(ctx, 9999, domain.Patch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := newSeeded(t, "a", "b", "c")

	before, err := repo.Get(ctx, 2)
	require.NoError(t, err)

	removed, err := repo.Remove(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, before, removed)

	_, err = repo.Get(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Remove(ctx, 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	remaining, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids(remaining))
}

func TestConcurrentCreatesGetUniqueIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, domain.Input{Text: strPtr("x")})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.Find(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, n)

	seen := make(map[int64]bool, n)
	for _, todo := range all {
		assert.False(t, seen[todo.ID])
		seen[todo.ID] = true
	}
}
