package domain

import "context"

// Repository defines the contract for todo storage
type Repository interface {
	// Find returns a filtered, sorted and paginated copy of the stored todos
	Find(ctx context.Context, query *Query) ([]*Todo, error)

	// Get retrieves a todo by ID
	Get(ctx context.Context, id int64) (*Todo, error)

	// Create validates and stores a new todo, assigning its ID
	Create(ctx context.Context, in Input) (*Todo, error)

	// Update replaces text and completed of an existing todo
	Update(ctx context.Context, id int64, in Input) (*Todo, error)

	// Patch changes only the supplied fields of an existing todo
	Patch(ctx context.Context, id int64, p Patch) (*Todo, error)

	// Remove deletes a todo and returns it as it was before deletion
	Remove(ctx context.Context, id int64) (*Todo, error)
}

// Method names a mutation as broadcast to real-time listeners.
type Method string

const (
	MethodCreated Method = "created"
	MethodUpdated Method = "updated"
	MethodPatched Method = "patched"
	MethodRemoved Method = "removed"
)

// Event is emitted after a successful mutation and carries the resulting record.
type Event struct {
	Method Method `json:"method"`
	Todo   *Todo  `json:"data"`
}
