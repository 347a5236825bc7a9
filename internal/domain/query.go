package domain

import (
	"cmp"
	"strconv"
	"strings"
	"time"
)

// SortDirection is 1 for ascending and -1 for descending.
type SortDirection int

const (
	SortAscending  SortDirection = 1
	SortDescending SortDirection = -1
)

type SortKey struct {
	Field     string
	Direction SortDirection
}

// Query narrows, orders and windows a find. The zero value returns every record
// in insertion order.
type Query struct {
	Completed *bool
	// Where holds equality filters on other fields, compared in string form.
	// A filter on a field a todo does not have matches nothing.
	Where map[string]string
	Sort  []SortKey
	Skip  int
	Limit *int
}

// Matches reports whether t passes the query filters.
func (q *Query) Matches(t *Todo) bool {
	if q.Completed != nil && t.Completed != *q.Completed {
		return false
	}
	for field, want := range q.Where {
		got, ok := fieldString(t, field)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Compare orders a before b using the sort keys in order. Keys naming an unknown
// field contribute nothing. Zero means the records tie on every key.
func (q *Query) Compare(a, b *Todo) int {
	for _, key := range q.Sort {
		c, ok := compareField(a, b, key.Field)
		if !ok || c == 0 {
			continue
		}
		if key.Direction == SortDescending {
			return -c
		}
		return c
	}
	return 0
}

// Window applies skip then limit to a slice length and returns the bounds to keep.
func (q *Query) Window(n int) (int, int) {
	start := min(max(q.Skip, 0), n)
	end := n
	if q.Limit != nil {
		end = start + min(max(*q.Limit, 0), n-start)
	}
	return start, end
}

func compareField(a, b *Todo, field string) (int, bool) {
	switch field {
	case "id":
		return cmp.Compare(a.ID, b.ID), true
	case "text":
		return strings.Compare(a.Text, b.Text), true
	case "completed":
		return compareBool(a.Completed, b.Completed), true
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt), true
	case "updatedAt":
		return a.UpdatedAt.Compare(b.UpdatedAt), true
	default:
		return 0, false
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func fieldString(t *Todo, field string) (string, bool) {
	switch field {
	case "id":
		return strconv.FormatInt(t.ID, 10), true
	case "text":
		return t.Text, true
	case "completed":
		return strconv.FormatBool(t.Completed), true
	case "createdAt":
		return t.CreatedAt.Format(time.RFC3339Nano), true
	case "updatedAt":
		return t.UpdatedAt.Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}
