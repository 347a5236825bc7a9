package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength is the longest text a todo may hold, in characters.
const MaxTextLength = 500

type Todo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a copy detached from the store.
func (t *Todo) Clone() *Todo {
	c := *t
	return &c
}

// Input carries the fields of a create or full update.
type Input struct {
	Text      *string
	Completed *bool
	// Invalid is a decoding error reported when the input is validated, so
	// that a lookup of an unknown id still fails with NotFoundError first.
	Invalid error
}

// Patch carries the subset of fields a patch changes. Nil fields are left alone.
type Patch struct {
	Text      *string
	Completed *bool
	Invalid   error
}

// NewTodo validates input and builds a todo stamped with now. The id is left for the store.
func NewTodo(in Input, now time.Time) (*Todo, error) {
	if in.Invalid != nil {
		return nil, in.Invalid
	}
	text, err := requireText(in.Text)
	if err != nil {
		return nil, err
	}

	completed := false
	if in.Completed != nil {
		completed = *in.Completed
	}

	return &Todo{
		Text:      text,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Replace applies full-update semantics: text is mandatory, completed keeps
// its current value when omitted.
func (t *Todo) Replace(in Input, now time.Time) error {
	if in.Invalid != nil {
		return in.Invalid
	}
	text, err := requireText(in.Text)
	if err != nil {
		return err
	}

	t.Text = text
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	t.touch(now)
	return nil
}

// Apply changes only the supplied fields. updatedAt is refreshed even for an empty patch.
func (t *Todo) Apply(p Patch, now time.Time) error {
	if p.Invalid != nil {
		return p.Invalid
	}
	if p.Text != nil {
		text, err := ValidateText(*p.Text)
		if err != nil {
			return err
		}
		t.Text = text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	t.touch(now)
	return nil
}

// touch refreshes UpdatedAt without letting it move backwards.
func (t *Todo) touch(now time.Time) {
	if now.Before(t.UpdatedAt) {
		now = t.UpdatedAt
	}
	t.UpdatedAt = now
}

// ValidateText trims text and checks it is non-empty and within MaxTextLength.
func ValidateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", NewValidationError("text", "Todo text cannot be empty")
	}
	if utf8.RuneCountInString(trimmed) > MaxTextLength {
		return "", NewValidationError("text", "Todo text cannot exceed %d characters", MaxTextLength)
	}
	return trimmed, nil
}

func requireText(text *string) (string, error) {
	if text == nil {
		return "", NewValidationError("text", "Todo text is required")
	}
	return ValidateText(*text)
}

// ParseInput converts a decoded JSON object into an Input. A field of the wrong
// type is recorded in Invalid.
func ParseInput(fields map[string]any) Input {
	text, completed, err := parseFields(fields)
	return Input{Text: text, Completed: completed, Invalid: err}
}

// ParsePatch converts a decoded JSON object into a Patch. A field of the wrong
// type is recorded in Invalid.
func ParsePatch(fields map[string]any) Patch {
	text, completed, err := parseFields(fields)
	return Patch{Text: text, Completed: completed, Invalid: err}
}

func parseFields(fields map[string]any) (*string, *bool, error) {
	var (
		text      *string
		completed *bool
	)

	// A supplied text must be a string, null included. A null completed is ignored.
	if raw, ok := fields["text"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, nil, NewValidationError("text", "Todo text must be a string")
		}
		text = &s
	}

	if raw, ok := fields["completed"]; ok && raw != nil {
		b, ok := raw.(bool)
		if !ok {
			return nil, nil, NewValidationError("completed", "Todo completed must be a boolean")
		}
		completed = &b
	}

	return text, completed, nil
}
