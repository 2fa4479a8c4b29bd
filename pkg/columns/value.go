package columns

import (
	"fmt"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Kind names the type of a column value.
type Kind string

// Column kinds.
const (
	KindText     Kind = "text"
	KindLongText Kind = "long_text"
	KindNumber   Kind = "number"
	KindStatus   Kind = "status"
	KindDate     Kind = "date"
	KindLink     Kind = "link"
	KindRelation Kind = "relation"
)

// Value is a single typed column on a record.
type Value interface {
	// ColumnID returns the upstream column id. It never changes.
	ColumnID() string

	// Kind returns the column kind.
	Kind() Kind

	// Assign sets the value from an untyped input. It returns an error
	// wrapping types.ErrTypeMismatch, and leaves the value unchanged, when
	// v's Go type does not match the kind.
	Assign(v any) error

	// WirePayload returns {columnID: wireValue}, ready to merge into a
	// commit diff.
	WirePayload() map[string]any

	// Load hydrates the value from a raw column entry.
	Load(raw types.ColumnData) error

	// Loaded reports whether the value was hydrated by Load.
	Loaded() bool

	// Interface returns the current typed value.
	Interface() any
}

// Searchable is implemented by kinds the board API can search by.
type Searchable interface {
	Value

	// SearchTerm converts v to the text the board API matches against.
	SearchTerm(v any) (string, error)
}

type base struct {
	id     string
	loaded bool
}

func (b *base) ColumnID() string { return b.id }

func (b *base) Loaded() bool { return b.loaded }

func mismatch(id string, k Kind, v any) error {
	return fmt.Errorf("column %s (%s) cannot hold %T: %w", id, k, v, types.ErrTypeMismatch)
}

// rawKey returns raw[key], failing with ErrInvalidColumnData when the key is
// absent. A present null is returned as nil.
func rawKey(raw types.ColumnData, id, key string) (any, error) {
	v, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("column %s: no %q value in data %v: %w", id, key, map[string]any(raw), types.ErrInvalidColumnData)
	}
	return v, nil
}

// rawText returns the display text of a raw column, "" for null.
func rawText(raw types.ColumnData, id string) (string, error) {
	v, err := rawKey(raw, id, "text")
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	default:
		return fmt.Sprint(t), nil
	}
}

var (
	_ Searchable = (*Text)(nil)
	_ Searchable = (*LongText)(nil)
	_ Searchable = (*Status)(nil)
	_ Searchable = (*Number)(nil)
	_ Searchable = (*Date)(nil)
	_ Value      = (*LinkValue)(nil)
	_ Value      = (*Relation)(nil)
)
