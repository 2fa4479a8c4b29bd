package columns

import (
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Relation is a connect-boards column holding the ids of linked items.
type Relation struct {
	base
	value []string
}

// NewRelation returns a relation column bound to columnID.
func NewRelation(columnID string) *Relation {
	return &Relation{base: base{id: columnID}, value: []string{}}
}

func (c *Relation) Kind() Kind { return KindRelation }

// Value returns a copy of the linked item ids.
func (c *Relation) Value() []string {
	out := make([]string, len(c.value))
	copy(out, c.value)
	return out
}

// First returns the first linked item id, or "" when nothing is linked.
func (c *Relation) First() string {
	if len(c.value) == 0 {
		return ""
	}
	return c.value[0]
}

func (c *Relation) Interface() any { return c.Value() }

// Set replaces the linked ids. Every id must be numeric.
func (c *Relation) Set(ids []string) error {
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("column %s: item id %q is not numeric: %w", c.id, id, types.ErrTypeMismatch)
		}
	}
	c.value = append([]string{}, ids...)
	return nil
}

func (c *Relation) Assign(v any) error {
	ids, ok := v.([]string)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	return c.Set(ids)
}

// WirePayload encodes the ids as integers. Set and Load only admit numeric
// ids, so the conversion cannot fail.
func (c *Relation) WirePayload() map[string]any {
	ids := make([]int64, 0, len(c.value))
	for _, id := range c.value {
		n, _ := strconv.ParseInt(id, 10, 64)
		ids = append(ids, n)
	}
	return map[string]any{c.id: map[string]any{"item_ids": ids}}
}

func (c *Relation) Load(raw types.ColumnData) error {
	v, err := rawKey(raw, c.id, "linked_item_ids")
	if err != nil {
		return err
	}
	ids := []string{}
	switch list := v.(type) {
	case nil:
	case []any:
		for _, e := range list {
			switch id := e.(type) {
			case string:
				ids = append(ids, id)
			case float64:
				ids = append(ids, strconv.FormatInt(int64(id), 10))
			default:
				return fmt.Errorf("column %s: linked id of type %T: %w", c.id, e, types.ErrColumnParse)
			}
		}
	case []string:
		ids = append(ids, list...)
	default:
		return fmt.Errorf("column %s: linked ids of type %T: %w", c.id, v, types.ErrColumnParse)
	}
	for _, id := range ids {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("column %s: linked id %q is not numeric: %w", c.id, id, types.ErrColumnParse)
		}
	}
	c.value = ids
	c.loaded = true
	return nil
}
