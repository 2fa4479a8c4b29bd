package columns

import (
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Number is an integer column. Empty upstream text loads as 0.
type Number struct {
	base
	value int
}

// NewNumber returns a number column bound to columnID.
func NewNumber(columnID string) *Number {
	return &Number{base: base{id: columnID}}
}

func (c *Number) Kind() Kind { return KindNumber }

func (c *Number) Value() int { return c.value }

func (c *Number) Set(v int) { c.value = v }

func (c *Number) Interface() any { return c.value }

// Assign accepts any Go integer type.
func (c *Number) Assign(v any) error {
	n, ok := asInt(v)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	c.value = n
	return nil
}

func (c *Number) WirePayload() map[string]any {
	return map[string]any{c.id: c.value}
}

func (c *Number) Load(raw types.ColumnData) error {
	s, err := rawText(raw, c.id)
	if err != nil {
		return err
	}
	if s == "" {
		c.value = 0
		c.loaded = true
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("column %s: number %q: %w", c.id, s, types.ErrColumnParse)
	}
	c.value = n
	c.loaded = true
	return nil
}

func (c *Number) SearchTerm(v any) (string, error) {
	n, ok := asInt(v)
	if !ok {
		return "", mismatch(c.id, c.Kind(), v)
	}
	return strconv.Itoa(n), nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	default:
		return 0, false
	}
}
