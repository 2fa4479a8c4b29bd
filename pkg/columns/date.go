package columns

import (
	"fmt"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// WireTimeLayout is the date-time format the board API accepts on commit.
const WireTimeLayout = "2006-01-02 15:04:05"

const searchDateLayout = "2006-01-02"

// Date is a date-time column. The value is stored in UTC; nil means the
// column is cleared.
type Date struct {
	base
	value *time.Time
}

// NewDate returns a date column bound to columnID.
func NewDate(columnID string) *Date {
	return &Date{base: base{id: columnID}}
}

func (c *Date) Kind() Kind { return KindDate }

// Value returns the stored UTC time, or nil when cleared.
func (c *Date) Value() *time.Time {
	if c.value == nil {
		return nil
	}
	t := *c.value
	return &t
}

// Set stores t converted to UTC and truncated to whole seconds, the
// precision of the wire format. A time in time.Local is treated as local
// wall-clock time.
func (c *Date) Set(t time.Time) {
	u := t.UTC().Truncate(time.Second)
	c.value = &u
}

// Clear empties the column.
func (c *Date) Clear() { c.value = nil }

func (c *Date) Interface() any { return c.Value() }

// Assign accepts time.Time, *time.Time and nil (which clears the column).
func (c *Date) Assign(v any) error {
	switch t := v.(type) {
	case nil:
		c.Clear()
	case time.Time:
		c.Set(t)
	case *time.Time:
		if t == nil {
			c.Clear()
		} else {
			c.Set(*t)
		}
	default:
		return mismatch(c.id, c.Kind(), v)
	}
	return nil
}

func (c *Date) WirePayload() map[string]any {
	if c.value == nil {
		return map[string]any{c.id: ""}
	}
	return map[string]any{c.id: c.value.Format(WireTimeLayout)}
}

// Load parses the column's display text. Text without a zone is read as UTC.
func (c *Date) Load(raw types.ColumnData) error {
	s, err := rawText(raw, c.id)
	if err != nil {
		return err
	}
	if s == "" {
		c.value = nil
		c.loaded = true
		return nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return fmt.Errorf("column %s: date %q: %w", c.id, s, types.ErrColumnParse)
	}
	c.Set(t)
	c.loaded = true
	return nil
}

func (c *Date) SearchTerm(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(searchDateLayout), nil
	case *time.Time:
		if t != nil {
			return t.UTC().Format(searchDateLayout), nil
		}
	}
	return "", mismatch(c.id, c.Kind(), v)
}
