package columns

import (
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Link is the value of a link column.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// IsZero reports whether the link is empty.
func (l Link) IsZero() bool { return l.URL == "" && l.Text == "" }

// LinkValue is a URL link column. The API returns it in the raw "value" key
// as a JSON-encoded object.
type LinkValue struct {
	base
	value Link
}

// NewLink returns a link column bound to columnID.
func NewLink(columnID string) *LinkValue {
	return &LinkValue{base: base{id: columnID}}
}

func (c *LinkValue) Kind() Kind { return KindLink }

func (c *LinkValue) Value() Link { return c.value }

func (c *LinkValue) Set(v Link) { c.value = v }

func (c *LinkValue) Interface() any { return c.value }

func (c *LinkValue) Assign(v any) error {
	l, ok := v.(Link)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	c.value = l
	return nil
}

func (c *LinkValue) WirePayload() map[string]any {
	if c.value.IsZero() {
		return map[string]any{c.id: ""}
	}
	return map[string]any{c.id: map[string]any{"url": c.value.URL, "text": c.value.Text}}
}

func (c *LinkValue) Load(raw types.ColumnData) error {
	v, err := rawKey(raw, c.id, "value")
	if err != nil {
		return err
	}
	var l Link
	switch s := v.(type) {
	case nil:
	case string:
		if s != "" {
			if err := json.Unmarshal([]byte(s), &l); err != nil {
				return fmt.Errorf("column %s: link %q: %w", c.id, s, types.ErrColumnParse)
			}
		}
	default:
		return fmt.Errorf("column %s: link value of type %T: %w", c.id, v, types.ErrColumnParse)
	}
	c.value = l
	c.loaded = true
	return nil
}
