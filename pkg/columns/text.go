package columns

import "github.com/mesh-intelligence/eric/pkg/types"

// Text is a short text column. Empty upstream text loads as "".
type Text struct {
	base
	value string
}

// NewText returns a text column bound to columnID.
func NewText(columnID string) *Text {
	return &Text{base: base{id: columnID}}
}

func (c *Text) Kind() Kind { return KindText }

func (c *Text) Value() string { return c.value }

func (c *Text) Set(v string) { c.value = v }

func (c *Text) Interface() any { return c.value }

func (c *Text) Assign(v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	c.value = s
	return nil
}

func (c *Text) WirePayload() map[string]any {
	return map[string]any{c.id: c.value}
}

func (c *Text) Load(raw types.ColumnData) error {
	s, err := rawText(raw, c.id)
	if err != nil {
		return err
	}
	c.value = s
	c.loaded = true
	return nil
}

func (c *Text) SearchTerm(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", mismatch(c.id, c.Kind(), v)
	}
	return s, nil
}

// LongText is a multi-line text column. It reads like Text but commits as
// {"text": value}.
type LongText struct {
	Text
}

// NewLongText returns a long text column bound to columnID.
func NewLongText(columnID string) *LongText {
	return &LongText{Text: Text{base: base{id: columnID}}}
}

func (c *LongText) Kind() Kind { return KindLongText }

func (c *LongText) Assign(v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	c.value = s
	return nil
}

func (c *LongText) WirePayload() map[string]any {
	return map[string]any{c.id: map[string]any{"text": c.value}}
}

// Status is a status (label) column. Empty upstream text loads as "".
type Status struct {
	Text
}

// NewStatus returns a status column bound to columnID.
func NewStatus(columnID string) *Status {
	return &Status{Text: Text{base: base{id: columnID}}}
}

func (c *Status) Kind() Kind { return KindStatus }

func (c *Status) Assign(v any) error {
	s, ok := v.(string)
	if !ok {
		return mismatch(c.id, c.Kind(), v)
	}
	c.value = s
	return nil
}

func (c *Status) WirePayload() map[string]any {
	return map[string]any{c.id: map[string]any{"label": c.value}}
}
