package types

import "context"

// RawItem is an item as returned by the board API.
type RawItem struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ColumnValues []ColumnData `json:"column_values"`
}

// Column returns the raw column with the given column id.
func (r *RawItem) Column(id string) (ColumnData, bool) {
	for _, c := range r.ColumnValues {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

// ColumnData is one entry of an item's column_values list. It is kept as a
// decoded JSON object so that an absent key and a null value stay distinct.
type ColumnData map[string]any

// ID returns the column id, or "" if the entry has none.
func (c ColumnData) ID() string {
	s, _ := c["id"].(string)
	return s
}

// UpstreamClient performs reads and writes against the remote board API.
// Implementations return transport and API errors unwrapped; the record layer
// wraps them in UpstreamError.
type UpstreamClient interface {
	// GetItems fetches items by id. Unknown ids are omitted from the result.
	GetItems(ctx context.Context, ids []string) ([]RawItem, error)

	// BoardItems fetches every item on a board.
	BoardItems(ctx context.Context, boardID string) ([]RawItem, error)

	// SearchItems returns the items on a board whose column matches any of values.
	SearchItems(ctx context.Context, boardID, columnID string, values []string) ([]RawItem, error)

	// CreateItem creates an item and returns its id.
	CreateItem(ctx context.Context, boardID, name string, values map[string]any) (string, error)

	// ChangeColumnValues applies a partial update to an existing item.
	ChangeColumnValues(ctx context.Context, boardID, itemID string, values map[string]any) error

	// CreateUpdate posts a comment on an item, optionally as a reply to
	// threadID, and returns the update id.
	CreateUpdate(ctx context.Context, itemID, body, threadID string) (string, error)
}
