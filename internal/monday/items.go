package monday

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// itemFields selects what RawItem decodes. linked_item_ids is only present
// on connect-boards columns.
const itemFields = `id name column_values { id text value ... on BoardRelationValue { linked_item_ids } }`

const (
	queryItems = `query ($ids: [ID!], $limit: Int) {
  items(ids: $ids, limit: $limit) { ` + itemFields + ` }
}`

	queryBoardItems = `query ($board: [ID!], $limit: Int) {
  boards(ids: $board) { items_page(limit: $limit) { cursor items { ` + itemFields + ` } } }
}`

	querySearchItems = `query ($board: ID!, $limit: Int, $column: String!, $values: [String]!) {
  items_page_by_column_values(board_id: $board, limit: $limit, columns: [{column_id: $column, column_values: $values}]) {
    cursor items { ` + itemFields + ` }
  }
}`

	queryNextPage = `query ($cursor: String!, $limit: Int) {
  next_items_page(cursor: $cursor, limit: $limit) { cursor items { ` + itemFields + ` } }
}`

	mutationCreateItem = `mutation ($board: ID!, $name: String!, $values: JSON) {
  create_item(board_id: $board, item_name: $name, column_values: $values) { id }
}`

	mutationChangeValues = `mutation ($board: ID!, $item: ID!, $values: JSON!) {
  change_multiple_column_values(board_id: $board, item_id: $item, column_values: $values) { id }
}`

	mutationCreateUpdate = `mutation ($item: ID!, $body: String!, $parent: ID) {
  create_update(item_id: $item, body: $body, parent_id: $parent) { id }
}`
)

type itemsPage struct {
	Cursor *string         `json:"cursor"`
	Items  []types.RawItem `json:"items"`
}

// GetItems fetches items by id, a page of ids per request.
func (c *Client) GetItems(ctx context.Context, ids []string) ([]types.RawItem, error) {
	var out []types.RawItem
	for start := 0; start < len(ids); start += c.pageSize {
		end := min(start+c.pageSize, len(ids))
		var data struct {
			Items []types.RawItem `json:"items"`
		}
		vars := map[string]any{"ids": ids[start:end], "limit": c.pageSize}
		if err := c.do(ctx, queryItems, vars, &data); err != nil {
			return nil, fmt.Errorf("get items: %w", err)
		}
		out = append(out, data.Items...)
	}
	return out, nil
}

// BoardItems fetches every item on a board, following page cursors.
func (c *Client) BoardItems(ctx context.Context, boardID string) ([]types.RawItem, error) {
	var data struct {
		Boards []struct {
			ItemsPage itemsPage `json:"items_page"`
		} `json:"boards"`
	}
	vars := map[string]any{"board": []string{boardID}, "limit": c.pageSize}
	if err := c.do(ctx, queryBoardItems, vars, &data); err != nil {
		return nil, fmt.Errorf("board %s items: %w", boardID, err)
	}
	if len(data.Boards) == 0 {
		return nil, fmt.Errorf("board %s: %w", boardID, &APIError{StatusCode: 200, Messages: []string{"board not found"}})
	}
	return c.drain(ctx, data.Boards[0].ItemsPage)
}

// SearchItems returns the board items whose column has any of values.
func (c *Client) SearchItems(ctx context.Context, boardID, columnID string, values []string) ([]types.RawItem, error) {
	var data struct {
		Page itemsPage `json:"items_page_by_column_values"`
	}
	vars := map[string]any{"board": boardID, "limit": c.pageSize, "column": columnID, "values": values}
	if err := c.do(ctx, querySearchItems, vars, &data); err != nil {
		return nil, fmt.Errorf("search board %s by %s: %w", boardID, columnID, err)
	}
	return c.drain(ctx, data.Page)
}

// drain collects page and every page after it.
func (c *Client) drain(ctx context.Context, page itemsPage) ([]types.RawItem, error) {
	out := append([]types.RawItem(nil), page.Items...)
	for page.Cursor != nil && *page.Cursor != "" {
		var data struct {
			Page itemsPage `json:"next_items_page"`
		}
		vars := map[string]any{"cursor": *page.Cursor, "limit": c.pageSize}
		if err := c.do(ctx, queryNextPage, vars, &data); err != nil {
			return nil, fmt.Errorf("next page: %w", err)
		}
		page = data.Page
		out = append(out, page.Items...)
	}
	return out, nil
}

// CreateItem creates an item with initial column values and returns its id.
func (c *Client) CreateItem(ctx context.Context, boardID, name string, values map[string]any) (string, error) {
	encoded, err := encodeValues(values)
	if err != nil {
		return "", err
	}
	var data struct {
		CreateItem struct {
			ID string `json:"id"`
		} `json:"create_item"`
	}
	vars := map[string]any{"board": boardID, "name": name, "values": encoded}
	if err := c.do(ctx, mutationCreateItem, vars, &data); err != nil {
		return "", fmt.Errorf("create item on board %s: %w", boardID, err)
	}
	return data.CreateItem.ID, nil
}

// ChangeColumnValues applies values to an existing item.
func (c *Client) ChangeColumnValues(ctx context.Context, boardID, itemID string, values map[string]any) error {
	encoded, err := encodeValues(values)
	if err != nil {
		return err
	}
	vars := map[string]any{"board": boardID, "item": itemID, "values": encoded}
	if err := c.do(ctx, mutationChangeValues, vars, nil); err != nil {
		return fmt.Errorf("change item %s: %w", itemID, err)
	}
	return nil
}

// CreateUpdate posts an update on an item, as a reply when threadID is set.
func (c *Client) CreateUpdate(ctx context.Context, itemID, body, threadID string) (string, error) {
	vars := map[string]any{"item": itemID, "body": body}
	if threadID != "" {
		vars["parent"] = threadID
	}
	var data struct {
		CreateUpdate struct {
			ID string `json:"id"`
		} `json:"create_update"`
	}
	if err := c.do(ctx, mutationCreateUpdate, vars, &data); err != nil {
		return "", fmt.Errorf("update item %s: %w", itemID, err)
	}
	return data.CreateUpdate.ID, nil
}

// encodeValues renders column values as the JSON string the API's JSON scalar
// expects.
func encodeValues(values map[string]any) (string, error) {
	if values == nil {
		values = map[string]any{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode column values: %w", err)
	}
	return string(b), nil
}
