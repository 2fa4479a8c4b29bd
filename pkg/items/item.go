package items

import (
	"context"
	"fmt"
	"maps"

	"github.com/mesh-intelligence/eric/pkg/columns"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// Upstream operation names, used in errors and metrics.
const (
	OpGetItems     = "get_items"
	OpChangeValues = "change_column_values"
	OpCreateItem   = "create_item"
	OpCreateUpdate = "create_update"
	OpSearchItems  = "search_items"
	OpBoardItems   = "board_items"
)

// Field is one declared column of a record.
type Field struct {
	Name  string
	Value columns.Value
}

// Item is a row on a board. The zero value is not usable; concrete record
// types build one with newItem.
type Item struct {
	ID   string
	Name string

	recordType string
	boardID    string
	fields     []Field
	byName     map[string]columns.Value
	staged     map[string]any
	env        *Env
}

func newItem(env *Env, recordType, boardID, id string, fields ...Field) *Item {
	byName := make(map[string]columns.Value, len(fields))
	for _, f := range fields {
		if _, dup := byName[f.Name]; dup {
			panic(fmt.Sprintf("items: %s declares column %q twice", recordType, f.Name))
		}
		byName[f.Name] = f.Value
	}
	return &Item{
		ID:         id,
		recordType: recordType,
		boardID:    boardID,
		fields:     fields,
		byName:     byName,
		staged:     make(map[string]any),
		env:        env,
	}
}

func (i *Item) String() string {
	id := i.ID
	if id == "" {
		id = "<new>"
	}
	return fmt.Sprintf("%s(%s)", i.recordType, id)
}

// RecordType returns the record type tag, e.g. "device".
func (i *Item) RecordType() string { return i.recordType }

// BoardID returns the id of the board the item lives on.
func (i *Item) BoardID() string { return i.boardID }

// Fields returns the declared columns in declaration order.
func (i *Item) Fields() []Field {
	return append([]Field(nil), i.fields...)
}

// Column returns the declared column with the given attribute name.
func (i *Item) Column(name string) (columns.Value, bool) {
	v, ok := i.byName[name]
	return v, ok
}

// Set assigns v to the declared column name and stages the column's payload.
// A failed assignment stages nothing.
func (i *Item) Set(name string, v any) error {
	col, ok := i.byName[name]
	if !ok {
		return fmt.Errorf("%s: set %q: %w", i, name, types.ErrUnknownAttribute)
	}
	if err := col.Assign(v); err != nil {
		return fmt.Errorf("%s: set %q: %w", i, name, err)
	}
	maps.Copy(i.staged, col.WirePayload())
	return nil
}

// StagedChanges returns a copy of the diff waiting to be committed.
func (i *Item) StagedChanges() map[string]any {
	return maps.Clone(i.staged)
}

// HasChanges reports whether anything is staged.
func (i *Item) HasChanges() bool { return len(i.staged) > 0 }

func (i *Item) clearStaged() { clear(i.staged) }

// Load hydrates the item. With raw it hydrates directly; otherwise it fetches
// the item by ID from the board API. Without either it fails with
// ErrIncompleteRecord.
func (i *Item) Load(ctx context.Context, raw *types.RawItem) error {
	if raw == nil {
		if i.ID == "" {
			return fmt.Errorf("%s: load: item id or item data required: %w", i, types.ErrIncompleteRecord)
		}
		fetched, err := i.fetch(ctx)
		if err != nil {
			return err
		}
		raw = fetched
	}
	return i.hydrate(raw)
}

func (i *Item) fetch(ctx context.Context) (*types.RawItem, error) {
	got, err := i.env.Client.GetItems(ctx, []string{i.ID})
	if err = i.upstreamErr(OpGetItems, err); err != nil {
		return nil, err
	}
	for idx := range got {
		if got[idx].ID == i.ID {
			return &got[idx], nil
		}
	}
	return nil, &types.UpstreamError{RecordType: i.recordType, ID: i.ID, Op: OpGetItems, Err: types.ErrItemNotFound}
}

// hydrate fills every declared column from raw. A declared column missing
// from the payload is a schema error and stops hydration.
func (i *Item) hydrate(raw *types.RawItem) error {
	if raw.ID != "" {
		i.ID = raw.ID
	}
	i.Name = raw.Name
	for _, f := range i.fields {
		col, ok := raw.Column(f.Value.ColumnID())
		if !ok {
			return fmt.Errorf("%s: column %s (%s): %w", i, f.Value.ColumnID(), f.Name, types.ErrSchemaMismatch)
		}
		if err := f.Value.Load(col); err != nil {
			return fmt.Errorf("%s: %w", i, err)
		}
	}
	i.clearStaged()
	i.env.log().Debug("loaded item", "record_type", i.recordType, "id", i.ID)
	return nil
}

// Commit sends the staged changes upstream. An item without an ID is created
// with name; without an ID or a name Commit fails with ErrIncompleteRecord
// and makes no upstream call. Committing nothing is a no-op.
func (i *Item) Commit(ctx context.Context, name string) error {
	if i.ID == "" {
		if name == "" {
			return fmt.Errorf("%s: commit: item id or name required: %w", i, types.ErrIncompleteRecord)
		}
		return i.Create(ctx, name)
	}
	if !i.HasChanges() {
		return nil
	}
	err := i.env.Client.ChangeColumnValues(ctx, i.boardID, i.ID, i.StagedChanges())
	if err = i.upstreamErr(OpChangeValues, err); err != nil {
		return err
	}
	i.env.log().Debug("committed item", "record_type", i.recordType, "id", i.ID, "columns", len(i.staged))
	i.clearStaged()
	return nil
}

// Create creates the item upstream with the staged column values and assigns
// the returned ID.
func (i *Item) Create(ctx context.Context, name string) error {
	id, err := i.env.Client.CreateItem(ctx, i.boardID, name, i.StagedChanges())
	if err = i.upstreamErr(OpCreateItem, err); err != nil {
		return err
	}
	i.ID = id
	i.Name = name
	i.env.log().Info("created item", "record_type", i.recordType, "id", id)
	i.clearStaged()
	return nil
}

// AddUpdate posts body as an update (comment) on the item, as a reply to
// threadID when given. It returns the update id.
func (i *Item) AddUpdate(ctx context.Context, body, threadID string) (string, error) {
	if i.ID == "" {
		return "", fmt.Errorf("%s: add update: item not created: %w", i, types.ErrIncompleteRecord)
	}
	updateID, err := i.env.Client.CreateUpdate(ctx, i.ID, body, threadID)
	if err = i.upstreamErr(OpCreateUpdate, err); err != nil {
		return "", err
	}
	return updateID, nil
}

// SearchBy returns the raw items on the board whose column name matches v.
func (i *Item) SearchBy(ctx context.Context, name string, v any) ([]types.RawItem, error) {
	col, ok := i.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: search by %q: %w", i, name, types.ErrUnknownAttribute)
	}
	s, ok := col.(columns.Searchable)
	if !ok {
		return nil, fmt.Errorf("%s: search by %q (%s): %w", i, name, col.Kind(), types.ErrNotSearchable)
	}
	term, err := s.SearchTerm(v)
	if err != nil {
		return nil, fmt.Errorf("%s: search by %q: %w", i, name, err)
	}
	found, err := i.env.Client.SearchItems(ctx, i.boardID, col.ColumnID(), []string{term})
	if err = i.upstreamErr(OpSearchItems, err); err != nil {
		return nil, err
	}
	return found, nil
}

// upstreamErr records the call and wraps a non-nil err in an UpstreamError.
func (i *Item) upstreamErr(op string, err error) error {
	i.env.observeUpstream(op, err)
	if err == nil {
		return nil
	}
	return &types.UpstreamError{RecordType: i.recordType, ID: i.ID, Op: op, Err: err}
}
