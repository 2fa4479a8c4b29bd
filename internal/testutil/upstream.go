// Package testutil provides in-memory collaborators for tests: a fake board
// API and an alert recorder.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Call records one request made to an Upstream.
type Call struct {
	Op       string
	BoardID  string
	ItemID   string
	Name     string
	ColumnID string
	Values   map[string]any
	Terms    []string
}

// Upstream is a fake types.UpstreamClient holding items in memory.
type Upstream struct {
	mu     sync.Mutex
	items  map[string]types.RawItem
	boards map[string][]string
	calls  []Call
	nextID int

	// Err, when set, is returned by every call.
	Err error

	// Gate, when set, holds GetItems until it is closed or the call's
	// context ends. Started receives one value per held call.
	Gate    chan struct{}
	Started chan struct{}
}

// NewUpstream returns an empty fake board API.
func NewUpstream() *Upstream {
	return &Upstream{
		items:  make(map[string]types.RawItem),
		boards: make(map[string][]string),
		nextID: 9000000001,
	}
}

// Put stores raw on boardID, replacing any item with the same id.
func (u *Upstream) Put(boardID string, raw types.RawItem) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.items[raw.ID]; !ok {
		u.boards[boardID] = append(u.boards[boardID], raw.ID)
	}
	u.items[raw.ID] = raw
}

// Calls returns a copy of the recorded calls.
func (u *Upstream) Calls() []Call {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Call(nil), u.calls...)
}

// CallCount returns how many calls were made for op, or for every op when op is "".
func (u *Upstream) CallCount(op string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, c := range u.calls {
		if op == "" || c.Op == op {
			n++
		}
	}
	return n
}

func (u *Upstream) record(c Call) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, c)
	return u.Err
}

func (u *Upstream) GetItems(ctx context.Context, ids []string) ([]types.RawItem, error) {
	if err := u.record(Call{Op: "get_items", Terms: ids}); err != nil {
		return nil, err
	}
	if u.Gate != nil {
		if u.Started != nil {
			u.Started <- struct{}{}
		}
		select {
		case <-u.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []types.RawItem
	for _, id := range ids {
		if raw, ok := u.items[id]; ok {
			out = append(out, raw)
		}
	}
	return out, nil
}

func (u *Upstream) BoardItems(_ context.Context, boardID string) ([]types.RawItem, error) {
	if err := u.record(Call{Op: "board_items", BoardID: boardID}); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []types.RawItem
	for _, id := range u.boards[boardID] {
		out = append(out, u.items[id])
	}
	return out, nil
}

func (u *Upstream) SearchItems(_ context.Context, boardID, columnID string, values []string) ([]types.RawItem, error) {
	if err := u.record(Call{Op: "search_items", BoardID: boardID, ColumnID: columnID, Terms: values}); err != nil {
		return nil, err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	var out []types.RawItem
	for _, id := range u.boards[boardID] {
		raw := u.items[id]
		col, ok := raw.Column(columnID)
		if !ok {
			continue
		}
		for _, v := range values {
			if fmt.Sprint(col["text"]) == v {
				out = append(out, raw)
				break
			}
		}
	}
	return out, nil
}

func (u *Upstream) CreateItem(_ context.Context, boardID, name string, values map[string]any) (string, error) {
	if err := u.record(Call{Op: "create_item", BoardID: boardID, Name: name, Values: values}); err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	id := strconv.Itoa(u.nextID)
	u.nextID++
	u.items[id] = types.RawItem{ID: id, Name: name}
	u.boards[boardID] = append(u.boards[boardID], id)
	return id, nil
}

func (u *Upstream) ChangeColumnValues(_ context.Context, boardID, itemID string, values map[string]any) error {
	return u.record(Call{Op: "change_column_values", BoardID: boardID, ItemID: itemID, Values: values})
}

func (u *Upstream) CreateUpdate(_ context.Context, itemID, body, threadID string) (string, error) {
	if err := u.record(Call{Op: "create_update", ItemID: itemID, Name: body, Terms: []string{threadID}}); err != nil {
		return "", err
	}
	return "u-" + itemID, nil
}

var _ types.UpstreamClient = (*Upstream)(nil)
