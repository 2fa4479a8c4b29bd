package items

import (
	"context"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// FetchBoardDevices loads every device on the device board from the board
// API. The devices' ProductIDs are left empty; see LinkProducts.
func FetchBoardDevices(ctx context.Context, env *Env) ([]*Device, error) {
	raws, err := boardItems(ctx, env, types.RecordTypeDevice, DeviceBoardID)
	if err != nil {
		return nil, err
	}
	out := make([]*Device, 0, len(raws))
	for idx := range raws {
		d := NewDevice(env, "")
		if err := d.Item.Load(ctx, &raws[idx]); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FetchBoardProducts loads every product on the product board from the
// board API.
func FetchBoardProducts(ctx context.Context, env *Env) ([]*Product, error) {
	raws, err := boardItems(ctx, env, types.RecordTypeProduct, ProductBoardID)
	if err != nil {
		return nil, err
	}
	out := make([]*Product, 0, len(raws))
	for idx := range raws {
		p := NewProduct(env, "")
		if err := p.Item.Load(ctx, &raws[idx]); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func boardItems(ctx context.Context, env *Env, recordType, boardID string) ([]types.RawItem, error) {
	raws, err := env.Client.BoardItems(ctx, boardID)
	env.observeUpstream(OpBoardItems, err)
	if err != nil {
		return nil, &types.UpstreamError{RecordType: recordType, Op: OpBoardItems, Err: err}
	}
	return raws, nil
}

// LinkProducts sets each device's ProductIDs to the products related to it,
// in product order. It returns the products whose device is not among
// devices, including products with no device relation.
func LinkProducts(devices []*Device, products []*Product) (orphans []*Product) {
	byID := make(map[string]*Device, len(devices))
	for _, d := range devices {
		d.ProductIDs = []string{}
		byID[d.ID] = d
	}
	for _, p := range products {
		d, ok := byID[p.LinkedDeviceID()]
		if !ok {
			orphans = append(orphans, p)
			continue
		}
		d.ProductIDs = append(d.ProductIDs, p.ID)
	}
	return orphans
}
