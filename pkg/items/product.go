package items

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/eric/pkg/columns"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// ProductBoardID is the board holding product items.
const ProductBoardID = "2477699024"

// ProductTypeIndex marks placeholder products that group a device's products.
const ProductTypeIndex = "Index"

// ProductSnapshot is the cached projection of a Product. DeviceID is null
// when the product has no device relation.
type ProductSnapshot struct {
	Price                int     `json:"price"`
	RequiredMinutes      int     `json:"required_minutes"`
	Name                 string  `json:"name"`
	DeviceID             *string `json:"device_id"`
	ID                   string  `json:"id"`
	ProductType          string  `json:"product_type"`
	WooCommerceProductID string  `json:"woo_commerce_product_id"`
}

// Product is a repair product sold for a device.
type Product struct {
	CacheableItem

	deviceConnect        *columns.Relation
	partsConnect         *columns.Relation
	phaseModelConnect    *columns.Relation
	price                *columns.Number
	requiredMinutes      *columns.Number
	wooCommerceProductID *columns.Text
	productType          *columns.Status
}

// NewProduct returns an unloaded product.
func NewProduct(env *Env, id string) *Product {
	p := &Product{
		deviceConnect:        columns.NewRelation("link_to_devices6"),
		partsConnect:         columns.NewRelation("connect_boards8"),
		phaseModelConnect:    columns.NewRelation("board_relation4"),
		price:                columns.NewNumber("numbers"),
		requiredMinutes:      columns.NewNumber("numbers7"),
		wooCommerceProductID: columns.NewText("text3"),
		productType:          columns.NewStatus("status3"),
	}
	p.CacheableItem = newCacheableItem(newItem(env, types.RecordTypeProduct, ProductBoardID, id,
		Field{Name: "device_connect", Value: p.deviceConnect},
		Field{Name: "parts_connect", Value: p.partsConnect},
		Field{Name: "phase_model_connect", Value: p.phaseModelConnect},
		Field{Name: "price", Value: p.price},
		Field{Name: "required_minutes", Value: p.requiredMinutes},
		Field{Name: "woo_commerce_product_id", Value: p.wooCommerceProductID},
		Field{Name: "product_type", Value: p.productType},
	), p)
	return p
}

func (p *Product) Price() int { return p.price.Value() }

func (p *Product) SetPrice(v int) error { return p.Set("price", v) }

func (p *Product) RequiredMinutes() int { return p.requiredMinutes.Value() }

func (p *Product) SetRequiredMinutes(v int) error { return p.Set("required_minutes", v) }

func (p *Product) ProductType() string { return p.productType.Value() }

func (p *Product) SetProductType(v string) error { return p.Set("product_type", v) }

func (p *Product) WooCommerceProductID() string { return p.wooCommerceProductID.Value() }

func (p *Product) SetWooCommerceProductID(v string) error {
	return p.Set("woo_commerce_product_id", v)
}

// PartIDs returns the linked part item ids.
func (p *Product) PartIDs() []string { return p.partsConnect.Value() }

// PhaseModelID returns the linked repair phase model id, or "".
func (p *Product) PhaseModelID() string { return p.phaseModelConnect.First() }

// SetDevice links the product to a single device and stages the relation.
func (p *Product) SetDevice(deviceID string) error {
	return p.Set("device_connect", []string{deviceID})
}

// IsIndex reports whether the product is an index placeholder.
func (p *Product) IsIndex() bool { return p.productType.Value() == ProductTypeIndex }

// DeviceID returns the id of the product's device, alerting operators when
// the product has no device relation.
func (p *Product) DeviceID(ctx context.Context) string {
	id := p.resolveDeviceID()
	if id == "" {
		p.env.alert(ctx, "product has no device connection", "record_type", p.recordType, "id", p.ID)
	}
	return id
}

// LinkedDeviceID returns the id of the product's device, or "" when the
// product has no device relation. Unlike DeviceID it raises no alert.
func (p *Product) LinkedDeviceID() string { return p.resolveDeviceID() }

// resolveDeviceID reads the device relation; the first linked item wins.
func (p *Product) resolveDeviceID() string { return p.deviceConnect.First() }

func (p *Product) CacheKey() string { return CacheKey(types.RecordTypeProduct, p.ID) }

// PrepareCacheData builds the snapshot. A missing device relation still
// serializes, as a null device_id, and raises an operator alert.
func (p *Product) PrepareCacheData(ctx context.Context) (any, error) {
	s := ProductSnapshot{
		Price:                p.price.Value(),
		RequiredMinutes:      p.requiredMinutes.Value(),
		Name:                 p.Name,
		ID:                   p.ID,
		ProductType:          p.productType.Value(),
		WooCommerceProductID: p.wooCommerceProductID.Value(),
	}
	if id := p.resolveDeviceID(); id != "" {
		s.DeviceID = &id
	} else {
		p.env.alert(ctx, "device id not set for product", "record_type", p.recordType, "id", p.ID)
	}
	return s, nil
}

func (p *Product) LoadFromCache(snapshot []byte) error {
	var s ProductSnapshot
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return fmt.Errorf("decode product snapshot: %w", err)
	}
	devices := []string{}
	if s.DeviceID != nil && *s.DeviceID != "" {
		devices = append(devices, *s.DeviceID)
	}
	if err := p.deviceConnect.Set(devices); err != nil {
		return fmt.Errorf("decode product snapshot: %w", err)
	}
	p.Name = s.Name
	if s.ID != "" {
		p.ID = s.ID
	}
	p.price.Set(s.Price)
	p.requiredMinutes.Set(s.RequiredMinutes)
	p.productType.Set(s.ProductType)
	p.wooCommerceProductID.Set(s.WooCommerceProductID)
	return nil
}

var _ Cacheable = (*Product)(nil)
