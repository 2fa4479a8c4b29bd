package items

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mesh-intelligence/eric/pkg/columns"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// DeviceBoardID is the board holding device items.
const DeviceBoardID = "3923707691"

// DeviceSnapshot is the cached projection of a Device.
type DeviceSnapshot struct {
	Name       string   `json:"name"`
	ID         string   `json:"id"`
	DeviceID   string   `json:"device_id"`
	ProductIDs []string `json:"product_ids"`
	DeviceType string   `json:"device_type"`
}

// Device is a repairable device model, e.g. "iPhone 12".
type Device struct {
	CacheableItem

	// ProductIDs are the products sold for this device. They are derived
	// from the products' device relation, not from a device column.
	ProductIDs []string

	deviceType *columns.Status
}

// NewDevice returns an unloaded device. id may be "" for a device that is
// yet to be created.
func NewDevice(env *Env, id string) *Device {
	d := &Device{
		ProductIDs: []string{},
		deviceType: columns.NewStatus("status9"),
	}
	d.CacheableItem = newCacheableItem(newItem(env, types.RecordTypeDevice, DeviceBoardID, id,
		Field{Name: "device_type", Value: d.deviceType},
	), d)
	return d
}

// DeviceType returns the device type label, e.g. "Phone".
func (d *Device) DeviceType() string { return d.deviceType.Value() }

// SetDeviceType stages a new device type label.
func (d *Device) SetDeviceType(v string) error { return d.Set("device_type", v) }

func (d *Device) CacheKey() string { return CacheKey(types.RecordTypeDevice, d.ID) }

func (d *Device) PrepareCacheData(_ context.Context) (any, error) {
	return DeviceSnapshot{
		Name:       d.Name,
		ID:         d.ID,
		DeviceID:   d.ID,
		ProductIDs: append([]string{}, d.ProductIDs...),
		DeviceType: d.deviceType.Value(),
	}, nil
}

func (d *Device) LoadFromCache(snapshot []byte) error {
	var s DeviceSnapshot
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return fmt.Errorf("decode device snapshot: %w", err)
	}
	d.Name = s.Name
	if s.ID != "" {
		d.ID = s.ID
	}
	d.ProductIDs = append([]string{}, s.ProductIDs...)
	d.deviceType.Set(s.DeviceType)
	return nil
}

// Products loads the device's products, from the cache where possible.
func (d *Device) Products(ctx context.Context) ([]*Product, error) {
	return FetchProducts(ctx, d.env, d.ProductIDs)
}

var _ Cacheable = (*Device)(nil)
