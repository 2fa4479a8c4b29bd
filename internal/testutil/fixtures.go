package testutil

import "github.com/mesh-intelligence/eric/pkg/types"

// DeviceRaw returns a raw device item with a status9 device type column.
func DeviceRaw(id, name, deviceType string) types.RawItem {
	return types.RawItem{
		ID:   id,
		Name: name,
		ColumnValues: []types.ColumnData{
			{"id": "status9", "text": deviceType},
		},
	}
}

// ProductRaw returns a raw product item. deviceID may be "" for a product
// with no device relation.
func ProductRaw(id, name, deviceID, price, minutes, productType string) types.RawItem {
	devices := []any{}
	if deviceID != "" {
		devices = append(devices, deviceID)
	}
	return types.RawItem{
		ID:   id,
		Name: name,
		ColumnValues: []types.ColumnData{
			{"id": "link_to_devices6", "text": name, "linked_item_ids": devices},
			{"id": "connect_boards8", "text": "", "linked_item_ids": []any{}},
			{"id": "board_relation4", "text": "", "linked_item_ids": nil},
			{"id": "numbers", "text": price},
			{"id": "numbers7", "text": minutes},
			{"id": "text3", "text": nil},
			{"id": "status3", "text": productType},
		},
	}
}
