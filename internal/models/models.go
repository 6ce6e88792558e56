package models

import (
	"time"
)

// StorageType classifies where an assembly item is kept.
type StorageType string

const (
	StorageFridge  StorageType = "FRIDGE"
	StorageFreezer StorageType = "FREEZER"
	StorageOther   StorageType = "OTHER"
)

// Demand source tags attached by the kitchen platform to primary items.
const (
	SourceOnline = "ONLINE"
	SourceEvent  = "EVENT"
)

// MergeKey identifies "the same item" across delivery groups. Two line items
// with equal keys are consolidated when they land in the same group. The local
// positional id is never part of identity.
type MergeKey struct {
	ItemCode int     `json:"itemCode"`
	MeasCode int     `json:"measCode"`
	MeasQty  float64 `json:"measQty"`
}

// LineItem is a single orderable row inside a delivery group.
//
// ID is positional (dense 1..N within the group) and reassigned after every
// structural mutation. ReqQty is the only field user edits change directly;
// OriginalQty holds the value ReqQty had when the group was loaded (or last
// committed) and is used for dirty detection only.
type LineItem struct {
	ID             int         `json:"id"`
	ItemCode       int         `json:"itemCode"`
	ItemName       string      `json:"itemName"`
	ItemType       string      `json:"itemType"`
	StorageType    StorageType `json:"storageType"`
	Source         string      `json:"source,omitempty"`
	VegType        string      `json:"vegType,omitempty"`
	MeasCode       int         `json:"measCode"`
	MeasQty        float64     `json:"measQty"`
	UOM            string      `json:"uom"`
	AvailableQty   int         `json:"availableQty"`
	RecommendedQty int         `json:"recommendedQty"`
	MaxQty         int         `json:"maxQty"`
	ReqQty         int         `json:"reqQty"`
	OriginalQty    int         `json:"originalQty"`
	Checked        bool        `json:"checked"`
	DeliveryDate   string      `json:"deliveryDate"`
}

// Key returns the merge identity of the item.
func (li LineItem) Key() MergeKey {
	return MergeKey{ItemCode: li.ItemCode, MeasCode: li.MeasCode, MeasQty: li.MeasQty}
}

// GroupConfig describes one delivery date plus the historical window the
// kitchen platform should use when recommending quantities for it.
type GroupConfig struct {
	DeliveryDate  time.Time `json:"deliveryDate"`
	Day           string    `json:"day"`
	SaleDays      []string  `json:"saleDays,omitempty"`
	SaleDates     []string  `json:"saleDates,omitempty"`
	PrevWeekCount int       `json:"prevWeekCount"`
}

// DateString renders the delivery date the way the upstream API expects it.
func (c GroupConfig) DateString() string {
	return c.DeliveryDate.Format("2006-01-02")
}

// DeliveryGroup holds the ordered line items destined for a single delivery
// date. IDs always form a dense 1..N sequence matching list position.
type DeliveryGroup struct {
	Config GroupConfig `json:"config"`
	Items  []LineItem  `json:"items"`
}

// CatalogUOM is one unit-of-measure option for a catalog item.
type CatalogUOM struct {
	MeasCode int     `json:"measCode"`
	Qty      float64 `json:"qty"`
	UOM      string  `json:"uom"`
}

// CatalogItem is an entry in the kitchen's assembly item catalog, used by the
// add-item picker and the assembly item maintenance screen.
type CatalogItem struct {
	ID          int          `json:"id,omitempty"`
	ItemCode    int          `json:"itemCode"`
	ItemName    string       `json:"itemName"`
	ItemType    string       `json:"itemType"`
	StorageType StorageType  `json:"storageType"`
	MaxQty      int          `json:"maxQty"`
	VegType     string       `json:"vegType,omitempty"`
	UOMList     []CatalogUOM `json:"uom_list,omitempty"`
}

// AvailabilityRow is the upstream response shape for the per-group
// availability fetch that seeds the cart.
type AvailabilityRow struct {
	ItemCode       int         `json:"itemCode"`
	ItemName       string      `json:"itemName"`
	ItemType       string      `json:"itemType"`
	StorageType    StorageType `json:"storageType"`
	Source         string      `json:"mainItemName,omitempty"`
	AvailableQty   int         `json:"availableQty"`
	RecommendedQty int         `json:"recommendedQty"`
	MaxQty         int         `json:"maxQty"`
	MeasCode       int         `json:"measCode"`
	MeasQty        float64     `json:"measQty"`
	UOM            string      `json:"uom"`
}

// OrderMeasurement is the measurement block of a submitted order line.
type OrderMeasurement struct {
	MeasurementCode int     `json:"measurementCode"`
	MeasurementDesc string  `json:"measurementDesc"`
	Qty             float64 `json:"qty"`
	Rate            float64 `json:"rate"`
}

// OrderItemPayload is one changed row mapped to the upstream order API.
type OrderItemPayload struct {
	ItemCode         int                `json:"itemCode"`
	ItemType         string             `json:"itemType"`
	Quantity         int                `json:"quantity"`
	Remarks          string             `json:"remarks"`
	ListMeasurements []OrderMeasurement `json:"listMeasurements"`
	ItemDelDate      string             `json:"itemDelDate"`
}

// Order is a placed order as reported by the delivery API.
type Order struct {
	ID              int     `json:"id,omitempty"`
	OrderID         int     `json:"orderId"`
	CloudKitchenID  int     `json:"cloudKitchenId"`
	DeliveryDate    string  `json:"deliveryDate"`
	OrderPlacedDate string  `json:"orderPlacedDate"`
	OrderStatus     string  `json:"orderStatus"`
	ItemsCount      int     `json:"itemsCount"`
	Pantry          string  `json:"pantry"`
	SubTotal        float64 `json:"subTotal"`
	Tax             float64 `json:"tax"`
	TotalOrderAmt   float64 `json:"totalOrderAmt"`
	CanEdit         *bool   `json:"canEdit"`
}

// Order status values used by the delivery API.
const (
	OrderStatusWaiting   = "WAITING"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// StockRow is one row of an uploaded stock count.
type StockRow struct {
	ID           int     `json:"id"`
	ItemName     string  `json:"item_name"`
	FridgeFreeze string  `json:"fridge_freeze"`
	AvailableQty float64 `json:"available_qty"`
	UOM          string  `json:"uom"`
}

// StockData wraps a stock upload stored by the kitchen platform.
type StockData struct {
	DataID    int        `json:"dataId"`
	DataType  string     `json:"dataType"`
	Status    string     `json:"status"`
	DataValue []StockRow `json:"dataValue"`
}
