package suppliers

import "time"

// NormalizedProduct is the supplier-agnostic product shape every
// adapter produces. SupplierProductID is stable across syncs for the
// same upstream item and unique within one supplier. Prices are in
// currency units, not cents. Every product carries at least one
// variant.
type NormalizedProduct struct {
	SupplierProductID string           `json:"supplier_product_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Category          string           `json:"category"`
	Tags              []string         `json:"tags"`
	Images            []ProductImage   `json:"images"`
	Variants          []ProductVariant `json:"variants"`
	SupplierSKU       string           `json:"supplier_sku"`
	SupplierPrice     float64          `json:"supplier_price"`
}

type ProductImage struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

type ProductVariant struct {
	ID                string            `json:"id"`
	SKU               string            `json:"sku"`
	Barcode           string            `json:"barcode,omitempty"`
	Title             string            `json:"title"`
	Price             float64           `json:"price"`
	CompareAtPrice    *float64          `json:"compare_at_price,omitempty"`
	Cost              float64           `json:"cost"`
	InventoryQuantity int               `json:"inventory_quantity"`
	Weight            *float64          `json:"weight,omitempty"`
	Options           map[string]string `json:"options,omitempty"`
}

// NormalizedInventory is one variant's stock level. Available mirrors
// Quantity > 0 unless the supplier reports availability independently
// of the count.
type NormalizedInventory struct {
	SupplierProductID string `json:"supplier_product_id"`
	VariantID         string `json:"variant_id"`
	SKU               string `json:"sku"`
	Quantity          int    `json:"quantity"`
	Available         bool   `json:"available"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type OrderItem struct {
	SupplierProductID string  `json:"supplier_product_id"`
	VariantID         string  `json:"variant_id"`
	SKU               string  `json:"sku"`
	Quantity          int     `json:"quantity"`
	Price             float64 `json:"price"`
}

type Address struct {
	Name     string `json:"name"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city"`
	Province string `json:"province"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone,omitempty"`
}

// OrderCreateRequest is an order submitted to a supplier for drop-ship
// fulfillment.
type OrderCreateRequest struct {
	ExternalOrderID string      `json:"external_order_id"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shipping_address"`
	Note            string      `json:"note,omitempty"`
}

type OrderCreateResponse struct {
	SupplierOrderID string      `json:"supplier_order_id"`
	Status          OrderStatus `json:"status"`
	Message         string      `json:"message,omitempty"`
}

type NormalizedOrder struct {
	SupplierOrderID string      `json:"supplier_order_id"`
	Status          OrderStatus `json:"status"`
	Items           []OrderItem `json:"items"`
	Total           float64     `json:"total"`
	Currency        string      `json:"currency"`
	CreatedAt       time.Time   `json:"created_at"`
}

type TrackingStatus string

const (
	TrackingStatusPending        TrackingStatus = "pending"
	TrackingStatusInTransit      TrackingStatus = "in_transit"
	TrackingStatusOutForDelivery TrackingStatus = "out_for_delivery"
	TrackingStatusDelivered      TrackingStatus = "delivered"
	TrackingStatusException      TrackingStatus = "exception"
)

// TrackingEvent entries are append-only and chronological.
type TrackingEvent struct {
	Description string    `json:"description"`
	Location    string    `json:"location,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type TrackingInfo struct {
	Carrier        string          `json:"carrier"`
	TrackingNumber string          `json:"tracking_number"`
	Status         TrackingStatus  `json:"status"`
	Events         []TrackingEvent `json:"events,omitempty"`
}

type Capabilities struct {
	ReadProducts  bool `json:"read_products"`
	ReadInventory bool `json:"read_inventory"`
	CreateOrders  bool `json:"create_orders"`
	ReadOrders    bool `json:"read_orders"`
	GetTracking   bool `json:"get_tracking"`
}

type ConnectionTestResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

// ProductPage is one page of fetched products. Total is -1 when the
// source does not report an overall count. NextCursor is set only by
// cursor-paginated sources and is opaque to callers.
type ProductPage struct {
	Items      []NormalizedProduct `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	HasMore    bool                `json:"has_more"`
	NextCursor string              `json:"next_cursor,omitempty"`
}
