package stock

import (
	"errors"
	"time"
)

// Product is one catalog item with its stock position. Products are owned by
// the catalog; the engine only adjusts Stock and UpdatedAt.
type Product struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	SKU               string    `json:"sku"`
	Category          string    `json:"category"`
	Price             float64   `json:"price"`
	Cost              float64   `json:"cost"`
	Stock             int       `json:"stock"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	Supplier          string    `json:"supplier"`
	Location          string    `json:"location"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// LowStock reports whether the product is at or below its threshold while
// still in stock. Zero stock is "out of stock", a distinct condition.
func (p Product) LowStock() bool {
	return p.Stock > 0 && p.Stock <= p.LowStockThreshold
}

// LowStockAlert signals that a product's stock has fallen to or below its
// configured threshold. IsNew distinguishes a breach observed during this
// sync from an already known condition.
type LowStockAlert struct {
	ID           int64  `json:"id"`
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	CurrentStock int    `json:"currentStock"`
	Threshold    int    `json:"threshold"`
	IsNew        bool   `json:"isNew"`
}

// UpdateType classifies a stock movement event in the sync payload.
type UpdateType string

const (
	// UpdateSale marks an outbound sale event.
	UpdateSale UpdateType = "sale"
	// UpdateRestock marks an inbound restock event.
	UpdateRestock UpdateType = "restock"
)

// StockUpdate is one movement event reported by the sync endpoint.
type StockUpdate struct {
	Type        UpdateType `json:"type"`
	ProductName string     `json:"productName"`
	Quantity    int        `json:"quantity"`
}

// SyncPayload is the response body of the inventory sync endpoint.
type SyncPayload struct {
	Products       []Product       `json:"products"`
	LowStockAlerts []LowStockAlert `json:"lowStockAlerts"`
	StockUpdates   []StockUpdate   `json:"stockUpdates"`
}

// ErrProductNotFound indicates a mutation targeted an unknown product.
var ErrProductNotFound = errors.New("stock: product not found")
