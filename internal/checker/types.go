package checker

import "time"

// FallbackTitle is used when no store returns a product title.
const FallbackTitle = "Unknown product"

// StoreStatus is the availability of the product at one store.
type StoreStatus struct {
	Label   string `json:"label"`
	StoreID int    `json:"store_id"`

	// Located reports whether the store carries the product at all
	// (the service's in_assortment flag).
	Located bool `json:"located"`

	// InStock reports whether it is available right now.
	InStock bool `json:"in_stock"`
}

// Snapshot is the result of one collection cycle. Store entries keep the
// configured order regardless of how they were gathered.
type Snapshot struct {
	GeneratedAt    time.Time     `json:"generated_at_utc"`
	ProductID      int           `json:"product_id"`
	Title          string        `json:"title"`
	Source         string        `json:"source"`
	ProductPageURL string        `json:"product_page_url"`
	Stores         []StoreStatus `json:"stores"`
}
