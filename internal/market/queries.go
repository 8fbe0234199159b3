package market

import (
	"context"
	"encoding/json"
	"fmt"
)

const storesQuery = `query { stores { name store_number } }`

const productByStoreQuery = `
query ProductByStore($productId: Int!, $storeId: Int!) {
  product(productId: $productId, storeId: $storeId) {
    title
    in_assortment
    available
  }
}`

// Store is one entry in the chain's store directory.
type Store struct {
	Name string `json:"name"`

	// The service has been seen returning store_number both as a JSON
	// number and as a quoted string; json.Number tolerates either.
	Number json.Number `json:"store_number"`
}

// ID returns the numeric store id.
func (s Store) ID() (int, error) {
	n, err := s.Number.Int64()
	if err != nil {
		return 0, fmt.Errorf("store %q: bad store_number %q: %w", s.Name, s.Number, err)
	}
	return int(n), nil
}

// Product is the per-store availability record for one product.
type Product struct {
	Title        string `json:"title"`
	InAssortment bool   `json:"in_assortment"`
	Available    bool   `json:"available"`
}

// NoProductError reports a well-formed response whose product field was
// null or absent: the service has no record of this product/store pair.
type NoProductError struct {
	ProductID int
	StoreID   int
}

func (e *NoProductError) Error() string {
	return fmt.Sprintf("no product data for product %d at store %d", e.ProductID, e.StoreID)
}

// Stores fetches the full store directory.
func (c *Client) Stores(ctx context.Context) ([]Store, error) {
	data, err := c.Query(ctx, storesQuery, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Stores []Store `json:"stores"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("graphql: decode stores: %w", err)
	}
	return out.Stores, nil
}

// ProductAt fetches the availability of productID at storeID.
func (c *Client) ProductAt(ctx context.Context, productID, storeID int) (*Product, error) {
	data, err := c.Query(ctx, productByStoreQuery, map[string]any{
		"productId": productID,
		"storeId":   storeID,
	})
	if err != nil {
		return nil, err
	}

	var out struct {
		Product *Product `json:"product"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("graphql: decode product: %w", err)
	}
	if out.Product == nil {
		return nil, &NoProductError{ProductID: productID, StoreID: storeID}
	}
	return out.Product, nil
}
