package cart

import "time"

// SchemaVersion tags the persisted cart record so a newer build can migrate
// an older shape instead of rejecting it.
const SchemaVersion = 1

// StorageKey is the fixed key the persisted cart lives under.
const StorageKey = "storefront:cart"

// Item is one cart line. At most one line exists per product; a second add
// merges quantities.
type Item struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart is the versioned persisted form of the buyer's selection.
type Cart struct {
	SchemaVersion int    `json:"schema_version"`
	Items         []Item `json:"items"`
}

// NewCart returns an empty cart at the current schema version.
func NewCart() *Cart {
	return &Cart{SchemaVersion: SchemaVersion}
}

func (c *Cart) clone() *Cart {
	out := &Cart{SchemaVersion: c.SchemaVersion, Items: make([]Item, len(c.Items))}
	copy(out.Items, c.Items)
	return out
}

func (c *Cart) find(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) quantityOf(productID string) int {
	if i := c.find(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}
