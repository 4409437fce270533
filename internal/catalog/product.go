package catalog

import "time"

// Product is a read-only snapshot row from the catalog. The cart treats it
// as authoritative but possibly stale; the server-side repository holds the
// real stock counts.
type Product struct {
	ID            string     `bson:"_id" json:"id"`
	Name          string     `bson:"name" json:"name"`
	Description   string     `bson:"description,omitempty" json:"description,omitempty"`
	PriceLovelace int64      `bson:"price_lovelace" json:"price_lovelace"`
	Stock         int        `bson:"stock" json:"stock"`
	IsActive      bool       `bson:"is_active" json:"is_active"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt     *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}
