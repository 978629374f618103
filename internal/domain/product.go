package domain

// Product is a catalog entry as served by the backend. Older backend builds
// expose the identifier as "id", newer ones as "_id".
type Product struct {
	ID           string  `json:"_id,omitempty"`
	LegacyID     string  `json:"id,omitempty"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Brand        string  `json:"brand,omitempty"`
	Image        string  `json:"image"`
	Price        float64 `json:"price"`
	CountInStock int     `json:"countInStock"`
}

// Key returns the product identity used for cart line items.
func (p Product) Key() string {
	if p.LegacyID != "" {
		return p.LegacyID
	}
	return p.ID
}

func (p Product) InStock() bool {
	return p.CountInStock > 0
}
