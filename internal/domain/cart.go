package domain

import "strings"

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "Credit Card"
	PaymentPayPal     PaymentMethod = "PayPal"
)

// DefaultPaymentMethod is what a fresh cart starts with.
const DefaultPaymentMethod = PaymentCreditCard

func (m PaymentMethod) Valid() bool {
	return m == PaymentCreditCard || m == PaymentPayPal
}

func (m PaymentMethod) String() string {
	return string(m)
}

// CartLineItem is one product entry in the cart.
type CartLineItem struct {
	ProductID      string  `json:"id"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"price"`
	Image          string  `json:"image"`
	Quantity       int     `json:"qty"`
	AvailableStock int     `json:"countInStock"`
}

type ShippingAddress struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Street     string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// MissingFields lists the JSON names of required fields that are blank.
func (a ShippingAddress) MissingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"address", a.Street},
		{"city", a.City},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
