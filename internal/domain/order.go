package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

type OrderItem struct {
	Name    string  `json:"name"`
	Qty     int     `json:"qty"`
	Image   string  `json:"image"`
	Price   float64 `json:"price"`
	Product string  `json:"product"`
}

type PaymentResult struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Email  string `json:"email"`
}

// OrderRequest is the payload posted to the backend order endpoint.
// PaymentResult is sent as null when no card confirmation took place.
type OrderRequest struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	PaymentResult   *PaymentResult  `json:"paymentResult"`
}

type Order struct {
	ID              string          `json:"_id"`
	User            *OrderUser      `json:"user,omitempty"`
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TaxPrice        float64         `json:"taxPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// OrderUser is the order owner. List endpoints populate it with the user's
// name, other endpoints send only the id string.
type OrderUser struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (u *OrderUser) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &u.ID)
	}
	type plain OrderUser
	return json.Unmarshal(data, (*plain)(u))
}

// Revenue sums the totals of paid orders.
func Revenue(orders []Order) float64 {
	var total float64
	for _, o := range orders {
		if o.IsPaid {
			total += o.TotalPrice
		}
	}
	return total
}
