package model

import (
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusProcessing, StatusDelivered, StatusConfirmed, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// FilterAll passes every order through a status projection.
const FilterAll = "all"

type Order struct {
	ID                 string      `json:"id"`
	OrderNumber        string      `json:"orderNumber"`
	UserID             string      `json:"userId,omitempty"`
	OrderStatus        Status      `json:"orderStatus"`
	Items              []OrderItem `json:"items"`
	TotalAmount        int64       `json:"totalAmount"`
	PaymentMethod      string      `json:"paymentMethod"`
	CustomerNotes      string      `json:"customerNotes,omitempty"`
	Customer           Customer    `json:"customer"`
	RejectionReason    string      `json:"rejectionReason,omitempty"`
	CancellationReason string      `json:"cancellationReason,omitempty"`
	ConfirmationNote   string      `json:"confirmationNote,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
}

type OrderItem struct {
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	UnitPrice   int64    `json:"unitPrice"`
	TotalPrice  int64    `json:"totalPrice"`
	Images      []string `json:"images"`
}

type Customer struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Clone returns a deep copy so cached orders never share item or image slices.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		for i, it := range o.Items {
			c.Items[i] = it
			if it.Images != nil {
				c.Items[i].Images = append([]string(nil), it.Images...)
			}
		}
	}
	return c
}
