// Package store holds a small order domain declared with orm tags. It is the
// fixture the Go model loader is tested against.
package store

import (
	"time"
)

// Product is an item available for sale. Prices are in cents.
type Product struct {
	ID          int64     `json:"id" orm:"id,generated"`
	SKU         string    `json:"sku" orm:"natural"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int64     `json:"priceCents"`
	Inventory   int       `json:"inventory"`
	CreatedAt   time.Time `json:"createdAt" orm:"readonly"`
}

// Customer places orders.
type Customer struct {
	ID       int64    `json:"id" orm:"id,generated"`
	Email    string   `json:"email" orm:"natural"`
	FullName string   `json:"fullName"`
	Address  Address  `json:"address"`
	IsActive bool     `json:"isActive"`
	Orders   []*Order `json:"orders" orm:"opposite=customer"`
}

// Address is stored inline with its owner.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`
}

// Order is a transaction made by a customer.
type Order struct {
	ID         int64        `json:"id" orm:"id,generated"`
	Number     string       `json:"number" orm:"natural"`
	Customer   *Customer    `json:"customer" orm:"opposite=orders"`
	Status     OrderStatus  `json:"status"`
	TotalCents int64        `json:"totalCents"`
	Items      []*OrderItem `json:"items" orm:"cascade,opposite=order,position=lineNo"`
	OrderedAt  time.Time    `json:"orderedAt"`
}

// OrderItem is one line of an order. It snapshots the price at purchase time.
type OrderItem struct {
	ID        int64    `json:"id" orm:"id,generated"`
	Order     *Order   `json:"order" orm:"opposite=items"`
	LineNo    int      `json:"lineNo"`
	Product   *Product `json:"product"`
	Quantity  int      `json:"quantity"`
	UnitPrice int64    `json:"unitPrice"`
}

// OrderStatus is a custom type for type-safe status handling.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusPaid      OrderStatus = "PAID"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusCancelled OrderStatus = "CANCELLED"
)
