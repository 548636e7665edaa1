package model

import (
	"encoding/json"
	"strings"
	"time"
)

// OrderStatus is the lifecycle state of an order as seen by the dispatcher.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderOnTheWay  OrderStatus = "on_the_way"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Open reports whether the order still needs a courier.
func (s OrderStatus) Open() bool {
	switch s {
	case OrderOnTheWay, OrderDelivered, OrderCancelled:
		return false
	}
	return true
}

// Order is a placed customer order awaiting delivery.
type Order struct {
	ID              string          `json:"id"`
	PublicID        string          `json:"public_id"`
	ChefID          string          `json:"chef_id"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	DeliveryAddress DeliveryAddress `json:"delivery_address"`
	Items           []LineItem      `json:"items"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`

	// Set once an external courier job has been booked.
	TrackingURL   string `json:"tracking_url,omitempty"`
	ExternalJobID string `json:"external_job_id,omitempty"`
}

// Reference returns the identifier shown to couriers and customers.
func (o Order) Reference() string {
	if o.PublicID != "" {
		return o.PublicID
	}
	return o.ID
}

// LineItem is one meal in an order.
type LineItem struct {
	MealID   string `json:"meal_id"`
	Name     string `json:"name,omitempty"`
	Quantity int    `json:"quantity"`
	// PrepTimeMinutes overrides the meal's own estimate when set.
	PrepTimeMinutes *int `json:"prep_time_minutes,omitempty"`
}

// DeliveryAddress accepts either a plain string or a structured object on the
// wire. Raw holds the string form when that is what was provided.
type DeliveryAddress struct {
	Raw         string       `json:"-"`
	Street      string       `json:"street,omitempty"`
	City        string       `json:"city,omitempty"`
	Postcode    string       `json:"postcode,omitempty"`
	Country     string       `json:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

type structuredAddress DeliveryAddress

// UnmarshalJSON decodes both the string and the object form.
func (a *DeliveryAddress) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = DeliveryAddress{Raw: s}
		return nil
	}
	var st structuredAddress
	if err := json.Unmarshal(b, &st); err != nil {
		return err
	}
	*a = DeliveryAddress(st)
	return nil
}

// MarshalJSON writes the string form when no structured parts are set.
func (a DeliveryAddress) MarshalJSON() ([]byte, error) {
	if a.Raw != "" && a.Street == "" && a.City == "" && a.Postcode == "" && a.Country == "" && a.Coordinates == nil {
		return json.Marshal(a.Raw)
	}
	return json.Marshal(structuredAddress(a))
}

// String renders the address on a single line.
func (a DeliveryAddress) String() string {
	if a.Raw != "" {
		return strings.TrimSpace(a.Raw)
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{a.Street, a.City, a.Postcode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Empty reports whether the address carries no usable text.
func (a DeliveryAddress) Empty() bool { return a.String() == "" }

// PortionSize classifies the serving size of a meal.
type PortionSize string

const (
	PortionSmall   PortionSize = "small"
	PortionRegular PortionSize = "regular"
	PortionLarge   PortionSize = "large"
	PortionFamily  PortionSize = "family"
)

// Meal holds the attributes of a menu item relevant to dispatch.
type Meal struct {
	ID                       string      `json:"id"`
	Name                     string      `json:"name"`
	PrepTimeMinutes          int         `json:"prep_time_minutes"`
	ServingCount             int         `json:"serving_count,omitempty"`
	PortionSize              PortionSize `json:"portion_size,omitempty"`
	PackageWeightGrams       int         `json:"package_weight_grams,omitempty"`
	RequiresSpecialPackaging bool        `json:"requires_special_packaging,omitempty"`
}
