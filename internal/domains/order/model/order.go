package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Channel is the fulfillment mode of an order
type Channel string

const (
	ChannelDelivery Channel = "delivery"
	ChannelPickup   Channel = "pickup"
	ChannelDineIn   Channel = "dinein"
)

// AllChannels lists every channel in display order
var AllChannels = []Channel{ChannelDelivery, ChannelPickup, ChannelDineIn}

func (c Channel) IsValid() bool {
	switch c {
	case ChannelDelivery, ChannelPickup, ChannelDineIn:
		return true
	}
	return false
}

func (c Channel) String() string {
	return string(c)
}

// ParseChannel normalizes a channel string coming from the wire.
// Unknown channels are rejected instead of silently defaulting.
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
	}
	return c, nil
}

// OrderStatus represents order status
type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusConfirmed     OrderStatus = "confirmed"
	OrderStatusPreparing     OrderStatus = "preparing"
	OrderStatusReadyToPickup OrderStatus = "ready_to_pickup"
	OrderStatusPickedUp      OrderStatus = "picked_up"
	OrderStatusOnTheWay      OrderStatus = "on_the_way"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

// AllOrderStatuses is the display vocabulary, in lifecycle order
var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusPreparing,
	OrderStatusReadyToPickup,
	OrderStatusPickedUp,
	OrderStatusOnTheWay,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

func (os OrderStatus) IsValid() bool {
	switch os {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusReadyToPickup, OrderStatusPickedUp, OrderStatusOnTheWay,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status
func (os OrderStatus) IsTerminal() bool {
	return os == OrderStatusCompleted || os == OrderStatusCancelled
}

func (os OrderStatus) String() string {
	return string(os)
}

// Order is the subset of a placed order this service reads and mutates.
// Line items are immutable once placed; only status and schedule change.
type Order struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	OrderNumber string          `json:"order_number" db:"order_number"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty" db:"customer_id"`
	OutletID    *uuid.UUID      `json:"outlet_id,omitempty" db:"outlet_id"`
	Channel     Channel         `json:"order_type" db:"channel"`
	Status      OrderStatus     `json:"status" db:"status"`
	DeliveryFee decimal.Decimal `json:"delivery_fee" db:"delivery_fee"`
	LineItems   []LineItem      `json:"line_items" db:"-"`

	// Scheduled fulfillment (nil = as soon as possible)
	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// MaxLineQuantity bounds the quantity of a single line item
const MaxLineQuantity = 999

// LineItem is one ordered menu item with its price snapshot
type LineItem struct {
	ItemID      string          `json:"item_id" db:"item_id"`
	CategoryIDs []string        `json:"category_ids" db:"category_ids"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
}

// Subtotal returns unitPrice * quantity
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	OrderID    uuid.UUID   `json:"order_id" db:"order_id"`
	FromStatus OrderStatus `json:"from_status" db:"from_status"`
	ToStatus   OrderStatus `json:"to_status" db:"to_status"`
	ChangedBy  *uuid.UUID  `json:"changed_by,omitempty" db:"changed_by"`
	ChangedAt  time.Time   `json:"changed_at" db:"changed_at"`
}

// ItemsSubtotal sums every line item
func (o *Order) ItemsSubtotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.Subtotal())
	}
	return total
}

// Validate checks the invariants an order must hold before rules run on it
func (o *Order) Validate() error {
	if !o.Channel.IsValid() {
		return ErrUnknownChannel
	}
	if !o.Status.IsValid() {
		return ErrInvalidStatus
	}
	if o.DeliveryFee.IsNegative() {
		return ErrInvalidDeliveryFee
	}
	for _, li := range o.LineItems {
		if li.ItemID == "" {
			return ErrInvalidLineItem
		}
		if li.Quantity <= 0 || li.Quantity > MaxLineQuantity || li.UnitPrice.IsNegative() {
			return ErrInvalidLineItem
		}
	}
	return nil
}
