// Package lifecycle decides which order status changes are legal.
//
// The transition graph depends on the order channel: delivery and pickup
// orders follow short paths, every other channel walks the full kitchen
// pipeline. Every non-terminal status may be cancelled. The package holds no
// mutable state; a Machine is safe for concurrent use.
package lifecycle

import (
	"errors"
	"fmt"

	"restaurant-backoffice/internal/domains/order/model"
)

// ErrInvalidTransition is matched by every *InvalidTransitionError
var ErrInvalidTransition = errors.New("invalid status transition")

// InvalidTransitionError describes a rejected status change
type InvalidTransitionError struct {
	Channel   model.Channel
	From      model.OrderStatus
	Requested model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move %s order from %q to %q", e.Channel, e.From, e.Requested)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Option configures a Machine
type Option func(*Machine)

// WithKitchenStages inserts confirmed -> preparing between pending and the
// first delivery/pickup hop. Off by default; see ORDER_KITCHEN_STAGES.
func WithKitchenStages() Option {
	return func(m *Machine) {
		m.kitchenStages = true
	}
}

// Machine is the channel-parameterized order status state machine
type Machine struct {
	kitchenStages bool
	paths         map[model.Channel][]model.OrderStatus
	fullPath      []model.OrderStatus
}

// NewMachine builds the transition graphs once
func NewMachine(opts ...Option) *Machine {
	m := &Machine{}
	for _, opt := range opts {
		opt(m)
	}

	delivery := []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusOnTheWay,
		model.OrderStatusPickedUp,
		model.OrderStatusCompleted,
	}
	pickup := []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusReadyToPickup,
		model.OrderStatusCompleted,
	}
	if m.kitchenStages {
		delivery = withKitchen(delivery)
		pickup = withKitchen(pickup)
	}

	m.paths = map[model.Channel][]model.OrderStatus{
		model.ChannelDelivery: delivery,
		model.ChannelPickup:   pickup,
	}
	m.fullPath = []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusConfirmed,
		model.OrderStatusPreparing,
		model.OrderStatusReadyToPickup,
		model.OrderStatusPickedUp,
		model.OrderStatusOnTheWay,
		model.OrderStatusCompleted,
	}
	return m
}

// withKitchen returns pending, confirmed, preparing, then the rest of path
func withKitchen(path []model.OrderStatus) []model.OrderStatus {
	out := make([]model.OrderStatus, 0, len(path)+2)
	out = append(out, path[0], model.OrderStatusConfirmed, model.OrderStatusPreparing)
	return append(out, path[1:]...)
}

// pathFor returns the linear happy path of a channel
func (m *Machine) pathFor(channel model.Channel) []model.OrderStatus {
	if p, ok := m.paths[channel]; ok {
		return p
	}
	return m.fullPath
}

// AllowedNextStatuses returns the statuses current may move to, in lifecycle
// order. Terminal and unknown statuses yield an empty slice. A status that
// is valid but not on the channel's path can only be cancelled.
func (m *Machine) AllowedNextStatuses(channel model.Channel, current model.OrderStatus) []model.OrderStatus {
	if !current.IsValid() || current.IsTerminal() {
		return []model.OrderStatus{}
	}

	path := m.pathFor(channel)
	next := make([]model.OrderStatus, 0, 2)
	for i, st := range path {
		if st == current && i+1 < len(path) {
			next = append(next, path[i+1])
			break
		}
	}
	return append(next, model.OrderStatusCancelled)
}

// CanTransition reports whether requested is in AllowedNextStatuses
func (m *Machine) CanTransition(channel model.Channel, current, requested model.OrderStatus) bool {
	for _, st := range m.AllowedNextStatuses(channel, current) {
		if st == requested {
			return true
		}
	}
	return false
}

// ValidateTransition returns nil when the change is legal, otherwise an
// *InvalidTransitionError. Requesting the current status is rejected too.
func (m *Machine) ValidateTransition(channel model.Channel, current, requested model.OrderStatus) error {
	if !m.CanTransition(channel, current, requested) {
		return &InvalidTransitionError{
			Channel:   channel,
			From:      current,
			Requested: requested,
		}
	}
	return nil
}

// Path exposes the happy path of a channel (used to render progress bars)
func (m *Machine) Path(channel model.Channel) []model.OrderStatus {
	path := m.pathFor(channel)
	out := make([]model.OrderStatus, len(path))
	copy(out, path)
	return out
}
