package models

// CartStatus is the lifecycle state of a cart. A cart that left StatusCollecting is an order.
type CartStatus string

const (
	StatusCollecting           CartStatus = "collecting"
	StatusAwaitingConfirmation CartStatus = "awaiting_confirmation"
	StatusCancelled            CartStatus = "cancelled"
	StatusConfirmed            CartStatus = "confirmed"
)

type CartEvent string

const (
	EventConfirmOrder   CartEvent = "confirm_order"
	EventCancelOrder    CartEvent = "cancel_order"
	EventConfirmPayment CartEvent = "confirm_payment"
)

// transitions lists, per event, the states it may fire from and the state it leads to.
var transitions = map[CartEvent]struct {
	from []CartStatus
	to   CartStatus
}{
	EventConfirmOrder:   {from: []CartStatus{StatusCollecting}, to: StatusAwaitingConfirmation},
	EventCancelOrder:    {from: []CartStatus{StatusCollecting, StatusAwaitingConfirmation}, to: StatusCancelled},
	EventConfirmPayment: {from: []CartStatus{StatusAwaitingConfirmation}, to: StatusConfirmed},
}

func (s CartStatus) IsValid() bool {
	switch s {
	case StatusCollecting, StatusAwaitingConfirmation, StatusCancelled, StatusConfirmed:
		return true
	}
	return false
}

func (s CartStatus) IsTerminal() bool {
	return s == StatusCancelled || s == StatusConfirmed
}

// Next returns the state ev leads to from s, and false when the event is not allowed from s.
func (s CartStatus) Next(ev CartEvent) (CartStatus, bool) {
	t, ok := transitions[ev]
	if !ok {
		return s, false
	}
	for _, from := range t.from {
		if from == s {
			return t.to, true
		}
	}
	return s, false
}
