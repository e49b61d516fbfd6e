package service

import (
	"errors"
	"fmt"

	"github.com/mdtstech/nexus-techhub-backend/internal/app/model"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

// InvalidTransitionError reports a rejected status change. It matches
// ErrInvalidStatusTransition with errors.Is.
type InvalidTransitionError struct {
	Kind string // "order" or "payment"
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition from %q to %q", e.Kind, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidStatusTransition
}

var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:    {model.OrderStatusProcessing, model.OrderStatusCancelled},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled},
	model.OrderStatusShipped:    {model.OrderStatusDelivered, model.OrderStatusCancelled},
	model.OrderStatusDelivered:  {},
	model.OrderStatusCancelled:  {},
}

var paymentTransitions = map[model.PaymentStatus][]model.PaymentStatus{
	model.PaymentStatusPending:  {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusPaid:     {model.PaymentStatusRefunded},
	model.PaymentStatusFailed:   {},
	model.PaymentStatusRefunded: {},
}

// IsValidOrderTransition reports whether an order may move from one status
// to another. Writing the current status again is allowed.
func IsValidOrderTransition(from, to model.OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsValidPaymentTransition(from, to model.PaymentStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func orderTransitionError(from, to model.OrderStatus) error {
	return &InvalidTransitionError{Kind: "order", From: string(from), To: string(to)}
}

func paymentTransitionError(from, to model.PaymentStatus) error {
	return &InvalidTransitionError{Kind: "payment", From: string(from), To: string(to)}
}
