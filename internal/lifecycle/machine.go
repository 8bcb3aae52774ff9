// Package lifecycle defines which order status transitions exist, which actor
// may request each one and what text input it carries.
//
// The same table is consulted by the client as a pre-flight guard and by the
// development gateway as its authority, so the two can never drift apart.
package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"
)

type Action string

const (
	ActionProcess         Action = "process"
	ActionDeliver         Action = "deliver"
	ActionReject          Action = "reject"
	ActionConfirmDelivery Action = "confirm-delivery"
	ActionCancel          Action = "cancel"
)

// Input describes the text an action must carry. A zero Input means none.
type Input struct {
	// Field is the JSON body key the gateway expects.
	Field string
	Label string
}

func (in Input) Required() bool {
	return in.Field != ""
}

var (
	InputNone               = Input{}
	InputRejectionReason    = Input{Field: "reason", Label: "rejection reason"}
	InputCancellationReason = Input{Field: "reason", Label: "cancellation reason"}
	InputConfirmationNote   = Input{Field: "confirmationNote", Label: "confirmation note"}
)

type Transition struct {
	Action Action
	From   model.Status
	To     model.Status
	Actor  model.Role
	Input  Input
}

var transitions = []Transition{
	{Action: ActionProcess, From: model.StatusPending, To: model.StatusProcessing, Actor: model.RoleAdmin, Input: InputNone},
	{Action: ActionReject, From: model.StatusPending, To: model.StatusCancelled, Actor: model.RoleAdmin, Input: InputRejectionReason},
	{Action: ActionCancel, From: model.StatusPending, To: model.StatusCancelled, Actor: model.RoleCustomer, Input: InputCancellationReason},
	{Action: ActionDeliver, From: model.StatusProcessing, To: model.StatusDelivered, Actor: model.RoleAdmin, Input: InputNone},
	{Action: ActionConfirmDelivery, From: model.StatusDelivered, To: model.StatusConfirmed, Actor: model.RoleCustomer, Input: InputConfirmationNote},
}

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrActorNotAllowed   = errors.New("actor may not request this action")
	ErrIllegalTransition = errors.New("illegal status transition")
	ErrInputRequired     = errors.New("required text is empty")
)

// Option is one action an actor may take on an order right now.
type Option struct {
	Action Action
	To     model.Status
	Input  Input
}

func Actions() []Action {
	out := make([]Action, 0, len(transitions))
	for _, t := range transitions {
		out = append(out, t.Action)
	}
	return out
}

// Lookup returns the transition row for an action.
func Lookup(a Action) (Transition, bool) {
	for _, t := range transitions {
		if t.Action == a {
			return t, true
		}
	}
	return Transition{}, false
}

func CanTransition(from, to model.Status) bool {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

func IsTerminal(s model.Status) bool {
	return s == model.StatusConfirmed || s == model.StatusCancelled
}

// AllowedActions lists what role may request for the order in its current status.
// Terminal orders always yield an empty set.
func AllowedActions(o model.Order, role model.Role) []Option {
	var out []Option
	for _, t := range transitions {
		if t.From == o.OrderStatus && t.Actor == role {
			out = append(out, Option{Action: t.Action, To: t.To, Input: t.Input})
		}
	}
	return out
}

// Check validates a request before anything reaches the network and returns
// the transition it resolves to.
func Check(from model.Status, role model.Role, a Action, text string) (Transition, error) {
	t, ok := Lookup(a)
	if !ok {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	if t.Actor != role {
		return t, fmt.Errorf("%w: %s cannot %s", ErrActorNotAllowed, role, a)
	}
	if t.From != from {
		return t, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, t.To)
	}
	if t.Input.Required() && strings.TrimSpace(text) == "" {
		return t, fmt.Errorf("%w: %s", ErrInputRequired, t.Input.Label)
	}
	return t, nil
}
