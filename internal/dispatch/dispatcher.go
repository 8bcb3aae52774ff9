// Package dispatch performs authenticated order mutations one at a time and
// folds every outcome into a classified *Error.
//
// The busy latch belongs to the dispatcher, not to an order: while one call is
// in flight every other request on the same dispatcher is refused, not queued.
// Nothing orders calls made through different dispatchers (an admin and a
// customer in separate sessions); the gateway is the only lock owner there.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"storefront/internal/gateway"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

type Kind int

const (
	// KindUnknown is what KindOf reports for errors that did not come from a dispatcher.
	KindUnknown Kind = iota
	// KindGuard is a request the state machine forbids; it never reaches the network.
	KindGuard
	KindBusy
	KindUnauthorized
	KindTransport
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindGuard:
		return "guard"
	case KindBusy:
		return "busy"
	case KindUnauthorized:
		return "unauthorized"
	case KindTransport:
		return "transport"
	case KindRejected:
		return "rejected"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const SessionExpiredMessage = "session expired, please log in again"

type Error struct {
	Kind    Kind
	Action  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err. For anything that is not a *Error it
// returns KindUnknown and false.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return KindUnknown, false
}

// Classify maps a gateway error for the named operation into an *Error.
func Classify(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	generic := "failed to " + op
	var (
		se *gateway.StatusError
		re *gateway.RejectedError
	)
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		return &Error{Kind: KindUnauthorized, Action: op, Message: SessionExpiredMessage, Err: err}
	case errors.As(err, &re):
		return &Error{Kind: KindRejected, Action: op, Message: orDefault(re.Message, generic), Err: err}
	case errors.As(err, &se):
		return &Error{Kind: KindTransport, Action: op, Message: orDefault(se.Message, generic), Err: err}
	default:
		return &Error{Kind: KindTransport, Action: op, Message: generic, Err: err}
	}
}

func orDefault(msg, fallback string) string {
	if strings.TrimSpace(msg) == "" {
		return fallback
	}
	return msg
}

type Gateway interface {
	Mutate(ctx context.Context, token, orderID string, action lifecycle.Action, text string) error
}

type TokenSource interface {
	Token() (string, error)
}

type Config struct {
	// PanicOnGuard turns guard violations into panics for development builds.
	PanicOnGuard bool
}

type Dispatcher struct {
	gw     Gateway
	tokens TokenSource
	cfg    Config
	busy   atomic.Bool
}

func New(gw Gateway, tokens TokenSource, cfg Config) *Dispatcher {
	return &Dispatcher{gw: gw, tokens: tokens, cfg: cfg}
}

// Busy reports whether a mutation is in flight.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Dispatch runs action on o as role. On success it returns the status the
// order now has; on failure it returns a *Error and the caller must not change
// any local state.
func (d *Dispatcher) Dispatch(ctx context.Context, o model.Order, role model.Role, action lifecycle.Action, text string) (model.Status, error) {
	op := label(action)

	t, err := lifecycle.Check(o.OrderStatus, role, action, text)
	if err != nil {
		slog.Error("action refused before dispatch", "order", o.ID, "action", action, "role", role, "status", o.OrderStatus, "error", err)
		if d.cfg.PanicOnGuard {
			panic(fmt.Sprintf("dispatch guard: %v", err))
		}
		return "", &Error{Kind: KindGuard, Action: op, Message: err.Error(), Err: err}
	}

	if !d.busy.CompareAndSwap(false, true) {
		return "", &Error{Kind: KindBusy, Action: op, Message: "another action is still in progress"}
	}
	defer d.busy.Store(false)

	token, err := d.tokens.Token()
	if err != nil {
		return "", &Error{Kind: KindUnauthorized, Action: op, Message: SessionExpiredMessage, Err: err}
	}

	if err := d.mutate(ctx, token, o.ID, action, strings.TrimSpace(text)); err != nil {
		de := Classify(op, err)
		slog.Warn("order action failed", "order", o.ID, "action", action, "kind", de.Kind, "error", err)
		return "", de
	}

	slog.Info("order action applied", "order", o.ID, "action", action, "status", t.To)
	return t.To, nil
}

// mutate turns a panic in the gateway into an ordinary error so it stops here
// instead of reaching the view.
func (d *Dispatcher) mutate(ctx context.Context, token, orderID string, action lifecycle.Action, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	return d.gw.Mutate(ctx, token, orderID, action, text)
}

func (d *Dispatcher) Process(ctx context.Context, o model.Order) (model.Status, error) {
	return d.Dispatch(ctx, o, model.RoleAdmin, lifecycle.ActionProcess, "")
}

func (d *Dispatcher) Deliver(ctx context.Context, o model.Order) (model.Status, error) {
	return d.Dispatch(ctx, o, model.RoleAdmin, lifecycle.ActionDeliver, "")
}

func (d *Dispatcher) Reject(ctx context.Context, o model.Order, reason string) (model.Status, error) {
	return d.Dispatch(ctx, o, model.RoleAdmin, lifecycle.ActionReject, reason)
}

func (d *Dispatcher) ConfirmDelivery(ctx context.Context, o model.Order, note string) (model.Status, error) {
	return d.Dispatch(ctx, o, model.RoleCustomer, lifecycle.ActionConfirmDelivery, note)
}

func (d *Dispatcher) Cancel(ctx context.Context, o model.Order, reason string) (model.Status, error) {
	return d.Dispatch(ctx, o, model.RoleCustomer, lifecycle.ActionCancel, reason)
}

func label(a lifecycle.Action) string {
	return strings.ReplaceAll(string(a), "-", " ")
}
