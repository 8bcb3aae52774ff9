// Package view composes the order core for one screen. The same controller
// serves the admin and the customer screens; only the role differs.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/carousel"
	"storefront/internal/dispatch"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

var ErrUnknownOrder = errors.New("order is not in the current view")

type Lister interface {
	ListOrders(ctx context.Context, token string, role model.Role) ([]model.Order, error)
}

type Session interface {
	Token() (string, error)
	ForceLogout(returnTo string) bool
}

type Config struct {
	Role model.Role
	// Route is handed to the session on forced logout so the user lands back here.
	Route      string
	Gateway    Lister
	Dispatcher *dispatch.Dispatcher
	Session    Session
}

type Controller struct {
	role    model.Role
	route   string
	gw      Lister
	disp    *dispatch.Dispatcher
	session Session

	orders  *cache.Store
	cursors *carousel.Cursors
	group   singleflight.Group

	mu     sync.Mutex
	filter string
	banner string
}

func New(cfg Config) *Controller {
	return &Controller{
		role:    cfg.Role,
		route:   cfg.Route,
		gw:      cfg.Gateway,
		disp:    cfg.Dispatcher,
		session: cfg.Session,
		orders:  cache.New(),
		cursors: carousel.NewCursors(),
		filter:  model.FilterAll,
	}
}

func (c *Controller) Role() model.Role {
	return c.role
}

// Refresh reloads the whole list from the gateway. Concurrent callers share
// one request.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.refresh(ctx, false)
}

// refresh fetches the list. With fresh set it never joins a fetch already in
// flight, since that one may have started before a mutation the caller just
// made. A list fetched before the latest status patch is discarded.
func (c *Controller) refresh(ctx context.Context, fresh bool) error {
	if fresh {
		c.group.Forget("refresh")
	}
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		token, err := c.session.Token()
		if err != nil {
			return nil, &dispatch.Error{Kind: dispatch.KindUnauthorized, Action: "load orders", Message: dispatch.SessionExpiredMessage, Err: err}
		}

		gen := c.orders.Generation()
		orders, err := c.gw.ListOrders(ctx, token, c.role)
		if err != nil {
			return nil, dispatch.Classify("load orders", err)
		}

		if !c.orders.ReplaceAllSince(orders, gen) {
			slog.Debug("stale order list dropped", "role", c.role)
			return nil, nil
		}
		c.cursors.Retain(c.orders.IDs())
		slog.Debug("orders refreshed", "role", c.role, "count", len(orders))
		return nil, nil
	})
	if err != nil {
		return c.fail(err)
	}
	c.clearBanner()
	return nil
}

// Act runs one lifecycle action on a cached order. Admin screens reload the
// list afterwards to recompute aggregates; customer screens patch the order
// in place.
func (c *Controller) Act(ctx context.Context, orderID string, action lifecycle.Action, text string) error {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return c.fail(fmt.Errorf("%w: %s", ErrUnknownOrder, orderID))
	}

	status, err := c.disp.Dispatch(ctx, o, c.role, action, text)
	if err != nil {
		return c.fail(err)
	}

	c.orders.ApplyStatus(orderID, status)
	c.clearBanner()

	if c.role == model.RoleAdmin {
		return c.refresh(ctx, true)
	}
	return nil
}

// fail records err as the one visible error and tears the session down on 401.
func (c *Controller) fail(err error) error {
	msg := err.Error()
	var de *dispatch.Error
	if errors.As(err, &de) {
		msg = de.Message
		if de.Kind == dispatch.KindUnauthorized {
			c.session.ForceLogout(c.route)
		}
	}

	c.mu.Lock()
	c.banner = msg
	c.mu.Unlock()
	return err
}

func (c *Controller) clearBanner() {
	c.mu.Lock()
	c.banner = ""
	c.mu.Unlock()
}

// Banner is the latest error message, or "" when there is none.
func (c *Controller) Banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

func (c *Controller) DismissBanner() {
	c.clearBanner()
}

// SetFilter changes the status projection. Cursors are left alone.
func (c *Controller) SetFilter(filter string) {
	if filter == "" {
		filter = model.FilterAll
	}
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
}

func (c *Controller) Filter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Controller) Orders() []model.Order {
	return c.orders.ProjectByStatus(c.Filter())
}

func (c *Controller) Order(orderID string) (model.Order, bool) {
	return c.orders.Get(orderID)
}

func (c *Controller) Counts() map[model.Status]int {
	return c.orders.Counts()
}

// Options lists the actions this screen's role may take on the order now.
func (c *Controller) Options(orderID string) []lifecycle.Option {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return nil
	}
	return lifecycle.AllowedActions(o, c.role)
}

func (c *Controller) Busy() bool {
	return c.disp.Busy()
}

func (c *Controller) Image(orderID string) (carousel.Frame, bool) {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return carousel.Frame{}, false
	}
	return carousel.Current(o, c.cursors.Get(orderID))
}

func (c *Controller) NextImage(orderID string) (carousel.Frame, bool) {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return carousel.Frame{}, false
	}
	return carousel.Current(o, c.cursors.Next(o))
}

func (c *Controller) PrevImage(orderID string) (carousel.Frame, bool) {
	o, ok := c.orders.Get(orderID)
	if !ok {
		return carousel.Frame{}, false
	}
	return carousel.Current(o, c.cursors.Prev(o))
}
