package view

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/database"
	"storefront/internal/dispatch"
	"storefront/internal/gateway"
	"storefront/internal/handler"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
	"storefront/internal/mw"
	"storefront/internal/service"
	"storefront/internal/session"
)

const secret = "view-secret"

type env struct {
	orders *service.OrderService
	client *gateway.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()
	orderSvc := service.NewOrderService(database.NewMemoryOrders())
	authSvc := service.NewAuthService(database.NewMemoryUsers())
	srv := httptest.NewServer(handler.NewRouter(authSvc, orderSvc, secret))
	t.Cleanup(srv.Close)
	return &env{orders: orderSvc, client: gateway.NewClient(srv.URL, 2*time.Second)}
}

func (e *env) controller(t *testing.T, userID string, role model.Role, route string, logouts *[]string) (*Controller, *session.Session) {
	t.Helper()
	tok, err := mw.IssueToken(secret, userID, role, time.Hour)
	require.NoError(t, err)

	sess := session.New(tok, func(returnTo string) {
		if logouts != nil {
			*logouts = append(*logouts, returnTo)
		}
	})
	c := New(Config{
		Role:       role,
		Route:      route,
		Gateway:    e.client,
		Dispatcher: dispatch.New(e.client, sess, dispatch.Config{}),
		Session:    sess,
	})
	return c, sess
}

func (e *env) seed(t *testing.T, userID string, images ...string) model.Order {
	t.Helper()
	o, err := e.orders.Create(context.Background(), userID, service.NewOrder{
		Items: []service.NewOrderItem{
			{ProductName: "Lamp", Quantity: 1, UnitPrice: 150, Images: images},
			{ProductName: "Shade", Quantity: 2, UnitPrice: 20, Images: []string{"shade.jpg"}},
		},
		Customer: model.Customer{Name: "Dana", Phone: "555-0101", Location: "Elm St 4"},
	})
	require.NoError(t, err)
	return o
}

func TestEndToEnd_AdminThenCustomer(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	o := e.seed(t, "u1", "lamp.jpg")

	admin, _ := e.controller(t, "a1", model.RoleAdmin, "/admin/orders", nil)
	customer, _ := e.controller(t, "u1", model.RoleCustomer, "/orders", nil)

	require.NoError(t, admin.Refresh(ctx))
	require.NoError(t, admin.Act(ctx, o.ID, lifecycle.ActionProcess, ""))
	got, _ := admin.Order(o.ID)
	assert.Equal(t, model.StatusProcessing, got.OrderStatus)

	require.NoError(t, admin.Act(ctx, o.ID, lifecycle.ActionDeliver, ""))
	got, _ = admin.Order(o.ID)
	assert.Equal(t, model.StatusDelivered, got.OrderStatus)

	require.NoError(t, customer.Refresh(ctx))
	require.NoError(t, customer.Act(ctx, o.ID, lifecycle.ActionConfirmDelivery, "Received, all good"))
	got, _ = customer.Order(o.ID)
	assert.Equal(t, model.StatusConfirmed, got.OrderStatus)

	require.NoError(t, admin.Refresh(ctx))
	assert.Empty(t, admin.Options(o.ID))
	assert.Empty(t, customer.Options(o.ID))
	assert.Empty(t, admin.Banner())
	assert.Equal(t, 1, admin.Counts()[model.StatusConfirmed])
}

func TestUnauthorized_ForcesOneLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	o := e.seed(t, "u1")

	var logouts []string
	c, sess := e.controller(t, "a1", model.RoleAdmin, "/admin/orders", &logouts)
	require.NoError(t, c.Refresh(ctx))

	sess.Login("expired-or-forged")
	err := c.Act(ctx, o.ID, lifecycle.ActionProcess, "")
	kind, _ := dispatch.KindOf(err)
	assert.Equal(t, dispatch.KindUnauthorized, kind)
	assert.Equal(t, dispatch.SessionExpiredMessage, c.Banner())

	err = c.Act(ctx, o.ID, lifecycle.ActionReject, "no stock")
	kind, _ = dispatch.KindOf(err)
	assert.Equal(t, dispatch.KindUnauthorized, kind)
	err = c.Refresh(ctx)
	kind, _ = dispatch.KindOf(err)
	assert.Equal(t, dispatch.KindUnauthorized, kind)

	assert.Equal(t, []string{"/admin/orders"}, logouts)
	assert.False(t, c.Busy())

	got, _ := c.Order(o.ID)
	assert.Equal(t, model.StatusPending, got.OrderStatus)
}

func TestBanner_ReplacedDismissedAndCleared(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	o := e.seed(t, "u1")
	c, _ := e.controller(t, "u1", model.RoleCustomer, "/orders", nil)
	require.NoError(t, c.Refresh(ctx))

	err := c.Act(ctx, o.ID, lifecycle.ActionCancel, "")
	kind, _ := dispatch.KindOf(err)
	assert.Equal(t, dispatch.KindGuard, kind)
	first := c.Banner()
	assert.NotEmpty(t, first)

	err = c.Act(ctx, "ghost", lifecycle.ActionCancel, "x")
	assert.ErrorIs(t, err, ErrUnknownOrder)
	assert.NotEqual(t, first, c.Banner())

	c.DismissBanner()
	assert.Empty(t, c.Banner())

	_ = c.Act(ctx, o.ID, lifecycle.ActionConfirmDelivery, "too early")
	assert.NotEmpty(t, c.Banner())

	require.NoError(t, c.Act(ctx, o.ID, lifecycle.ActionCancel, "ordered twice"))
	assert.Empty(t, c.Banner())
	got, _ := c.Order(o.ID)
	assert.Equal(t, model.StatusCancelled, got.OrderStatus)
}

func TestServerRejection_LeavesCacheAlone(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	o := e.seed(t, "u1")

	admin, _ := e.controller(t, "a1", model.RoleAdmin, "/admin/orders", nil)
	customer, _ := e.controller(t, "u1", model.RoleCustomer, "/orders", nil)
	require.NoError(t, admin.Refresh(ctx))
	require.NoError(t, customer.Refresh(ctx))

	// The admin moves first; the customer's cached copy is now stale.
	require.NoError(t, admin.Act(ctx, o.ID, lifecycle.ActionProcess, ""))

	err := customer.Act(ctx, o.ID, lifecycle.ActionCancel, "changed my mind")
	kind, _ := dispatch.KindOf(err)
	assert.Equal(t, dispatch.KindTransport, kind)
	assert.NotEmpty(t, customer.Banner())

	got, _ := customer.Order(o.ID)
	assert.Equal(t, model.StatusPending, got.OrderStatus)

	require.NoError(t, customer.Refresh(ctx))
	got, _ = customer.Order(o.ID)
	assert.Equal(t, model.StatusProcessing, got.OrderStatus)
	assert.Empty(t, customer.Options(o.ID))
}

type fakeLister struct {
	orders []model.Order
	calls  int
}

func (f *fakeLister) ListOrders(ctx context.Context, token string, role model.Role) ([]model.Order, error) {
	f.calls++
	return f.orders, nil
}

type okGateway struct{}

func (okGateway) Mutate(ctx context.Context, token, orderID string, action lifecycle.Action, text string) error {
	return nil
}

func fakeController(role model.Role, lister *fakeLister) *Controller {
	sess := session.New("tok", nil)
	return New(Config{
		Role:       role,
		Route:      "/orders",
		Gateway:    lister,
		Dispatcher: dispatch.New(okGateway{}, sess, dispatch.Config{}),
		Session:    sess,
	})
}

func TestRefreshPolicyPerRole(t *testing.T) {
	ctx := context.Background()
	pending := model.Order{ID: "o1", OrderStatus: model.StatusPending}

	lister := &fakeLister{orders: []model.Order{pending}}
	customer := fakeController(model.RoleCustomer, lister)
	require.NoError(t, customer.Refresh(ctx))
	require.NoError(t, customer.Act(ctx, "o1", lifecycle.ActionCancel, "nope"))
	assert.Equal(t, 1, lister.calls)
	got, _ := customer.Order("o1")
	assert.Equal(t, model.StatusCancelled, got.OrderStatus)

	lister = &fakeLister{orders: []model.Order{pending}}
	admin := fakeController(model.RoleAdmin, lister)
	require.NoError(t, admin.Refresh(ctx))
	require.NoError(t, admin.Act(ctx, "o1", lifecycle.ActionProcess, ""))
	assert.Equal(t, 2, lister.calls)
}

func TestFilterAndCarousel(t *testing.T) {
	ctx := context.Background()
	a := model.Order{ID: "a", OrderStatus: model.StatusPending, Items: []model.OrderItem{
		{ProductName: "Lamp", Images: []string{"l1", "l2"}},
		{ProductName: "Shade", Images: []string{"s1"}},
	}}
	b := model.Order{ID: "b", OrderStatus: model.StatusCancelled}
	lister := &fakeLister{orders: []model.Order{a, b}}
	c := fakeController(model.RoleAdmin, lister)
	require.NoError(t, c.Refresh(ctx))

	f, ok := c.Image("a")
	require.True(t, ok)
	assert.Equal(t, "l1", f.URL)

	f, _ = c.PrevImage("a")
	assert.Equal(t, "s1", f.URL)
	assert.Equal(t, "Shade", f.ProductName)

	_, ok = c.NextImage("b")
	assert.False(t, ok)

	c.SetFilter(string(model.StatusCancelled))
	require.Len(t, c.Orders(), 1)
	assert.Equal(t, "b", c.Orders()[0].ID)
	f, _ = c.Image("a")
	assert.Equal(t, "s1", f.URL, "filtering keeps cursors")

	c.SetFilter("")
	assert.Len(t, c.Orders(), 2)

	require.NoError(t, c.Refresh(ctx))
	f, _ = c.Image("a")
	assert.Equal(t, "s1", f.URL, "refresh keeps cursors of present orders")

	lister.orders = []model.Order{b}
	require.NoError(t, c.Refresh(ctx))
	lister.orders = []model.Order{a, b}
	require.NoError(t, c.Refresh(ctx))
	f, _ = c.Image("a")
	assert.Equal(t, "l1", f.URL, "cursor dropped when the order disappeared")
}

// remoteStore is a fake gateway whose list calls snapshot the current state
// before optionally waiting on a gate, like a slow response in flight.
type remoteStore struct {
	mu      sync.Mutex
	status  map[string]model.Status
	gate    chan struct{}
	entered chan struct{}
}

func newRemoteStore(id string, s model.Status) *remoteStore {
	return &remoteStore{status: map[string]model.Status{id: s}}
}

func (r *remoteStore) holdNextList() {
	r.mu.Lock()
	r.gate = make(chan struct{})
	r.entered = make(chan struct{})
	r.mu.Unlock()
}

func (r *remoteStore) ListOrders(ctx context.Context, token string, role model.Role) ([]model.Order, error) {
	r.mu.Lock()
	var orders []model.Order
	for id, s := range r.status {
		orders = append(orders, model.Order{ID: id, OrderStatus: s})
	}
	gate, entered := r.gate, r.entered
	r.gate, r.entered = nil, nil
	r.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	return orders, nil
}

func (r *remoteStore) Mutate(ctx context.Context, token, orderID string, action lifecycle.Action, text string) error {
	t, _ := lifecycle.Lookup(action)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[orderID] = t.To
	return nil
}

func (r *remoteStore) statusOf(id string) model.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[id]
}

func remoteController(role model.Role, remote *remoteStore) *Controller {
	sess := session.New("tok", nil)
	return New(Config{
		Role:       role,
		Route:      "/orders",
		Gateway:    remote,
		Dispatcher: dispatch.New(remote, sess, dispatch.Config{}),
		Session:    sess,
	})
}

func TestAct_InFlightRefreshCannotRevertAdminAction(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteStore("o1", model.StatusPending)
	c := remoteController(model.RoleAdmin, remote)
	require.NoError(t, c.Refresh(ctx))

	remote.holdNextList()
	entered := remote.entered
	gate := remote.gate
	tick := make(chan error, 1)
	go func() { tick <- c.Refresh(ctx) }()
	<-entered

	require.NoError(t, c.Act(ctx, "o1", lifecycle.ActionProcess, ""))
	got, _ := c.Order("o1")
	assert.Equal(t, model.StatusProcessing, got.OrderStatus)

	close(gate)
	require.NoError(t, <-tick)

	got, _ = c.Order("o1")
	assert.Equal(t, remote.statusOf("o1"), got.OrderStatus)
	assert.Equal(t, model.StatusProcessing, got.OrderStatus)
	require.Len(t, c.Options("o1"), 1)
	assert.Equal(t, lifecycle.ActionDeliver, c.Options("o1")[0].Action)
}

func TestAct_InFlightRefreshCannotRevertCustomerPatch(t *testing.T) {
	ctx := context.Background()
	remote := newRemoteStore("o1", model.StatusPending)
	c := remoteController(model.RoleCustomer, remote)
	require.NoError(t, c.Refresh(ctx))

	remote.holdNextList()
	entered := remote.entered
	gate := remote.gate
	tick := make(chan error, 1)
	go func() { tick <- c.Refresh(ctx) }()
	<-entered

	require.NoError(t, c.Act(ctx, "o1", lifecycle.ActionCancel, "ordered twice"))
	close(gate)
	require.NoError(t, <-tick)

	got, _ := c.Order("o1")
	assert.Equal(t, model.StatusCancelled, got.OrderStatus)

	require.NoError(t, c.Refresh(ctx))
	got, _ = c.Order("o1")
	assert.Equal(t, model.StatusCancelled, got.OrderStatus)
}

func TestUnauthorized_CustomerActionsForceOneLogout(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pendingOrder := e.seed(t, "u1")
	deliveredOrder := e.seed(t, "u1", "lamp.jpg")
	_, err := e.orders.Transition(ctx, "a1", model.RoleAdmin, deliveredOrder.ID, lifecycle.ActionProcess, "")
	require.NoError(t, err)
	_, err = e.orders.Transition(ctx, "a1", model.RoleAdmin, deliveredOrder.ID, lifecycle.ActionDeliver, "")
	require.NoError(t, err)

	for _, tc := range []struct {
		action lifecycle.Action
		order  string
		text   string
	}{
		{lifecycle.ActionConfirmDelivery, deliveredOrder.ID, "Received, all good"},
		{lifecycle.ActionCancel, pendingOrder.ID, "ordered twice"},
	} {
		t.Run(string(tc.action), func(t *testing.T) {
			var logouts []string
			c, sess := e.controller(t, "u1", model.RoleCustomer, "/orders", &logouts)
			require.NoError(t, c.Refresh(ctx))

			sess.Login("expired-or-forged")
			err := c.Act(ctx, tc.order, tc.action, tc.text)
			kind, ok := dispatch.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, dispatch.KindUnauthorized, kind)

			_ = c.Act(ctx, tc.order, tc.action, tc.text)
			_ = c.Refresh(ctx)

			assert.Equal(t, []string{"/orders"}, logouts)
			assert.False(t, c.Busy())
		})
	}
}
