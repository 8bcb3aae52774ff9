package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/model"
)

// MemoryOrders is an in-process order store used when no DSN is configured.
type MemoryOrders struct {
	mu     sync.Mutex
	orders map[string]model.Order
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{orders: make(map[string]model.Order)}
}

func (m *MemoryOrders) Insert(ctx context.Context, o model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *MemoryOrders) List(ctx context.Context) ([]model.Order, error) {
	return m.filter(func(model.Order) bool { return true }), nil
}

func (m *MemoryOrders) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return m.filter(func(o model.Order) bool { return o.UserID == userID }), nil
}

func (m *MemoryOrders) Get(ctx context.Context, id string) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryOrders) UpdateStatus(ctx context.Context, id string, from, to model.Status, patch StatusPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.OrderStatus != from {
		return ErrStatusChanged
	}
	o.OrderStatus = to
	if patch.RejectionReason != "" {
		o.RejectionReason = patch.RejectionReason
	}
	if patch.CancellationReason != "" {
		o.CancellationReason = patch.CancellationReason
	}
	if patch.ConfirmationNote != "" {
		o.ConfirmationNote = patch.ConfirmationNote
	}
	m.orders[id] = o
	return nil
}

// filter returns matches newest first, like the SQL repository.
func (m *MemoryOrders) filter(keep func(model.Order) bool) []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].OrderNumber > out[j].OrderNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

type MemoryUsers struct {
	mu      sync.Mutex
	byLogin map[string]model.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byLogin: make(map[string]model.User)}
}

func (m *MemoryUsers) Create(ctx context.Context, u model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byLogin[u.Login]; ok {
		return model.User{}, ErrLoginTaken
	}
	u.CreatedAt = time.Now()
	m.byLogin[u.Login] = u
	return u, nil
}

func (m *MemoryUsers) GetByLogin(ctx context.Context, login string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byLogin[login]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}
