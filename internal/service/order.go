package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"storefront/internal/database"
	"storefront/internal/lifecycle"
	"storefront/internal/model"
)

const DefaultPaymentMethod = "cash on delivery"

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrNotOwner      = errors.New("order belongs to another customer")
	ErrInvalidOrder  = errors.New("invalid order")
)

type OrderRepository interface {
	Insert(ctx context.Context, o model.Order) error
	List(ctx context.Context) ([]model.Order, error)
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	Get(ctx context.Context, id string) (model.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to model.Status, patch database.StatusPatch) error
}

type OrderService struct {
	repo OrderRepository
	now  func() time.Time
}

func NewOrderService(repo OrderRepository) *OrderService {
	return &OrderService{repo: repo, now: time.Now}
}

type NewOrderItem struct {
	ProductName string   `json:"productName"`
	Quantity    int      `json:"quantity"`
	UnitPrice   int64    `json:"unitPrice"`
	Images      []string `json:"images"`
}

type NewOrder struct {
	Items         []NewOrderItem `json:"items"`
	PaymentMethod string         `json:"paymentMethod"`
	CustomerNotes string         `json:"customerNotes"`
	Customer      model.Customer `json:"customer"`
}

// Create stores a pending order for userID. Line and order totals are always
// computed here, never taken from the caller.
func (s *OrderService) Create(ctx context.Context, userID string, req NewOrder) (model.Order, error) {
	if len(req.Items) == 0 {
		return model.Order{}, fmt.Errorf("%w: no items", ErrInvalidOrder)
	}

	id := uuid.New()
	o := model.Order{
		ID:            id.String(),
		OrderNumber:   "ORD-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10]),
		UserID:        userID,
		OrderStatus:   model.StatusPending,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		CustomerNotes: strings.TrimSpace(req.CustomerNotes),
		Customer:      req.Customer,
		CreatedAt:     s.now().UTC(),
	}
	if o.PaymentMethod == "" {
		o.PaymentMethod = DefaultPaymentMethod
	}

	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductName) == "" || it.Quantity <= 0 || it.UnitPrice < 0 {
			return model.Order{}, fmt.Errorf("%w: bad item %q", ErrInvalidOrder, it.ProductName)
		}
		images := it.Images
		if images == nil {
			images = []string{}
		}
		line := model.OrderItem{
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  int64(it.Quantity) * it.UnitPrice,
			Images:      images,
		}
		o.TotalAmount += line.TotalPrice
		o.Items = append(o.Items, line)
	}

	if err := s.repo.Insert(ctx, o); err != nil {
		return model.Order{}, fmt.Errorf("create order: %w", err)
	}
	slog.Info("order created", "id", o.ID, "number", o.OrderNumber, "user", userID)
	return o, nil
}

func (s *OrderService) List(ctx context.Context) ([]model.Order, error) {
	return s.repo.List(ctx)
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Transition applies action to the order on behalf of the caller. Customers
// may only act on their own orders.
func (s *OrderService) Transition(ctx context.Context, userID string, role model.Role, orderID string, action lifecycle.Action, text string) (model.Order, error) {
	// Ids are UUIDs; anything else cannot name an order.
	if _, err := uuid.Parse(orderID); err != nil {
		return model.Order{}, ErrOrderNotFound
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, fmt.Errorf("get order: %w", err)
	}

	if role == model.RoleCustomer && o.UserID != userID {
		return model.Order{}, ErrNotOwner
	}

	t, err := lifecycle.Check(o.OrderStatus, role, action, text)
	if err != nil {
		return model.Order{}, err
	}

	text = strings.TrimSpace(text)
	var patch database.StatusPatch
	switch action {
	case lifecycle.ActionReject:
		patch.RejectionReason = text
		o.RejectionReason = text
	case lifecycle.ActionCancel:
		patch.CancellationReason = text
		o.CancellationReason = text
	case lifecycle.ActionConfirmDelivery:
		patch.ConfirmationNote = text
		o.ConfirmationNote = text
	}

	if err := s.repo.UpdateStatus(ctx, o.ID, t.From, t.To, patch); err != nil {
		return model.Order{}, fmt.Errorf("update status: %w", err)
	}

	o.OrderStatus = t.To
	slog.Info("order updated", "id", o.ID, "action", action, "by", role, "status", t.To)
	return o, nil
}
