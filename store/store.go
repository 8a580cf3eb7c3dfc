// Package store defines the persistence contract shared by the postgres,
// mongo and in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"food-delivery/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// OrderPatch lists the order fields a transition may set. Nil fields are left untouched.
type OrderPatch struct {
	Status           *models.OrderStatus
	PaymentState     *string
	AssignedRiderID  *string
	RefundID         *string
	MerchantRefundID *string
	CancelledAt      *time.Time
	PickedUpAt       *time.Time
	DeliveredAt      *time.Time
	UpdatedAt        time.Time
}

// Apply copies the set fields onto o.
func (p OrderPatch) Apply(o *models.Order) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.PaymentState != nil {
		o.PaymentState = *p.PaymentState
	}
	if p.AssignedRiderID != nil {
		o.AssignedRiderID = *p.AssignedRiderID
	}
	if p.RefundID != nil {
		o.RefundID = *p.RefundID
	}
	if p.MerchantRefundID != nil {
		o.MerchantRefundID = *p.MerchantRefundID
	}
	if p.CancelledAt != nil {
		o.CancelledAt = p.CancelledAt
	}
	if p.PickedUpAt != nil {
		o.PickedUpAt = p.PickedUpAt
	}
	if p.DeliveredAt != nil {
		o.DeliveredAt = p.DeliveredAt
	}
	if !p.UpdatedAt.IsZero() {
		o.UpdatedAt = p.UpdatedAt
	}
}

type OrderRepository interface {
	CreateOrders(ctx context.Context, orders []*models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByMerchantOrderID(ctx context.Context, merchantOrderID string) ([]*models.Order, error)
	// UpdateOrder applies patch only while the order's status is one of from
	// (any status when from is empty). It returns ErrConflict when the guard
	// fails and the updated order otherwise.
	UpdateOrder(ctx context.Context, id string, from []models.OrderStatus, patch OrderPatch) (*models.Order, error)
	AppendStatusHistory(ctx context.Context, change models.StatusChange) error
}

type CatalogRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	GetDish(ctx context.Context, id string) (*models.Dish, error)
}

type RiderRepository interface {
	GetRider(ctx context.Context, id string) (*models.Rider, error)
	// ListAvailableRidersByPinCode returns available riders whose service zones contain pin.
	ListAvailableRidersByPinCode(ctx context.Context, pin string) ([]*models.Rider, error)
	OfferOrderToRiders(ctx context.Context, orderID string, riderIDs []string) error
	// ClaimOrder moves orderID from the rider's offered set into its current set.
	ClaimOrder(ctx context.Context, riderID, orderID string) error
	// WithdrawOrderOffer removes orderID from every rider's offered set except exceptRiderID.
	WithdrawOrderOffer(ctx context.Context, orderID, exceptRiderID string) error
	ReleaseOrder(ctx context.Context, riderID, orderID string) error
}

type EarningsRepository interface {
	// CreditEarnings atomically adds amount to the entity's earnings, creating the entry if needed.
	CreditEarnings(ctx context.Context, entityID string, kind models.EntityKind, amount int64) error
	// RecordPayout atomically adds amount to payout when the remaining balance covers it.
	RecordPayout(ctx context.Context, entityID string, amount int64, at time.Time) (*models.Earnings, error)
	GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error)
}

type AdminRepository interface {
	GetAdmin(ctx context.Context, username string) (*models.Admin, error)
	CreateAdmin(ctx context.Context, admin *models.Admin) error
}

type NotificationRepository interface {
	SaveOutboundNotification(ctx context.Context, n *models.OutboundNotification) error
}

// Repository is the full set of data operations, usable inside or outside a transaction.
type Repository interface {
	OrderRepository
	CatalogRepository
	RiderRepository
	EarningsRepository
	AdminRepository
	NotificationRepository
}

type Store interface {
	Repository
	// WithTx runs fn inside a transaction. Returning an error rolls back every write made through repo.
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// StatusIn reports whether s is one of allowed. An empty allowed list matches anything.
func StatusIn(s models.OrderStatus, allowed []models.OrderStatus) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}
