// Package services holds the order lifecycle, pricing, dispatch, payment
// and ledger rules on top of a store.Store.
package services

import (
	"context"
	"time"

	"food-delivery/auth"
	"food-delivery/notify"
	"food-delivery/payment"
	"food-delivery/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway is the subset of the payment client the services use.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, in payment.CreateOrderRequest) (*payment.OrderResponse, error)
	OrderStatus(ctx context.Context, merchantOrderID string) (*payment.OrderStatusResponse, error)
	Refund(ctx context.Context, in payment.RefundRequest) (*payment.RefundResponse, error)
	RefundStatus(ctx context.Context, merchantRefundID string) (*payment.RefundResponse, error)
}

type TokenIssuer interface {
	GenerateToken(subject string, role auth.Role) (string, time.Time, error)
}

type Deps struct {
	Store       store.Store
	Gateway     PaymentGateway
	Sender      notify.Sender
	Throttle    LoginThrottle
	Tokens      TokenIssuer
	Logger      *zap.SugaredLogger
	Pricing     Pricing
	Location    *time.Location // restaurant opening hours are evaluated here
	CallbackURL string

	Now   func() time.Time
	NewID func() string
}

type Service struct {
	store       store.Store
	gateway     PaymentGateway
	sender      notify.Sender
	throttle    LoginThrottle
	tokens      TokenIssuer
	logger      *zap.SugaredLogger
	pricing     Pricing
	loc         *time.Location
	callbackURL string
	now         func() time.Time
	newID       func() string
}

func New(d Deps) *Service {
	s := &Service{
		store:       d.Store,
		gateway:     d.Gateway,
		sender:      d.Sender,
		throttle:    d.Throttle,
		tokens:      d.Tokens,
		logger:      d.Logger,
		pricing:     d.Pricing,
		loc:         d.Location,
		callbackURL: d.CallbackURL,
		now:         d.Now,
		newID:       d.NewID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.sender == nil {
		s.sender = notify.NewLogSender(s.logger)
	}
	if s.throttle == nil {
		s.throttle = NewMemoryThrottle()
	}
	if s.pricing == (Pricing{}) {
		s.pricing = DefaultPricing
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *Service) Store() store.Store { return s.store }
