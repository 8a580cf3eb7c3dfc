package mongo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"food-delivery/models"
	"food-delivery/store"

	"github.com/google/uuid"
)

// Integration tests run against TEST_MONGO_URI, which must point at a replica set.
func testStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongo integration test in short mode")
	}
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("skipping mongo integration test: TEST_MONGO_URI not set")
	}
	s, err := New(Config{URI: uri, Database: "food_delivery_test", Timeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestPayoutGuard_Integration(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	entity := "rider-" + uuid.NewString()

	if err := s.CreditEarnings(ctx, entity, models.EntityRider, 300); err != nil {
		t.Fatalf("CreditEarnings: %v", err)
	}
	if err := s.CreditEarnings(ctx, entity, models.EntityRider, 200); err != nil {
		t.Fatalf("CreditEarnings: %v", err)
	}
	if _, err := s.RecordPayout(ctx, entity, 501, time.Now()); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("over-payout err = %v, want ErrInsufficientBalance", err)
	}
	e, err := s.RecordPayout(ctx, entity, 500, time.Now())
	if err != nil {
		t.Fatalf("exact payout: %v", err)
	}
	if e.Balance() != 0 {
		t.Errorf("balance = %d, want 0", e.Balance())
	}
}

func TestTransactionRollback_Integration(t *testing.T) {
	s := testStorage(t)
	ctx := context.Background()
	id := uuid.NewString()
	now := time.Now().UTC()
	if err := s.CreateOrders(ctx, []*models.Order{{ID: id, Status: models.OrderStatusPicked, CreatedAt: now, UpdatedAt: now}}); err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}

	delivered := models.OrderStatusDelivered
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		if _, err := repo.UpdateOrder(ctx, id, []models.OrderStatus{models.OrderStatusPicked}, store.OrderPatch{Status: &delivered}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if o.Status != models.OrderStatusPicked {
		t.Errorf("status = %s, want PICKED after rollback", o.Status)
	}
}
