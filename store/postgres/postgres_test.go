package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"food-delivery/models"
	"food-delivery/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests run against TEST_DATABASE_URL with migrations already applied.
func testStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping postgres integration test: TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return New(pool), pool
}

func TestConditionalOrderUpdate_Integration(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	id := uuid.NewString()
	now := time.Now()
	err := s.CreateOrders(ctx, []*models.Order{{
		ID: id, UserID: "u-test", RestaurantID: "r-test", Status: models.OrderStatusPlaced,
		PaymentMode: models.PaymentModeCOD, PaymentState: models.PaymentStatePlaced,
		Items: []models.OrderItem{{DishID: "d1", Qty: 1, Name: "Dosa", BasePrice: 80, FinalPricePerUnit: 80}},
		CreatedAt: now, UpdatedAt: now,
	}})
	if err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}

	accepted := models.OrderStatusAccepted
	from := []models.OrderStatus{models.OrderStatusPlaced}
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.UpdateOrder(ctx, id, from, store.OrderPatch{Status: &accepted})
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, store.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Errorf("wins = %d, conflicts = %d, want 1 and 1", wins, conflicts)
	}
}

func TestEarningsLedger_Integration(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	entity := "rest-" + uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.CreditEarnings(ctx, entity, models.EntityRestaurant, 250); err != nil {
				t.Errorf("CreditEarnings: %v", err)
			}
		}()
	}
	wg.Wait()

	e, err := s.GetEarnings(ctx, entity)
	if err != nil {
		t.Fatalf("GetEarnings: %v", err)
	}
	if e.Earnings != 2500 {
		t.Errorf("earnings = %d, want 2500", e.Earnings)
	}
	if _, err := s.RecordPayout(ctx, entity, 2501, time.Now()); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("over-payout err = %v, want ErrInsufficientBalance", err)
	}
	if _, err := s.RecordPayout(ctx, entity, 2500, time.Now()); err != nil {
		t.Errorf("exact payout: %v", err)
	}
}

func TestLoginThrottle_Integration(t *testing.T) {
	_, pool := testStore(t)
	ctx := context.Background()
	th := NewLoginThrottle(pool)
	user := "throttle-" + uuid.NewString()
	defer func() { _ = th.RecordSuccess(ctx, user) }()

	if err := th.RecordFailure(ctx, user); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	wait, err := th.WaitSeconds(ctx, user)
	if err != nil {
		t.Fatalf("WaitSeconds: %v", err)
	}
	if wait <= 0 || wait > 30 {
		t.Errorf("after one fail: wait = %d, want 1..30", wait)
	}
	_ = th.RecordSuccess(ctx, user)
	if wait, _ = th.WaitSeconds(ctx, user); wait != 0 {
		t.Errorf("after success: wait = %d, want 0", wait)
	}
}
