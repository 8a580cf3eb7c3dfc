package memstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-delivery/models"
	"food-delivery/store"
)

func TestUpdateOrderGuard(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateOrders(ctx, []*models.Order{{ID: "o1", Status: models.OrderStatusPlaced}}); err != nil {
		t.Fatalf("CreateOrders: %v", err)
	}
	accepted := models.OrderStatusAccepted
	from := []models.OrderStatus{models.OrderStatusPlaced}

	o, err := s.UpdateOrder(ctx, "o1", from, store.OrderPatch{Status: &accepted})
	if err != nil {
		t.Fatalf("first UpdateOrder: %v", err)
	}
	if o.Status != models.OrderStatusAccepted {
		t.Errorf("status = %s, want ACCEPTED", o.Status)
	}
	if _, err := s.UpdateOrder(ctx, "o1", from, store.OrderPatch{Status: &accepted}); !errors.Is(err, store.ErrConflict) {
		t.Errorf("second UpdateOrder err = %v, want ErrConflict", err)
	}
	if _, err := s.UpdateOrder(ctx, "missing", from, store.OrderPatch{Status: &accepted}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing order err = %v, want ErrNotFound", err)
	}
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateOrders(ctx, []*models.Order{{ID: "o1", Status: models.OrderStatusPicked}})
	delivered := models.OrderStatusDelivered
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		if _, err := repo.UpdateOrder(ctx, "o1", nil, store.OrderPatch{Status: &delivered}); err != nil {
			return err
		}
		if err := repo.CreditEarnings(ctx, "r1", models.EntityRestaurant, 500); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	o, _ := s.GetOrder(ctx, "o1")
	if o.Status != models.OrderStatusPicked {
		t.Errorf("status after rollback = %s, want PICKED", o.Status)
	}
	if _, err := s.GetEarnings(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("earnings after rollback err = %v, want ErrNotFound", err)
	}
}

func TestRollbackKeepsConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutRider(models.Rider{ID: "a", IsAvailable: true, ServicePinCodes: []string{"560001"}})
	_ = s.CreateOrders(ctx, []*models.Order{{ID: "o1", Status: models.OrderStatusPlaced}})
	cancelled := models.OrderStatusCancelled
	boom := errors.New("refund failed")

	started := make(chan struct{})
	done := make(chan error, 1)
	err := s.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		if _, err := repo.UpdateOrder(ctx, "o1", nil, store.OrderPatch{Status: &cancelled}); err != nil {
			return err
		}
		go func() {
			close(started)
			if err := s.OfferOrderToRiders(ctx, "o2", []string{"a"}); err != nil {
				done <- err
				return
			}
			done <- s.CreditEarnings(ctx, "r1", models.EntityRestaurant, 700)
		}()
		<-started
		time.Sleep(20 * time.Millisecond)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx err = %v, want boom", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("concurrent write: %v", err)
	}

	o, _ := s.GetOrder(ctx, "o1")
	if o.Status != models.OrderStatusPlaced {
		t.Errorf("status after rollback = %s, want PLACED", o.Status)
	}
	a, _ := s.GetRider(ctx, "a")
	if !a.HasOffer("o2") {
		t.Errorf("offers after rollback = %v, want o2 kept", a.AvailableOrders)
	}
	e, err := s.GetEarnings(ctx, "r1")
	if err != nil || e.Earnings != 700 {
		t.Errorf("earnings after rollback = %+v, %v, want 700", e, err)
	}
}

func TestOfferClaimWithdraw(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutRider(models.Rider{ID: "a", IsAvailable: true, ServicePinCodes: []string{"560001"}})
	s.PutRider(models.Rider{ID: "b", IsAvailable: true, ServicePinCodes: []string{"560001"}})

	if err := s.OfferOrderToRiders(ctx, "o1", []string{"a", "b"}); err != nil {
		t.Fatal(err)
	}
	_ = s.OfferOrderToRiders(ctx, "o1", []string{"a"})
	a, _ := s.GetRider(ctx, "a")
	if len(a.AvailableOrders) != 1 {
		t.Errorf("offer is not a set union: %v", a.AvailableOrders)
	}

	_ = s.ClaimOrder(ctx, "a", "o1")
	_ = s.WithdrawOrderOffer(ctx, "o1", "a")

	a, _ = s.GetRider(ctx, "a")
	b, _ := s.GetRider(ctx, "b")
	if a.HasOffer("o1") || len(a.CurrentOrders) != 1 {
		t.Errorf("claimant = %+v, want o1 moved to current orders", a)
	}
	if b.HasOffer("o1") {
		t.Errorf("other rider still holds offer: %v", b.AvailableOrders)
	}
}

func TestConcurrentCredits(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CreditEarnings(ctx, "r1", models.EntityRestaurant, 100)
		}()
	}
	wg.Wait()
	e, err := s.GetEarnings(ctx, "r1")
	if err != nil {
		t.Fatal(err)
	}
	if e.Earnings != 5000 {
		t.Errorf("earnings = %d, want 5000", e.Earnings)
	}
}

func TestRecordPayoutBounds(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreditEarnings(ctx, "r1", models.EntityRestaurant, 1000)
	now := time.Now()

	if _, err := s.RecordPayout(ctx, "r1", 1001, now); !errors.Is(err, store.ErrInsufficientBalance) {
		t.Errorf("over-payout err = %v, want ErrInsufficientBalance", err)
	}
	e, err := s.RecordPayout(ctx, "r1", 1000, now)
	if err != nil {
		t.Fatalf("exact payout: %v", err)
	}
	if e.Balance() != 0 || e.LastPayout == nil {
		t.Errorf("after exact payout = %+v, want zero balance and lastPayout set", e)
	}
}
