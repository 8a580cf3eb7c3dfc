package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"food-delivery/auth"
	"food-delivery/models"
	"food-delivery/notify"
	"food-delivery/payment"
	"food-delivery/store/memstore"
)

type fakeGateway struct {
	mu sync.Mutex

	createState string
	createErr   error
	created     []payment.CreateOrderRequest

	statusState string
	statusErr   error

	refundState string
	refundErr   error
	refunds     []payment.RefundRequest

	refundStatusState string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, in payment.CreateOrderRequest) (*payment.OrderResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, in)
	return &payment.OrderResponse{OrderID: "gw-" + in.MerchantOrderID, State: g.createState, Token: "pay-token", ExpireAt: 1736930000000}, nil
}

func (g *fakeGateway) OrderStatus(ctx context.Context, merchantOrderID string) (*payment.OrderStatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return &payment.OrderStatusResponse{OrderID: "gw-" + merchantOrderID, State: g.statusState}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, in payment.RefundRequest) (*payment.RefundResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, in)
	return &payment.RefundResponse{RefundID: "rf-" + in.MerchantRefundID, State: g.refundState, Amount: in.AmountMinor}, nil
}

func (g *fakeGateway) RefundStatus(ctx context.Context, merchantRefundID string) (*payment.RefundResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &payment.RefundResponse{RefundID: "rf-" + merchantRefundID, State: g.refundStatusState}, nil
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recordingSender) Send(ctx context.Context, msg notify.Message) (notify.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return notify.Result{SuccessCount: len(msg.Tokens)}, nil
}

// sentTo returns the titles pushed to token, in send order.
func (r *recordingSender) sentTo(token string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.msgs {
		for _, t := range m.Tokens {
			if t == token {
				out = append(out, m.Title)
			}
		}
	}
	return out
}

func (r *recordingSender) reset() {
	r.mu.Lock()
	r.msgs = nil
	r.mu.Unlock()
}

type fixture struct {
	svc    *Service
	st     *memstore.Store
	gw     *fakeGateway
	sender *recordingSender
	now    time.Time
}

var ist = time.FixedZone("IST", 5*3600+1800)

// dropOff is served by riders rd1, rd2 and rd4 but not rd3.
var dropOff = models.Address{Line: "80 Feet Rd", PinCode: "560034", Lat: 12.9352, Lng: 77.6245}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	hours := openAllWeek()

	st.PutUser(models.User{ID: "u1", Name: "Asha", PushToken: "tok-u1"})
	st.PutUser(models.User{ID: "u2", Name: "Ravi", PushToken: "tok-u2"})
	st.PutRestaurant(models.Restaurant{
		ID: "r1", Name: "Dosa Point", Location: &models.GeoPoint{Lat: 12.9716, Lng: 77.5946},
		PinCode: "560001", OpeningHours: hours, PushToken: "tok-r1",
		Offers: models.OfferConfig{Categories: map[string]models.Offer{"dessert": {Kind: models.OfferPercentage, Value: 10}}},
	})
	st.PutRestaurant(models.Restaurant{
		ID: "r2", Name: "Chai Stop", Location: &models.GeoPoint{Lat: 12.95, Lng: 77.61},
		PinCode: "560001", OpeningHours: hours, PushToken: "tok-r2",
	})
	st.PutDish(models.Dish{ID: "d1", RestaurantID: "r1", Name: "Masala Dosa", Price: 200, Available: true, Category: "mains",
		Offer: &models.Offer{Kind: models.OfferPercentage, Value: 25}})
	st.PutDish(models.Dish{ID: "d2", RestaurantID: "r1", Name: "Kesari", Price: 100, Available: true, Category: "dessert"})
	st.PutDish(models.Dish{ID: "d3", RestaurantID: "r2", Name: "Chai", Price: 50, Available: true})
	st.PutDish(models.Dish{ID: "d4", RestaurantID: "r1", Name: "Rava Dosa", Price: 180, Available: false})

	st.PutRider(models.Rider{ID: "rd1", IsAvailable: true, ServicePinCodes: []string{"560001", "560034"}, PushToken: "tok-rd1"})
	st.PutRider(models.Rider{ID: "rd2", IsAvailable: true, ServicePinCodes: []string{"560034", "560001"}, PushToken: "tok-rd2"})
	st.PutRider(models.Rider{ID: "rd3", IsAvailable: true, ServicePinCodes: []string{"560001"}, PushToken: "tok-rd3"})
	st.PutRider(models.Rider{ID: "rd4", IsAvailable: false, ServicePinCodes: []string{"560001", "560034"}, PushToken: "tok-rd4"})

	var (
		idMu sync.Mutex
		seq  int
	)
	f := &fixture{
		st:     st,
		gw:     &fakeGateway{createState: payment.StatePending, refundState: payment.StatePending},
		sender: &recordingSender{},
		now:    time.Date(2025, 1, 15, 13, 0, 0, 0, ist), // Wednesday
	}
	f.svc = New(Deps{
		Store:    st,
		Gateway:  f.gw,
		Sender:   f.sender,
		Tokens:   auth.NewIssuer("test-secret", time.Hour),
		Location: ist,
		Now:      func() time.Time { return f.now },
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	})
	return f
}

// openAllWeek is 09:00-23:00 every day.
func openAllWeek() map[string]models.DayHours {
	hours := map[string]models.DayHours{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		hours[d] = models.DayHours{OpenTime: "09:00", CloseTime: "23:00", IsOpen: true}
	}
	return hours
}

func twoRestaurantCheckout(userID string, mode models.PaymentMode) PlaceOrderInput {
	return PlaceOrderInput{
		UserID: userID,
		Groups: []GroupInput{
			{RestaurantID: "r1", Items: []ItemInput{{DishID: "d1", Qty: 2}, {DishID: "d2", Qty: 1}}},
			{RestaurantID: "r2", Items: []ItemInput{{DishID: "d3", Qty: 2}}},
		},
		Address:     dropOff,
		PaymentMode: mode,
	}
}

// placeCOD places a single-restaurant COD order from r1 for u1.
func (f *fixture) placeCOD(t *testing.T) *models.Order {
	t.Helper()
	res, err := f.svc.PlaceOrder(context.Background(), PlaceOrderInput{
		UserID:      "u1",
		Groups:      []GroupInput{{RestaurantID: "r1", Items: []ItemInput{{DishID: "d1", Qty: 2}, {DishID: "d2", Qty: 1}}}},
		Address:     dropOff,
		PaymentMode: models.PaymentModeCOD,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	return res.Orders[0]
}

func (f *fixture) placeAccepted(t *testing.T) *models.Order {
	t.Helper()
	o := f.placeCOD(t)
	if _, err := f.svc.AcceptOrder(context.Background(), "r1", o.ID); err != nil {
		t.Fatalf("AcceptOrder: %v", err)
	}
	return o
}

func wantKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("err = nil, want kind %d", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("err = %v (kind %d), want kind %d", err, got, kind)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
