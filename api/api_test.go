package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-delivery/auth"
	"food-delivery/models"
	"food-delivery/payment"
	"food-delivery/services"
	"food-delivery/store/memstore"

	"github.com/gin-gonic/gin"
)

func init() { gin.SetMode(gin.TestMode) }

type stubGateway struct {
	state string
}

func (g *stubGateway) CreateOrder(ctx context.Context, in payment.CreateOrderRequest) (*payment.OrderResponse, error) {
	return &payment.OrderResponse{OrderID: "gw-1", State: payment.StatePending, Token: "pay-token"}, nil
}

func (g *stubGateway) OrderStatus(ctx context.Context, id string) (*payment.OrderStatusResponse, error) {
	return &payment.OrderStatusResponse{OrderID: "gw-1", State: g.state}, nil
}

func (g *stubGateway) Refund(ctx context.Context, in payment.RefundRequest) (*payment.RefundResponse, error) {
	return &payment.RefundResponse{RefundID: "rf-1", State: payment.StatePending}, nil
}

func (g *stubGateway) RefundStatus(ctx context.Context, id string) (*payment.RefundResponse, error) {
	return &payment.RefundResponse{RefundID: "rf-1", State: payment.StateCompleted}, nil
}

type testEnv struct {
	router *gin.Engine
	svc    *services.Service
	st     *memstore.Store
	issuer *auth.Issuer
	gw     *stubGateway
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memstore.New()
	hours := map[string]models.DayHours{}
	for _, d := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		hours[d] = models.DayHours{OpenTime: "00:00", CloseTime: "23:59", IsOpen: true}
	}
	st.PutUser(models.User{ID: "u1"})
	st.PutRestaurant(models.Restaurant{ID: "r1", Location: &models.GeoPoint{Lat: 12.9716, Lng: 77.5946}, PinCode: "560001", OpeningHours: hours})
	st.PutDish(models.Dish{ID: "d1", RestaurantID: "r1", Name: "Idli", Price: 60, Available: true})
	st.PutRider(models.Rider{ID: "rd1", IsAvailable: true, ServicePinCodes: []string{"560001", "560034"}})

	issuer := auth.NewIssuer("api-test-secret", time.Hour)
	gw := &stubGateway{state: payment.StateCompleted}
	svc := services.New(services.Deps{Store: st, Gateway: gw, Tokens: issuer})
	router, err := NewRouter(Options{
		Service:         svc,
		Tokens:          issuer,
		RateLimit:       "1000-M",
		WebhookUsername: "hook",
		WebhookPassword: "secret",
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &testEnv{router: router, svc: svc, st: st, issuer: issuer, gw: gw}
}

func (e *testEnv) token(t *testing.T, subject string, role auth.Role) string {
	t.Helper()
	tok, _, err := e.issuer.GenerateToken(subject, role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return tok
}

type result struct {
	code int
	body map[string]any
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any, headers ...string) result {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	out := result{code: w.Code}
	_ = json.Unmarshal(w.Body.Bytes(), &out.body)
	return out
}

func checkoutBody(mode string) map[string]any {
	return map[string]any{
		"restaurants": []map[string]any{{"restaurantId": "r1", "items": []map[string]any{{"id": "d1", "qty": 2}}}},
		"address":     map[string]any{"line": "HSR", "pinCode": "560034", "lat": 12.9352, "lng": 77.6245},
		"paymentMode": mode,
	}
}

func orderID(t *testing.T, r result) string {
	t.Helper()
	orders, ok := r.body["orders"].([]any)
	if !ok || len(orders) == 0 {
		t.Fatalf("no orders in %v", r.body)
	}
	return orders[0].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	if r := env.do(t, http.MethodGet, "/health", "", nil); r.code != http.StatusOK || r.body["status"] != "ok" {
		t.Errorf("health = %d %v", r.code, r.body)
	}
}

func TestRoleChecks(t *testing.T) {
	env := newTestEnv(t)
	if r := env.do(t, http.MethodPost, "/api/v1/orders", "", checkoutBody("COD")); r.code != http.StatusUnauthorized {
		t.Errorf("no token = %d", r.code)
	}
	if r := env.do(t, http.MethodPost, "/api/v1/orders", "garbage", checkoutBody("COD")); r.code != http.StatusUnauthorized {
		t.Errorf("bad token = %d", r.code)
	}
	rider := env.token(t, "rd1", auth.RoleRider)
	r := env.do(t, http.MethodPost, "/api/v1/orders", rider, checkoutBody("COD"))
	if r.code != http.StatusForbidden || r.body["state"] != "FAILED" {
		t.Errorf("rider placing order = %d %v", r.code, r.body)
	}
}

func TestDeliveryFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	user := env.token(t, "u1", auth.RoleUser)
	rest := env.token(t, "r1", auth.RoleRestaurant)
	rider := env.token(t, "rd1", auth.RoleRider)
	admin := env.token(t, "ops", auth.RoleAdmin)

	r := env.do(t, http.MethodPost, "/api/v1/orders", user, checkoutBody("COD"))
	if r.code != http.StatusCreated || r.body["state"] != "SUCCESS" {
		t.Fatalf("place = %d %v", r.code, r.body)
	}
	id := orderID(t, r)

	steps := []struct {
		path, token string
		wantStatus  string
	}{
		{"/api/v1/restaurant/orders/" + id + "/accept", rest, "ACCEPTED"},
		{"/api/v1/rider/orders/" + id + "/accept", rider, "ASSIGNED"},
		{"/api/v1/rider/orders/" + id + "/pickup", rider, "PICKED"},
		{"/api/v1/rider/orders/" + id + "/deliver", rider, "DELIVERED"},
	}
	for _, s := range steps {
		r := env.do(t, http.MethodPost, s.path, s.token, nil)
		if r.code != http.StatusOK {
			t.Fatalf("%s = %d %v", s.path, r.code, r.body)
		}
		if got := r.body["order"].(map[string]any)["status"]; got != s.wantStatus {
			t.Errorf("%s status = %v, want %s", s.path, got, s.wantStatus)
		}
	}

	r = env.do(t, http.MethodGet, "/api/v1/admin/earnings/r1", admin, nil)
	if r.code != http.StatusOK {
		t.Fatalf("earnings = %d %v", r.code, r.body)
	}
	if got := r.body["earnings"].(map[string]any)["earnings"]; got != 120.0 {
		t.Errorf("restaurant earnings = %v, want 120", got)
	}

	r = env.do(t, http.MethodPost, "/api/v1/admin/earnings/r1/payouts", admin, map[string]any{"amount": 500})
	if r.code != http.StatusBadRequest || r.body["reason"] != services.ReasonInsufficientBalance {
		t.Errorf("over-payout = %d %v", r.code, r.body)
	}
	r = env.do(t, http.MethodPost, "/api/v1/admin/earnings/r1/payouts", admin, map[string]any{"amount": 20})
	if r.code != http.StatusOK || r.body["earnings"].(map[string]any)["balance"] != 100.0 {
		t.Errorf("payout = %d %v", r.code, r.body)
	}
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	user := env.token(t, "u1", auth.RoleUser)
	rest := env.token(t, "r1", auth.RoleRestaurant)

	noLat := checkoutBody("COD")
	delete(noLat["address"].(map[string]any), "lat")
	if r := env.do(t, http.MethodPost, "/api/v1/orders", user, noLat); r.code != http.StatusBadRequest {
		t.Errorf("missing lat = %d %v", r.code, r.body)
	}

	zeroQty := checkoutBody("COD")
	zeroQty["restaurants"].([]map[string]any)[0]["items"] = []map[string]any{{"id": "d1", "qty": 0}}
	r := env.do(t, http.MethodPost, "/api/v1/orders", user, zeroQty)
	if r.code != http.StatusBadRequest || r.body["reason"] != services.ReasonInvalidQuantity {
		t.Errorf("zero qty = %d %v", r.code, r.body)
	}

	r = env.do(t, http.MethodPost, "/api/v1/orders", user, checkoutBody("COD"))
	id := orderID(t, r)
	if r := env.do(t, http.MethodPost, "/api/v1/restaurant/orders/"+id+"/accept", rest, nil); r.code != http.StatusOK {
		t.Fatalf("accept = %d %v", r.code, r.body)
	}
	r = env.do(t, http.MethodPost, "/api/v1/restaurant/orders/"+id+"/accept", rest, nil)
	if r.code != http.StatusConflict || r.body["reason"] != services.ReasonInvalidStatus {
		t.Errorf("second accept = %d %v", r.code, r.body)
	}
	if r := env.do(t, http.MethodGet, "/api/v1/orders/missing", user, nil); r.code != http.StatusNotFound {
		t.Errorf("missing order = %d", r.code)
	}
	other := env.token(t, "u2", auth.RoleUser)
	if r := env.do(t, http.MethodGet, "/api/v1/orders/"+id, other, nil); r.code != http.StatusNotFound {
		t.Errorf("other user's order = %d", r.code)
	}
	if r := env.do(t, http.MethodPost, "/api/v1/orders/"+id+"/cancel", other, nil); r.code != http.StatusForbidden {
		t.Errorf("other user's cancel = %d", r.code)
	}
}

func TestPaymentWebhook(t *testing.T) {
	env := newTestEnv(t)
	user := env.token(t, "u1", auth.RoleUser)
	r := env.do(t, http.MethodPost, "/api/v1/orders", user, checkoutBody("ONLINE"))
	if r.code != http.StatusCreated {
		t.Fatalf("place = %d %v", r.code, r.body)
	}
	merchantID, _ := r.body["merchantOrderId"].(string)
	if merchantID == "" || r.body["paymentToken"] != "pay-token" {
		t.Fatalf("online checkout body = %v", r.body)
	}

	hook := map[string]any{"event": "checkout.order.completed", "payload": map[string]any{"merchantOrderId": merchantID, "state": "COMPLETED"}}
	if r := env.do(t, http.MethodPost, "/api/v1/payments/webhook", "", hook); r.code != http.StatusUnauthorized {
		t.Errorf("unsigned webhook = %d", r.code)
	}
	r = env.do(t, http.MethodPost, "/api/v1/payments/webhook", "", hook, "Authorization", WebhookAuthorization("hook", "secret"))
	if r.code != http.StatusOK || r.body["state"] != "SUCCESS" {
		t.Fatalf("webhook = %d %v", r.code, r.body)
	}
	o, _ := env.st.GetOrder(context.Background(), orderID(t, r))
	if o.Status != models.OrderStatusPlaced {
		t.Errorf("order after webhook = %s", o.Status)
	}

	env.gw.state = payment.StatePending
	r = env.do(t, http.MethodPost, "/api/v1/payments/status", user, map[string]any{"merchantOrderId": merchantID})
	if r.code != http.StatusOK || r.body["state"] != "PENDING" {
		t.Errorf("poll = %d %v", r.code, r.body)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)
	password, err := env.svc.CreateAdmin(context.Background(), "ops")
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	r := env.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]any{"username": "ops", "password": password})
	if r.code != http.StatusOK {
		t.Fatalf("login = %d %v", r.code, r.body)
	}
	tok, _ := r.body["token"].(string)
	if r := env.do(t, http.MethodGet, "/api/v1/admin/orders/none", tok, nil); r.code != http.StatusNotFound {
		t.Errorf("admin lookup with issued token = %d", r.code)
	}

	r = env.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]any{"username": "ops", "password": "nope"})
	if r.code != http.StatusUnauthorized {
		t.Errorf("bad password = %d", r.code)
	}
	r = env.do(t, http.MethodPost, "/api/v1/admin/login", "", map[string]any{"username": "ops", "password": password})
	if r.code != http.StatusTooManyRequests || r.body["reason"] != services.ReasonTooManyAttempts {
		t.Errorf("throttled login = %d %v", r.code, r.body)
	}
}
