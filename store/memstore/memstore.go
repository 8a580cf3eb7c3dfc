// Package memstore is an in-process store used for local runs and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"food-delivery/models"
	"food-delivery/store"
)

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
}

// unlocked is the Store seen from inside WithTx, where the transaction lock is already held.
type unlocked Store

func (s *Store) serialize() func() {
	s.txMu.Lock()
	return s.txMu.Unlock
}

type state struct {
	users         map[string]models.User
	restaurants   map[string]models.Restaurant
	dishes        map[string]models.Dish
	riders        map[string]models.Rider
	orders        map[string]models.Order
	history       []models.StatusChange
	earnings      map[string]models.Earnings
	admins        map[string]models.Admin
	notifications []models.OutboundNotification
}

func New() *Store {
	return &Store{data: state{
		users:       map[string]models.User{},
		restaurants: map[string]models.Restaurant{},
		dishes:      map[string]models.Dish{},
		riders:      map[string]models.Rider{},
		orders:      map[string]models.Order{},
		earnings:    map[string]models.Earnings{},
		admins:      map[string]models.Admin{},
	}}
}

// Seed is the JSON shape accepted by LoadSeed.
type Seed struct {
	Users       []models.User       `json:"users"`
	Restaurants []models.Restaurant `json:"restaurants"`
	Dishes      []models.Dish       `json:"dishes"`
	Riders      []models.Rider      `json:"riders"`
}

// LoadSeed reads catalog data from a JSON file.
func (s *Store) LoadSeed(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(b, &seed); err != nil {
		return fmt.Errorf("parse seed: %w", err)
	}
	for _, u := range seed.Users {
		s.PutUser(u)
	}
	for _, r := range seed.Restaurants {
		s.PutRestaurant(r)
	}
	for _, d := range seed.Dishes {
		s.PutDish(d)
	}
	for _, r := range seed.Riders {
		s.PutRider(r)
	}
	return nil
}

func (s *Store) PutUser(u models.User) {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *Store) PutRestaurant(r models.Restaurant) {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.restaurants[r.ID] = r
}

func (s *Store) PutDish(d models.Dish) {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.dishes[d.ID] = d
}

func (s *Store) PutRider(r models.Rider) {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.riders[r.ID] = copyRider(r)
}

// History returns the recorded status changes for an order.
func (s *Store) History(orderID string) []models.StatusChange {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatusChange
	for _, c := range s.data.history {
		if c.OrderID == orderID {
			out = append(out, c)
		}
	}
	return out
}

// Notifications returns every saved outbound notification.
func (s *Store) Notifications() []models.OutboundNotification {
	defer s.serialize()()
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OutboundNotification(nil), s.data.notifications...)
}

// WithTx restores a snapshot when fn fails. Every other call on the Store
// waits for a running transaction, so a rollback only discards fn's writes.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo store.Repository) error) error {
	defer s.serialize()()

	s.mu.Lock()
	snap := s.data.clone()
	s.mu.Unlock()

	if err := fn(ctx, (*unlocked)(s)); err != nil {
		s.mu.Lock()
		s.data = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

func (s *unlocked) CreateOrders(ctx context.Context, orders []*models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range orders {
		if _, ok := s.data.orders[o.ID]; ok {
			return fmt.Errorf("order %s: %w", o.ID, store.ErrConflict)
		}
	}
	for _, o := range orders {
		s.data.orders[o.ID] = copyOrder(*o)
	}
	return nil
}

func (s *unlocked) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyOrder(o)
	return &c, nil
}

func (s *unlocked) ListOrdersByMerchantOrderID(ctx context.Context, merchantOrderID string) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Order
	for _, o := range s.data.orders {
		if o.MerchantOrderID == merchantOrderID {
			c := copyOrder(o)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *unlocked) UpdateOrder(ctx context.Context, id string, from []models.OrderStatus, patch store.OrderPatch) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !store.StatusIn(o.Status, from) {
		return nil, store.ErrConflict
	}
	patch.Apply(&o)
	s.data.orders[id] = o
	c := copyOrder(o)
	return &c, nil
}

func (s *unlocked) AppendStatusHistory(ctx context.Context, change models.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.history = append(s.data.history, change)
	return nil
}

func (s *unlocked) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *unlocked) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.restaurants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (s *unlocked) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data.dishes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &d, nil
}

func (s *unlocked) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.riders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := copyRider(r)
	return &c, nil
}

func (s *unlocked) ListAvailableRidersByPinCode(ctx context.Context, pin string) ([]*models.Rider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Rider
	for _, r := range s.data.riders {
		if r.IsAvailable && r.Services(pin) {
			c := copyRider(r)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *unlocked) OfferOrderToRiders(ctx context.Context, orderID string, riderIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range riderIDs {
		r, ok := s.data.riders[id]
		if !ok {
			continue
		}
		r.AvailableOrders = addToSet(r.AvailableOrders, orderID)
		s.data.riders[id] = r
	}
	return nil
}

func (s *unlocked) ClaimOrder(ctx context.Context, riderID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.riders[riderID]
	if !ok {
		return store.ErrNotFound
	}
	r.AvailableOrders = pull(r.AvailableOrders, orderID)
	r.CurrentOrders = addToSet(r.CurrentOrders, orderID)
	s.data.riders[riderID] = r
	return nil
}

func (s *unlocked) WithdrawOrderOffer(ctx context.Context, orderID, exceptRiderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.data.riders {
		if id == exceptRiderID {
			continue
		}
		r.AvailableOrders = pull(r.AvailableOrders, orderID)
		s.data.riders[id] = r
	}
	return nil
}

func (s *unlocked) ReleaseOrder(ctx context.Context, riderID, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.data.riders[riderID]
	if !ok {
		return store.ErrNotFound
	}
	r.CurrentOrders = pull(r.CurrentOrders, orderID)
	s.data.riders[riderID] = r
	return nil
}

func (s *unlocked) CreditEarnings(ctx context.Context, entityID string, kind models.EntityKind, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.earnings[entityID]
	if !ok {
		e = models.Earnings{EntityID: entityID, EntityKind: kind}
	}
	e.Earnings += amount
	s.data.earnings[entityID] = e
	return nil
}

func (s *unlocked) RecordPayout(ctx context.Context, entityID string, amount int64, at time.Time) (*models.Earnings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.earnings[entityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if e.Balance() < amount {
		return nil, store.ErrInsufficientBalance
	}
	e.Payout += amount
	e.LastPayout = &at
	s.data.earnings[entityID] = e
	c := e
	return &c, nil
}

func (s *unlocked) GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data.earnings[entityID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (s *unlocked) GetAdmin(ctx context.Context, username string) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.admins[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &a, nil
}

func (s *unlocked) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.admins[admin.Username]; ok {
		return store.ErrConflict
	}
	s.data.admins[admin.Username] = *admin
	return nil
}

func (s *unlocked) SaveOutboundNotification(ctx context.Context, n *models.OutboundNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.notifications = append(s.data.notifications, *n)
	return nil
}

func (s *Store) CreateOrders(ctx context.Context, orders []*models.Order) error {
	defer s.serialize()()
	return (*unlocked)(s).CreateOrders(ctx, orders)
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetOrder(ctx, id)
}

func (s *Store) ListOrdersByMerchantOrderID(ctx context.Context, merchantOrderID string) ([]*models.Order, error) {
	defer s.serialize()()
	return (*unlocked)(s).ListOrdersByMerchantOrderID(ctx, merchantOrderID)
}

func (s *Store) UpdateOrder(ctx context.Context, id string, from []models.OrderStatus, patch store.OrderPatch) (*models.Order, error) {
	defer s.serialize()()
	return (*unlocked)(s).UpdateOrder(ctx, id, from, patch)
}

func (s *Store) AppendStatusHistory(ctx context.Context, change models.StatusChange) error {
	defer s.serialize()()
	return (*unlocked)(s).AppendStatusHistory(ctx, change)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetUser(ctx, id)
}

func (s *Store) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetRestaurant(ctx, id)
}

func (s *Store) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetDish(ctx, id)
}

func (s *Store) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetRider(ctx, id)
}

func (s *Store) ListAvailableRidersByPinCode(ctx context.Context, pin string) ([]*models.Rider, error) {
	defer s.serialize()()
	return (*unlocked)(s).ListAvailableRidersByPinCode(ctx, pin)
}

func (s *Store) OfferOrderToRiders(ctx context.Context, orderID string, riderIDs []string) error {
	defer s.serialize()()
	return (*unlocked)(s).OfferOrderToRiders(ctx, orderID, riderIDs)
}

func (s *Store) ClaimOrder(ctx context.Context, riderID, orderID string) error {
	defer s.serialize()()
	return (*unlocked)(s).ClaimOrder(ctx, riderID, orderID)
}

func (s *Store) WithdrawOrderOffer(ctx context.Context, orderID, exceptRiderID string) error {
	defer s.serialize()()
	return (*unlocked)(s).WithdrawOrderOffer(ctx, orderID, exceptRiderID)
}

func (s *Store) ReleaseOrder(ctx context.Context, riderID, orderID string) error {
	defer s.serialize()()
	return (*unlocked)(s).ReleaseOrder(ctx, riderID, orderID)
}

func (s *Store) CreditEarnings(ctx context.Context, entityID string, kind models.EntityKind, amount int64) error {
	defer s.serialize()()
	return (*unlocked)(s).CreditEarnings(ctx, entityID, kind, amount)
}

func (s *Store) RecordPayout(ctx context.Context, entityID string, amount int64, at time.Time) (*models.Earnings, error) {
	defer s.serialize()()
	return (*unlocked)(s).RecordPayout(ctx, entityID, amount, at)
}

func (s *Store) GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetEarnings(ctx, entityID)
}

func (s *Store) GetAdmin(ctx context.Context, username string) (*models.Admin, error) {
	defer s.serialize()()
	return (*unlocked)(s).GetAdmin(ctx, username)
}

func (s *Store) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	defer s.serialize()()
	return (*unlocked)(s).CreateAdmin(ctx, admin)
}

func (s *Store) SaveOutboundNotification(ctx context.Context, n *models.OutboundNotification) error {
	defer s.serialize()()
	return (*unlocked)(s).SaveOutboundNotification(ctx, n)
}

func (d state) clone() state {
	c := state{
		users:         make(map[string]models.User, len(d.users)),
		restaurants:   make(map[string]models.Restaurant, len(d.restaurants)),
		dishes:        make(map[string]models.Dish, len(d.dishes)),
		riders:        make(map[string]models.Rider, len(d.riders)),
		orders:        make(map[string]models.Order, len(d.orders)),
		history:       append([]models.StatusChange(nil), d.history...),
		earnings:      make(map[string]models.Earnings, len(d.earnings)),
		admins:        make(map[string]models.Admin, len(d.admins)),
		notifications: append([]models.OutboundNotification(nil), d.notifications...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.restaurants {
		c.restaurants[k] = v
	}
	for k, v := range d.dishes {
		c.dishes[k] = v
	}
	for k, v := range d.riders {
		c.riders[k] = copyRider(v)
	}
	for k, v := range d.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range d.earnings {
		c.earnings[k] = v
	}
	for k, v := range d.admins {
		c.admins[k] = v
	}
	return c
}

func copyOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return o
}

func copyRider(r models.Rider) models.Rider {
	r.ServicePinCodes = append([]string(nil), r.ServicePinCodes...)
	r.AvailableOrders = append([]string(nil), r.AvailableOrders...)
	r.CurrentOrders = append([]string(nil), r.CurrentOrders...)
	return r
}

func addToSet(set []string, v string) []string {
	for _, x := range set {
		if x == v {
			return set
		}
	}
	return append(set, v)
}

func pull(set []string, v string) []string {
	out := set[:0:0]
	for _, x := range set {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
