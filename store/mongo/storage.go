// Package mongo implements store.Store on MongoDB. Transitions run inside
// session transactions, so the server must be a replica set.
package mongo

import (
	"context"
	"fmt"
	"time"

	"food-delivery/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colOrders        = "orders"
	colOrderHistory  = "order_status_history"
	colUsers         = "users"
	colRestaurants   = "restaurants"
	colDishes        = "dishes"
	colRiders        = "riders"
	colEarnings      = "earnings"
	colAdmins        = "admins"
	colNotifications = "outbound_notifications"
)

type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type Storage struct {
	*repo
	client   *mongo.Client
	database *mongo.Database
}

type repo struct {
	db *mongo.Database
}

func New(cfg Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	database := client.Database(cfg.Database)

	return &Storage{
		repo:     &repo{db: database},
		client:   client,
		database: database,
	}, nil
}

func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// WithTx runs fn inside a session transaction. The driver may retry fn on
// transient transaction errors, so fn must only touch the database.
func (s *Storage) WithTx(ctx context.Context, fn func(ctx context.Context, r store.Repository) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s.repo)
	})
	return err
}

func (s *Storage) CreateIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colOrders: {
			{Keys: bson.D{{Key: "merchant_order_id", Value: 1}}},
			{Keys: bson.D{{Key: "restaurant_id", Value: 1}}},
		},
		colOrderHistory: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
		colRiders: {
			{Keys: bson.D{{Key: "service_pin_codes", Value: 1}, {Key: "is_available", Value: 1}}},
			{Keys: bson.D{{Key: "available_orders", Value: 1}}},
		},
		colDishes: {
			{Keys: bson.D{{Key: "restaurant_id", Value: 1}}},
		},
		colNotifications: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
	}
	for col, idx := range indexes {
		if _, err := s.database.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", col, err)
		}
	}
	return nil
}
