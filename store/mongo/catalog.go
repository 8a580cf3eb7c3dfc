package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"food-delivery/models"
	"food-delivery/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// findByID decodes the document with the given _id from col into out.
func (r *repo) findByID(ctx context.Context, col, id string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.db.Collection(col).FindOne(ctx, bson.M{"_id": id}).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to get %s %s: %w", col, id, err)
	}
	return nil
}

func (r *repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.findByID(ctx, colUsers, id, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repo) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var rest models.Restaurant
	if err := r.findByID(ctx, colRestaurants, id, &rest); err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *repo) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	var d models.Dish
	if err := r.findByID(ctx, colDishes, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repo) GetAdmin(ctx context.Context, username string) (*models.Admin, error) {
	var a models.Admin
	if err := r.findByID(ctx, colAdmins, username, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.db.Collection(colAdmins).InsertOne(ctx, admin); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}
	return nil
}

func (r *repo) SaveOutboundNotification(ctx context.Context, n *models.OutboundNotification) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.db.Collection(colNotifications).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	return nil
}
