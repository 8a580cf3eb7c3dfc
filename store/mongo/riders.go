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
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *repo) GetRider(ctx context.Context, id string) (*models.Rider, error) {
	var rd models.Rider
	if err := r.findByID(ctx, colRiders, id, &rd); err != nil {
		return nil, err
	}
	return &rd, nil
}

func (r *repo) ListAvailableRidersByPinCode(ctx context.Context, pin string) ([]*models.Rider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Equality against an array field matches any element.
	filter := bson.M{"is_available": true, "service_pin_codes": pin}
	cursor, err := r.db.Collection(colRiders).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list riders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*models.Rider
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode riders: %w", err)
	}
	return out, nil
}

func (r *repo) OfferOrderToRiders(ctx context.Context, orderID string, riderIDs []string) error {
	if len(riderIDs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.Collection(colRiders).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": riderIDs}},
		bson.M{"$addToSet": bson.M{"available_orders": orderID}},
	)
	if err != nil {
		return fmt.Errorf("failed to offer order: %w", err)
	}
	return nil
}

func (r *repo) ClaimOrder(ctx context.Context, riderID, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.db.Collection(colRiders).UpdateOne(ctx,
		bson.M{"_id": riderID},
		bson.M{
			"$pull":     bson.M{"available_orders": orderID},
			"$addToSet": bson.M{"current_orders": orderID},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to claim order: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repo) WithdrawOrderOffer(ctx context.Context, orderID, exceptRiderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.Collection(colRiders).UpdateMany(ctx,
		bson.M{"available_orders": orderID, "_id": bson.M{"$ne": exceptRiderID}},
		bson.M{"$pull": bson.M{"available_orders": orderID}},
	)
	if err != nil {
		return fmt.Errorf("failed to withdraw order offer: %w", err)
	}
	return nil
}

func (r *repo) ReleaseOrder(ctx context.Context, riderID, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := r.db.Collection(colRiders).UpdateOne(ctx,
		bson.M{"_id": riderID},
		bson.M{"$pull": bson.M{"current_orders": orderID}},
	)
	if err != nil {
		return fmt.Errorf("failed to release order: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repo) CreditEarnings(ctx context.Context, entityID string, kind models.EntityKind, amount int64) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.db.Collection(colEarnings).UpdateOne(ctx,
		bson.M{"_id": entityID},
		bson.M{
			"$inc":         bson.M{"earnings": amount},
			"$setOnInsert": bson.M{"entity_kind": kind, "payout": int64(0)},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to credit earnings: %w", err)
	}
	return nil
}

func (r *repo) RecordPayout(ctx context.Context, entityID string, amount int64, at time.Time) (*models.Earnings, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"_id":   entityID,
		"$expr": bson.M{"$gte": bson.A{bson.M{"$subtract": bson.A{"$earnings", "$payout"}}, amount}},
	}
	update := bson.M{
		"$inc": bson.M{"payout": amount},
		"$set": bson.M{"last_payout": at},
	}
	var e models.Earnings
	err := r.db.Collection(colEarnings).
		FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&e)
	if err == nil {
		return &e, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to record payout: %w", err)
	}
	if _, err := r.GetEarnings(ctx, entityID); err != nil {
		return nil, err
	}
	return nil, store.ErrInsufficientBalance
}

func (r *repo) GetEarnings(ctx context.Context, entityID string) (*models.Earnings, error) {
	var e models.Earnings
	if err := r.findByID(ctx, colEarnings, entityID, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
