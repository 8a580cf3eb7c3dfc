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

func (r *repo) CreateOrders(ctx context.Context, orders []*models.Order) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	docs := make([]interface{}, len(orders))
	for i, o := range orders {
		docs[i] = o
	}
	if _, err := r.db.Collection(colOrders).InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create orders: %w", store.ErrConflict)
		}
		return fmt.Errorf("failed to create orders: %w", err)
	}
	return nil
}

func (r *repo) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var o models.Order
	if err := r.db.Collection(colOrders).FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *repo) ListOrdersByMerchantOrderID(ctx context.Context, merchantOrderID string) ([]*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(colOrders).Find(ctx, bson.M{"merchant_order_id": merchantOrderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*models.Order
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return out, nil
}

func (r *repo) UpdateOrder(ctx context.Context, id string, from []models.OrderStatus, patch store.OrderPatch) (*models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"_id": id}
	if len(from) > 0 {
		filter["status"] = bson.M{"$in": from}
	}
	set := bson.M{}
	if patch.Status != nil {
		set["status"] = *patch.Status
	}
	if patch.PaymentState != nil {
		set["payment_state"] = *patch.PaymentState
	}
	if patch.AssignedRiderID != nil {
		set["assigned_rider_id"] = *patch.AssignedRiderID
	}
	if patch.RefundID != nil {
		set["refund_id"] = *patch.RefundID
	}
	if patch.MerchantRefundID != nil {
		set["merchant_refund_id"] = *patch.MerchantRefundID
	}
	if patch.CancelledAt != nil {
		set["cancelled_at"] = *patch.CancelledAt
	}
	if patch.PickedUpAt != nil {
		set["picked_up_at"] = *patch.PickedUpAt
	}
	if patch.DeliveredAt != nil {
		set["delivered_at"] = *patch.DeliveredAt
	}
	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	set["updated_at"] = updatedAt

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var o models.Order
	err := r.db.Collection(colOrders).FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&o)
	if err == nil {
		return &o, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	n, err := r.db.Collection(colOrders).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to check order: %w", err)
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

func (r *repo) AppendStatusHistory(ctx context.Context, change models.StatusChange) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.db.Collection(colOrderHistory).InsertOne(ctx, change); err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}
