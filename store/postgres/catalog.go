package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"food-delivery/models"
)

func (r *repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := r.q.QueryRow(ctx, `SELECT id, name, push_token FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.PushToken)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *repo) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var (
		rest     models.Restaurant
		lat, lng *float64
		hours    []byte
		offers   []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, name, lat, lng, pin_code, opening_hours, offers, push_token, best_seller_dish_id
		FROM restaurants WHERE id = $1`, id,
	).Scan(&rest.ID, &rest.Name, &lat, &lng, &rest.PinCode, &hours, &offers, &rest.PushToken, &rest.BestSellerDishID)
	if err != nil {
		return nil, notFound(err)
	}
	if lat != nil && lng != nil {
		rest.Location = &models.GeoPoint{Lat: *lat, Lng: *lng}
	}
	if err := json.Unmarshal(hours, &rest.OpeningHours); err != nil {
		return nil, fmt.Errorf("decode opening hours of restaurant %s: %w", id, err)
	}
	if err := json.Unmarshal(offers, &rest.Offers); err != nil {
		return nil, fmt.Errorf("decode offers of restaurant %s: %w", id, err)
	}
	return &rest, nil
}

func (r *repo) GetDish(ctx context.Context, id string) (*models.Dish, error) {
	var (
		d     models.Dish
		offer []byte
	)
	err := r.q.QueryRow(ctx, `
		SELECT id, restaurant_id, name, price, available, category, offer
		FROM dishes WHERE id = $1`, id,
	).Scan(&d.ID, &d.RestaurantID, &d.Name, &d.Price, &d.Available, &d.Category, &offer)
	if err != nil {
		return nil, notFound(err)
	}
	if len(offer) > 0 && string(offer) != "null" {
		d.Offer = &models.Offer{}
		if err := json.Unmarshal(offer, d.Offer); err != nil {
			return nil, fmt.Errorf("decode offer of dish %s: %w", id, err)
		}
	}
	return &d, nil
}
