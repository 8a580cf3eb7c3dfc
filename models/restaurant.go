package models

type OfferKind string

const (
	OfferPercentage OfferKind = "percentage"
	OfferFlat       OfferKind = "flat"
)

// Offer is a discount value object.
type Offer struct {
	Kind  OfferKind `json:"type" bson:"kind"`
	Value float64   `json:"value" bson:"value"`
}

// OfferConfig holds a restaurant-wide offer and per-category offers keyed by category name.
type OfferConfig struct {
	Restaurant *Offer           `json:"offer,omitempty" bson:"restaurant,omitempty"`
	Categories map[string]Offer `json:"category,omitempty" bson:"categories,omitempty"`
}

// DayHours is one weekday's window. CloseTime before OpenTime means the window crosses midnight.
type DayHours struct {
	OpenTime  string `json:"openTime" bson:"open_time"`
	CloseTime string `json:"closeTime" bson:"close_time"`
	IsOpen    bool   `json:"isOpen" bson:"is_open"`
}

type GeoPoint struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

type Restaurant struct {
	ID               string              `json:"id" bson:"_id"`
	Name             string              `json:"name" bson:"name"`
	Location         *GeoPoint           `json:"location,omitempty" bson:"location,omitempty"`
	PinCode          string              `json:"pinCode" bson:"pin_code"`
	OpeningHours     map[string]DayHours `json:"openingHours" bson:"opening_hours"` // keyed by lowercase weekday
	Offers           OfferConfig         `json:"offers" bson:"offers"`
	PushToken        string              `json:"pushToken,omitempty" bson:"push_token,omitempty"`
	BestSellerDishID string              `json:"bestSellerDishId,omitempty" bson:"best_seller_dish_id,omitempty"`
}

type Dish struct {
	ID           string  `json:"id" bson:"_id"`
	RestaurantID string  `json:"restaurantId" bson:"restaurant_id"`
	Name         string  `json:"name" bson:"name"`
	Price        float64 `json:"price" bson:"price"`
	Available    bool    `json:"available" bson:"available"`
	Category     string  `json:"category" bson:"category"`
	Offer        *Offer  `json:"offer,omitempty" bson:"offer,omitempty"`
}
