package services

import (
	"math"

	"food-delivery/config"
	"food-delivery/models"

	"github.com/shopspring/decimal"
)

const earthRadiusKm = 6371

// Offer sources recorded on a line item.
const (
	OfferSourceDish       = "dish"
	OfferSourceCategory   = "category"
	OfferSourceRestaurant = "restaurant"
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the fee parameters applied to every restaurant group.
type Pricing struct {
	GSTPercent         float64
	PlatformFee        float64
	RatePerKm          float64
	MinDeliveryFee     float64
	RoadDistanceFactor float64
}

var DefaultPricing = Pricing{
	GSTPercent:         5,
	PlatformFee:        10,
	RatePerKm:          10,
	MinDeliveryFee:     10,
	RoadDistanceFactor: 1.3,
}

func PricingFromConfig(c config.PricingConfig) Pricing {
	return Pricing{
		GSTPercent:         c.GSTPercent,
		PlatformFee:        c.PlatformFee,
		RatePerKm:          c.RatePerKm,
		MinDeliveryFee:     c.MinDeliveryFee,
		RoadDistanceFactor: c.RoadDistanceFactor,
	}
}

// HaversineDistanceKm returns the great-circle distance between two points.
func HaversineDistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// DeliveryFee converts a straight-line distance into a whole-currency fee:
// round(max(min fee, km * road factor * rate)).
func (p Pricing) DeliveryFee(distanceKm float64) float64 {
	fee := decimal.NewFromFloat(distanceKm).
		Mul(decimal.NewFromFloat(p.RoadDistanceFactor)).
		Mul(decimal.NewFromFloat(p.RatePerKm))
	if floor := decimal.NewFromFloat(p.MinDeliveryFee); fee.LessThan(floor) {
		fee = floor
	}
	return fee.Round(0).InexactFloat64()
}

// ApplyOffer returns the unit price after a single offer. Flat offers never go below zero.
func ApplyOffer(price float64, offer *models.Offer) float64 {
	if offer == nil {
		return price
	}
	p := decimal.NewFromFloat(price)
	v := decimal.NewFromFloat(offer.Value)
	switch offer.Kind {
	case models.OfferPercentage:
		p = p.Mul(decimal.NewFromInt(1).Sub(v.Div(hundred)))
	case models.OfferFlat:
		p = decimal.Max(decimal.Zero, p.Sub(v))
	}
	return p.InexactFloat64()
}

// ResolveOffer picks the single most specific offer for a dish: dish, then
// the dish's category, then the restaurant-wide offer.
func ResolveOffer(dish *models.Dish, r *models.Restaurant) (*models.Offer, string) {
	if dish.Offer != nil {
		return dish.Offer, OfferSourceDish
	}
	if r != nil {
		if o, ok := r.Offers.Categories[dish.Category]; ok && dish.Category != "" {
			return &o, OfferSourceCategory
		}
		if r.Offers.Restaurant != nil {
			return r.Offers.Restaurant, OfferSourceRestaurant
		}
	}
	return nil, ""
}

// PriceLine is a resolved dish and the quantity ordered.
type PriceLine struct {
	Dish *models.Dish
	Qty  int
}

// Price fills the item snapshots and fee breakdown of o for the restaurant
// and lines given. The caller has already checked availability and ownership.
func (p Pricing) Price(o *models.Order, r *models.Restaurant, lines []PriceLine, dest models.Address) {
	itemTotal := decimal.Zero
	o.Items = make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		offer, source := ResolveOffer(l.Dish, r)
		unit := ApplyOffer(l.Dish.Price, offer)
		item := models.OrderItem{
			DishID:            l.Dish.ID,
			Qty:               l.Qty,
			Name:              l.Dish.Name,
			BasePrice:         l.Dish.Price,
			FinalPricePerUnit: unit,
		}
		if offer != nil {
			item.AppliedOffer = &models.AppliedOffer{Kind: offer.Kind, Value: offer.Value, Source: source}
		}
		o.Items = append(o.Items, item)
		itemTotal = itemTotal.Add(decimal.NewFromFloat(unit).Mul(decimal.NewFromInt(int64(l.Qty))))
	}

	var delivery float64
	if r.Location != nil {
		delivery = p.DeliveryFee(HaversineDistanceKm(r.Location.Lat, r.Location.Lng, dest.Lat, dest.Lng))
	}
	gst := itemTotal.Mul(decimal.NewFromFloat(p.GSTPercent)).Div(hundred)
	total := itemTotal.
		Add(decimal.NewFromFloat(delivery)).
		Add(gst).
		Add(decimal.NewFromFloat(p.PlatformFee)).
		Round(0)

	o.ItemTotal = itemTotal.InexactFloat64()
	o.DeliveryFee = delivery
	o.GST = gst.InexactFloat64()
	o.PlatformFee = p.PlatformFee
	o.Total = total.InexactFloat64()
}

// toMinor converts a major-unit amount to minor units, rounding half away from zero.
func toMinor(v float64) int64 {
	return decimal.NewFromFloat(v).Mul(hundred).Round(0).IntPart()
}

// MinorToMajor converts ledger minor units back to major units.
func MinorToMajor(v int64) float64 {
	return decimal.New(v, -2).InexactFloat64()
}
