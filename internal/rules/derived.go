package rules

import (
	"time"

	"greendrake/estate/internal/models"
)

const (
	DefaultGardenArea        = 10
	DefaultGardenOrientation = models.OrientationNorth
)

// TotalArea is living plus garden area.
func TotalArea(livingArea, gardenArea int) int {
	return livingArea + gardenArea
}

// MaxPrice returns the highest price, or 0 for none.
func MaxPrice(prices []float64) float64 {
	best := 0.0
	for i, p := range prices {
		if i == 0 || p > best {
			best = p
		}
	}
	return best
}

// BestPrice returns the highest offer price, or 0 when there are no offers.
func BestPrice(offers []models.Offer) float64 {
	return MaxPrice(OfferPrices(offers))
}

func OfferPrices(offers []models.Offer) []float64 {
	prices := make([]float64, len(offers))
	for i := range offers {
		prices[i] = offers[i].Price
	}
	return prices
}

// dateOf truncates t to its calendar date in UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Deadline is the creation date plus validity days. A zero created time
// anchors on now.
func Deadline(created time.Time, validity int) time.Time {
	if created.IsZero() {
		created = time.Now()
	}
	return dateOf(created).AddDate(0, 0, validity)
}

// ValidityFromDeadline is the whole-day difference between deadline and the
// creation date, floored at 0.
func ValidityFromDeadline(created, deadline time.Time) int {
	if created.IsZero() {
		created = time.Now()
	}
	days := int(dateOf(deadline).Sub(dateOf(created)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DefaultAvailability is today plus months, as a date.
func DefaultAvailability(now time.Time, months int) time.Time {
	return dateOf(now).AddDate(0, months, 0)
}

// GardenDefaults returns the area and orientation to apply when the garden
// flag is toggled.
func GardenDefaults(garden bool) (int, models.GardenOrientation) {
	if garden {
		return DefaultGardenArea, DefaultGardenOrientation
	}
	return 0, ""
}

// Decorate fills the derived fields of p from its own values and offers.
func Decorate(p *models.Property) {
	p.TotalArea = TotalArea(p.LivingArea, p.GardenArea)
	p.BestPrice = BestPrice(p.Offers)
	for i := range p.Offers {
		DecorateOffer(&p.Offers[i])
	}
}

// DecorateOffer fills the offer's deadline from its validity.
func DecorateOffer(o *models.Offer) {
	o.DateDeadline = Deadline(o.CreatedAt, o.Validity)
}
