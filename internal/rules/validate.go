package rules

import (
	"strings"

	"github.com/shopspring/decimal"

	"greendrake/estate/internal/models"
)

// SellingPriceThreshold is the minimum share of the expected price a
// non-zero selling price must reach.
var SellingPriceThreshold = decimal.RequireFromString("0.9")

// comparePrecision is the number of decimal digits float comparisons round to.
const comparePrecision = 2

const (
	MsgExpectedPricePositive = "expected price must be strictly positive"
	MsgSellingPricePositive  = "selling price must be positive"
	MsgSellingPriceTooLow    = "selling price cannot be lower than 90% of expected price"
	MsgOfferPricePositive    = "offer price must be strictly positive"
	MsgOfferNotHighest       = "offer must be higher than all existing offers for this property"
)

// CompareFloat compares a and b after rounding both to two decimal digits.
// It returns -1, 0 or 1.
func CompareFloat(a, b float64) int {
	return round(a).Cmp(round(b))
}

// IsZeroFloat reports whether v rounds to zero at two decimal digits.
func IsZeroFloat(v float64) bool {
	return round(v).IsZero()
}

func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(comparePrecision)
}

// CheckExpectedPrice requires expected > 0.
func CheckExpectedPrice(expected float64) error {
	if CompareFloat(expected, 0) <= 0 {
		return Validation("expected_price", MsgExpectedPricePositive)
	}
	return nil
}

// CheckSellingPrice requires selling >= 0 and, when non-zero, at least 90%
// of expected.
func CheckSellingPrice(selling, expected float64) error {
	if CompareFloat(selling, 0) < 0 {
		return Validation("selling_price", MsgSellingPricePositive)
	}
	if IsZeroFloat(selling) {
		return nil
	}
	floor := decimal.NewFromFloat(expected).Mul(SellingPriceThreshold).Round(comparePrecision)
	if round(selling).LessThan(floor) {
		return Validation("selling_price", MsgSellingPriceTooLow)
	}
	return nil
}

// CheckPropertyPrices runs both property price rules.
func CheckPropertyPrices(expected, selling float64) error {
	if err := CheckExpectedPrice(expected); err != nil {
		return err
	}
	return CheckSellingPrice(selling, expected)
}

// CheckOfferPrice requires price > 0.
func CheckOfferPrice(price float64) error {
	if CompareFloat(price, 0) <= 0 {
		return Validation("price", MsgOfferPricePositive)
	}
	return nil
}

// CheckOfferExceedsExisting requires price to be strictly above every price
// in existing. An empty existing set passes.
func CheckOfferExceedsExisting(price float64, existing []float64) error {
	if len(existing) == 0 {
		return nil
	}
	if CompareFloat(price, MaxPrice(existing)) <= 0 {
		return Validation("price", MsgOfferNotHighest)
	}
	return nil
}

// CheckNewOffer runs the creation-time offer rules against the prices
// already on the property.
func CheckNewOffer(price float64, existing []float64) error {
	if err := CheckOfferPrice(price); err != nil {
		return err
	}
	return CheckOfferExceedsExisting(price, existing)
}

const (
	MsgTitleRequired      = "property title is required"
	MsgLivingAreaNegative = "living area cannot be negative"
	MsgGardenAreaNegative = "garden area cannot be negative"
	MsgInvalidOrientation = "garden orientation must be one of north, south, east, west"
	MsgValidityNegative   = "validity cannot be negative"
	MsgPartnerRequired    = "offer partner is required"
	MsgPropertyRequired   = "offer property is required"
)

// CheckPropertyDetails covers the non-price property fields.
func CheckPropertyDetails(name string, livingArea, gardenArea int, orientation models.GardenOrientation) error {
	if strings.TrimSpace(name) == "" {
		return Validation("name", MsgTitleRequired)
	}
	if livingArea < 0 {
		return Validation("living_area", MsgLivingAreaNegative)
	}
	if gardenArea < 0 {
		return Validation("garden_area", MsgGardenAreaNegative)
	}
	if !orientation.Valid() {
		return Validation("garden_orientation", MsgInvalidOrientation)
	}
	return nil
}
