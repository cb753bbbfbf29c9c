package models

import (
	"time"

	"greendrake/estate/internal/utils"
)

// PropertyState is a step of the sale lifecycle.
type PropertyState string

const (
	StateNew           PropertyState = "new"
	StateOfferReceived PropertyState = "offer_received"
	StateOfferAccepted PropertyState = "offer_accepted"
	StateSold          PropertyState = "sold"
	StateCancelled     PropertyState = "cancelled"
)

// Valid reports whether s is a known state.
func (s PropertyState) Valid() bool {
	switch s {
	case StateNew, StateOfferReceived, StateOfferAccepted, StateSold, StateCancelled:
		return true
	}
	return false
}

// GardenOrientation is only meaningful when the property has a garden.
type GardenOrientation string

const (
	OrientationNorth GardenOrientation = "north"
	OrientationSouth GardenOrientation = "south"
	OrientationEast  GardenOrientation = "east"
	OrientationWest  GardenOrientation = "west"
)

func (o GardenOrientation) Valid() bool {
	switch o {
	case "", OrientationNorth, OrientationSouth, OrientationEast, OrientationWest:
		return true
	}
	return false
}

// Property is a real-estate listing.
type Property struct {
	Base              `bson:",inline"`
	Name              string            `bson:"name" json:"name" gorm:"column:name;not null"`
	Description       string            `bson:"description" json:"description" gorm:"column:description"`
	Postcode          string            `bson:"postcode" json:"postcode" gorm:"column:postcode"`
	DateAvailability  time.Time         `bson:"date_availability" json:"date_availability" gorm:"column:date_availability"`
	ExpectedPrice     float64           `bson:"expected_price" json:"expected_price" gorm:"column:expected_price;not null"`
	SellingPrice      float64           `bson:"selling_price" json:"selling_price" gorm:"column:selling_price"`
	Bedrooms          int               `bson:"bedrooms" json:"bedrooms" gorm:"column:bedrooms"`
	LivingArea        int               `bson:"living_area" json:"living_area" gorm:"column:living_area"`
	Facades           int               `bson:"facades" json:"facades" gorm:"column:facades"`
	Garage            bool              `bson:"garage" json:"garage" gorm:"column:garage"`
	Garden            bool              `bson:"garden" json:"garden" gorm:"column:garden"`
	GardenArea        int               `bson:"garden_area" json:"garden_area" gorm:"column:garden_area"`
	GardenOrientation GardenOrientation `bson:"garden_orientation" json:"garden_orientation" gorm:"column:garden_orientation"`
	Active            bool              `bson:"active" json:"active" gorm:"column:active;index"`
	State             PropertyState     `bson:"state" json:"state" gorm:"column:state;not null;index"`
	PropertyTypeID    *utils.SixID      `bson:"property_type_id,omitempty" json:"property_type_id,omitempty" gorm:"column:property_type_id;type:varchar(10)"`
	SalesmanID        *utils.SixID      `bson:"salesman_id,omitempty" json:"salesman_id,omitempty" gorm:"column:salesman_id;type:varchar(10);index"`
	BuyerID           *utils.SixID      `bson:"buyer_id,omitempty" json:"buyer_id,omitempty" gorm:"column:buyer_id;type:varchar(10)"`
	TagIDs            utils.SixIDList   `bson:"tag_ids" json:"tag_ids" gorm:"column:tag_ids;type:text"`
	CreatedAt         time.Time         `bson:"created_at" json:"created_at" gorm:"column:created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at" gorm:"column:updated_at"`

	// Loaded on read, never persisted on the property record.
	Offers    []Offer `bson:"-" json:"offers,omitempty" gorm:"-"`
	TotalArea int     `bson:"-" json:"total_area" gorm:"-"`
	BestPrice float64 `bson:"-" json:"best_price" gorm:"-"`
}

// PropertyType categorises properties (house, apartment, ...).
type PropertyType struct {
	Base      `bson:",inline"`
	Name      string    `bson:"name" json:"name" gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" gorm:"column:created_at"`
}

// PropertyTag is a free label attached to many properties.
type PropertyTag struct {
	Base      `bson:",inline"`
	Name      string    `bson:"name" json:"name" gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" gorm:"column:created_at"`
}
