package models

import (
	"time"

	"greendrake/estate/internal/utils"
)

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRefused  OfferStatus = "refused"
)

// Offer is a partner's bid on a property.
type Offer struct {
	Base       `bson:",inline"`
	Price      float64     `bson:"price" json:"price" gorm:"column:price"`
	Status     OfferStatus `bson:"status" json:"status" gorm:"column:status"`
	PartnerID  utils.SixID `bson:"partner_id" json:"partner_id" gorm:"column:partner_id;type:varchar(10);not null"`
	PropertyID utils.SixID `bson:"property_id" json:"property_id" gorm:"column:property_id;type:varchar(10);not null;index"`
	Validity   int         `bson:"validity" json:"validity" gorm:"column:validity"`
	CreatedAt  time.Time   `bson:"created_at" json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time   `bson:"updated_at" json:"updated_at" gorm:"column:updated_at"`

	DateDeadline time.Time `bson:"-" json:"date_deadline" gorm:"-"`
}
