package models

import (
	"time"
)

// Partner is an external party: offer maker, buyer, invoice recipient.
type Partner struct {
	Base      `bson:",inline"`
	Name      string    `bson:"name" json:"name" gorm:"column:name;not null"`
	Email     string    `bson:"email" json:"email" gorm:"column:email"`
	Phone     string    `bson:"phone,omitempty" json:"phone,omitempty" gorm:"column:phone"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" gorm:"column:created_at"`
}
