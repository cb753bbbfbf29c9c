package models

import (
	"time"
)

// User is an internal salesperson acting on properties.
type User struct {
	Base      `bson:",inline"`
	Name      string    `bson:"name" json:"name" gorm:"column:name;not null"`
	Email     string    `bson:"email" json:"email" gorm:"column:email;index"`
	Password  string    `bson:"password,omitempty" json:"-" gorm:"column:password"` // bcrypt hash
	IsAdmin   bool      `bson:"is_admin" json:"is_admin" gorm:"column:is_admin"`
	CreatedAt time.Time `bson:"created_at" json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at" gorm:"column:updated_at"`

	// Properties assigned to this salesman that are still available (new or offer_received).
	Properties []Property `bson:"-" json:"properties,omitempty" gorm:"-"`
}
