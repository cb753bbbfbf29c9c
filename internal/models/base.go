package models

import (
	"greendrake/estate/internal/utils"
)

type IBase interface {
	GenIDIfEmpty()
	GenID()
	SetID(id utils.SixID)
	GetID() utils.SixID
}

// Base carries the record id. MongoDB stores it as _id, SQL as id.
type Base struct {
	ID utils.SixID `bson:"_id,omitempty" json:"id,omitempty" gorm:"column:id;primaryKey;type:varchar(10)"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = utils.NewSixID()
}

func (m *Base) SetID(id utils.SixID) {
	m.ID = id
}

func (m *Base) GetID() utils.SixID {
	return m.ID
}

func NewBase() Base {
	return Base{
		ID: utils.NewSixID(),
	}
}
