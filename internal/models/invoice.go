package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"greendrake/estate/internal/utils"
)

type JournalType string

const (
	JournalSale     JournalType = "sale"
	JournalPurchase JournalType = "purchase"
)

// Journal is a billing destination invoices are posted to.
type Journal struct {
	Base      `bson:",inline"`
	Name      string      `bson:"name" json:"name" gorm:"column:name;not null"`
	Code      string      `bson:"code" json:"code" gorm:"column:code"`
	Type      JournalType `bson:"type" json:"type" gorm:"column:type;index"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at" gorm:"column:created_at"`
}

const MoveTypeOutInvoice = "out_invoice"

// InvoiceLineItem represents a single line item within an invoice.
type InvoiceLineItem struct {
	Name      string  `bson:"name" json:"name"`
	Quantity  float64 `bson:"quantity" json:"quantity"`
	PriceUnit float64 `bson:"price_unit" json:"price_unit"`
	Amount    float64 `bson:"amount" json:"amount"` // Quantity * PriceUnit, rounded to cents
}

// InvoiceLines is stored as an embedded array in MongoDB and a JSON column in SQL.
type InvoiceLines []InvoiceLineItem

// Invoice represents a bill issued to a partner.
type Invoice struct {
	Base          `bson:",inline"`
	PartnerID     utils.SixID  `bson:"partner_id" json:"partner_id" gorm:"column:partner_id;type:varchar(10);index"`
	PropertyID    utils.SixID  `bson:"property_id" json:"property_id" gorm:"column:property_id;type:varchar(10);index"`
	JournalID     utils.SixID  `bson:"journal_id" json:"journal_id" gorm:"column:journal_id;type:varchar(10)"`
	MoveType      string       `bson:"move_type" json:"move_type" gorm:"column:move_type"`
	InvoiceNumber string       `bson:"invoice_number" json:"invoice_number" gorm:"column:invoice_number;uniqueIndex"` // Generate a unique readable number
	Items         InvoiceLines `bson:"items" json:"items" gorm:"column:items;type:text"`
	CurrencyCode  string       `bson:"currency_code" json:"currency_code" gorm:"column:currency_code"`
	Total         float64      `bson:"total" json:"total" gorm:"column:total"`
	IssuedAt      time.Time    `bson:"issued_at" json:"issued_at" gorm:"column:issued_at"`
	DueAt         time.Time    `bson:"due" json:"due" gorm:"column:due"`
	Sent          bool         `bson:"sent" json:"sent" gorm:"column:sent"` // False initially, true after email task
}

// Value implements driver.Valuer.
func (l InvoiceLines) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *InvoiceLines) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), l)
	case []byte:
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into InvoiceLines", src)
	}
}
