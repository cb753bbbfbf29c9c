// Package store defines the persistence contract the estate services run on.
// Backends live in mongostore and sqlstore.
package store

import (
	"context"
	"errors"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/utils"
)

// ErrNotFound is returned by Get, Update and Delete when no record matches.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique constraint other than the id rejects a write.
var ErrDuplicate = errors.New("duplicate record")

// Fields is a partial update keyed by storage field name (the bson key).
type Fields map[string]interface{}

// Visibility filters properties on their active flag.
type Visibility string

const (
	VisibilityActive   Visibility = "active"
	VisibilityArchived Visibility = "archived"
	VisibilityAll      Visibility = "all"
)

// PropertyFilter selects properties. Zero values do not filter, except
// Visibility which defaults to active only.
type PropertyFilter struct {
	IDs        []utils.SixID
	States     []models.PropertyState
	SalesmanID *utils.SixID
	Visibility Visibility
}

// OfferFilter selects offers.
type OfferFilter struct {
	IDs         []utils.SixID
	PropertyIDs []utils.SixID
	Statuses    []models.OfferStatus
}

type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) error
	Get(ctx context.Context, id utils.SixID) (*models.Property, error)
	Update(ctx context.Context, id utils.SixID, fields Fields) error
	Find(ctx context.Context, filter PropertyFilter) ([]models.Property, error)
	// Delete removes the property and every offer on it.
	Delete(ctx context.Context, id utils.SixID) error
}

type OfferRepository interface {
	Create(ctx context.Context, o *models.Offer) error
	Get(ctx context.Context, id utils.SixID) (*models.Offer, error)
	Update(ctx context.Context, id utils.SixID, fields Fields) error
	UpdateMany(ctx context.Context, ids []utils.SixID, fields Fields) error
	Find(ctx context.Context, filter OfferFilter) ([]models.Offer, error)
	Delete(ctx context.Context, id utils.SixID) error
}

type PropertyTypeRepository interface {
	Create(ctx context.Context, t *models.PropertyType) error
	Get(ctx context.Context, id utils.SixID) (*models.PropertyType, error)
	List(ctx context.Context) ([]models.PropertyType, error)
}

type PropertyTagRepository interface {
	Create(ctx context.Context, t *models.PropertyTag) error
	Get(ctx context.Context, id utils.SixID) (*models.PropertyTag, error)
	List(ctx context.Context) ([]models.PropertyTag, error)
}

type PartnerRepository interface {
	Create(ctx context.Context, p *models.Partner) error
	Get(ctx context.Context, id utils.SixID) (*models.Partner, error)
	List(ctx context.Context) ([]models.Partner, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id utils.SixID) (*models.User, error)
	// FindByEmail matches case-insensitively and returns ErrNotFound when absent.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

type JournalRepository interface {
	Create(ctx context.Context, j *models.Journal) error
	// FirstOfType returns the oldest journal of type t, or ErrNotFound.
	FirstOfType(ctx context.Context, t models.JournalType) (*models.Journal, error)
	List(ctx context.Context) ([]models.Journal, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *models.Invoice) error
	Get(ctx context.Context, id utils.SixID) (*models.Invoice, error)
	Update(ctx context.Context, id utils.SixID, fields Fields) error
	ListByProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error)
}

// Store bundles the repositories with a transaction runner.
type Store interface {
	Properties() PropertyRepository
	Offers() OfferRepository
	PropertyTypes() PropertyTypeRepository
	PropertyTags() PropertyTagRepository
	Partners() PartnerRepository
	Users() UserRepository
	Journals() JournalRepository
	Invoices() InvoiceRepository

	// RunInTx runs fn atomically. Repository calls made with the ctx passed
	// to fn join the transaction; nested calls reuse the outer one.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	Close(ctx context.Context) error
}

// Normalize fills the default visibility.
func (f PropertyFilter) Normalize() PropertyFilter {
	if f.Visibility == "" {
		f.Visibility = VisibilityActive
	}
	return f
}
