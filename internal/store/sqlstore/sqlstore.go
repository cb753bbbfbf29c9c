// Package sqlstore implements store.Store on gorm (Postgres or SQLite).
package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"greendrake/estate/internal/db"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

type txKey struct{}

// Store is the gorm backed store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open gorm connection. Call Migrate before first use.
func New(gdb *gorm.DB) *Store {
	return &Store{db: gdb}
}

// Migrate creates or updates the tables for every record type.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&models.Property{},
		&models.Offer{},
		&models.PropertyType{},
		&models.PropertyTag{},
		&models.Partner{},
		&models.User{},
		&models.Journal{},
		&models.Invoice{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// conn returns the transaction bound to ctx, or the root connection.
func (s *Store) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) Close(context.Context) error {
	return db.CloseSQL(s.db)
}

func (s *Store) Properties() store.PropertyRepository       { return propertyRepo{s} }
func (s *Store) Offers() store.OfferRepository              { return offerRepo{s} }
func (s *Store) PropertyTypes() store.PropertyTypeRepository { return typeRepo{s} }
func (s *Store) PropertyTags() store.PropertyTagRepository  { return tagRepo{s} }
func (s *Store) Partners() store.PartnerRepository          { return partnerRepo{s} }
func (s *Store) Users() store.UserRepository                { return userRepo{s} }
func (s *Store) Journals() store.JournalRepository          { return journalRepo{s} }
func (s *Store) Invoices() store.InvoiceRepository          { return invoiceRepo{s} }

// insert creates rec, regenerating its id on collision. Each attempt runs in
// a savepoint so a failed insert does not poison an enclosing transaction.
func insert(conn *gorm.DB, rec models.IBase) error {
	rec.GenIDIfEmpty()
	first := true
	err := db.TrySQL(func() error {
		if !first {
			rec.GenID()
		}
		first = false
		return conn.Transaction(func(tx *gorm.DB) error {
			return tx.Create(rec).Error
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func get[T any](conn *gorm.DB, id utils.SixID) (*T, error) {
	var rec T
	err := conn.Where("id = ?", id.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func update[T any](conn *gorm.DB, id utils.SixID, fields store.Fields) error {
	res := conn.Model(new(T)).Where("id = ?", id.String()).Updates(map[string]interface{}(fields))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func list[T any](conn *gorm.DB) ([]T, error) {
	var recs []T
	if err := conn.Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func idArgs(ids []utils.SixID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func stringArgs[S ~string](vals []S) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
