package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

type propertyRepo struct{ s *Store }

func (r propertyRepo) Create(ctx context.Context, p *models.Property) error {
	if err := insert(r.s.conn(ctx), p); err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

func (r propertyRepo) Get(ctx context.Context, id utils.SixID) (*models.Property, error) {
	return get[models.Property](r.s.conn(ctx), id)
}

func (r propertyRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return update[models.Property](r.s.conn(ctx), id, fields)
}

func (r propertyRepo) Find(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error) {
	filter = filter.Normalize()
	q := r.s.conn(ctx).Model(&models.Property{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", idArgs(filter.IDs))
	}
	if len(filter.States) > 0 {
		q = q.Where("state IN ?", stringArgs(filter.States))
	}
	if filter.SalesmanID != nil {
		q = q.Where("salesman_id = ?", filter.SalesmanID.String())
	}
	switch filter.Visibility {
	case store.VisibilityActive:
		q = q.Where("active = ?", true)
	case store.VisibilityArchived:
		q = q.Where("active = ?", false)
	}

	var props []models.Property
	if err := q.Order("created_at, id").Find(&props).Error; err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	return props, nil
}

func (r propertyRepo) Delete(ctx context.Context, id utils.SixID) error {
	return r.s.RunInTx(ctx, func(ctx context.Context) error {
		conn := r.s.conn(ctx)
		if err := conn.Where("property_id = ?", id.String()).Delete(&models.Offer{}).Error; err != nil {
			return fmt.Errorf("failed to delete offers: %w", err)
		}
		res := conn.Where("id = ?", id.String()).Delete(&models.Property{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete property: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

type offerRepo struct{ s *Store }

func (r offerRepo) Create(ctx context.Context, o *models.Offer) error {
	if err := insert(r.s.conn(ctx), o); err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (r offerRepo) Get(ctx context.Context, id utils.SixID) (*models.Offer, error) {
	return get[models.Offer](r.s.conn(ctx), id)
}

func (r offerRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return update[models.Offer](r.s.conn(ctx), id, fields)
}

func (r offerRepo) UpdateMany(ctx context.Context, ids []utils.SixID, fields store.Fields) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.s.conn(ctx).Model(&models.Offer{}).
		Where("id IN ?", idArgs(ids)).
		Updates(map[string]interface{}(fields)).Error
	if err != nil {
		return fmt.Errorf("failed to update offers: %w", err)
	}
	return nil
}

func (r offerRepo) Find(ctx context.Context, filter store.OfferFilter) ([]models.Offer, error) {
	q := r.s.conn(ctx).Model(&models.Offer{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", idArgs(filter.IDs))
	}
	if len(filter.PropertyIDs) > 0 {
		q = q.Where("property_id IN ?", idArgs(filter.PropertyIDs))
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", stringArgs(filter.Statuses))
	}
	var offers []models.Offer
	if err := q.Order("created_at, id").Find(&offers).Error; err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	return offers, nil
}

func (r offerRepo) Delete(ctx context.Context, id utils.SixID) error {
	res := r.s.conn(ctx).Where("id = ?", id.String()).Delete(&models.Offer{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete offer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type typeRepo struct{ s *Store }

func (r typeRepo) Create(ctx context.Context, t *models.PropertyType) error {
	return insert(r.s.conn(ctx), t)
}

func (r typeRepo) Get(ctx context.Context, id utils.SixID) (*models.PropertyType, error) {
	return get[models.PropertyType](r.s.conn(ctx), id)
}

func (r typeRepo) List(ctx context.Context) ([]models.PropertyType, error) {
	return list[models.PropertyType](r.s.conn(ctx))
}

type tagRepo struct{ s *Store }

func (r tagRepo) Create(ctx context.Context, t *models.PropertyTag) error {
	return insert(r.s.conn(ctx), t)
}

func (r tagRepo) Get(ctx context.Context, id utils.SixID) (*models.PropertyTag, error) {
	return get[models.PropertyTag](r.s.conn(ctx), id)
}

func (r tagRepo) List(ctx context.Context) ([]models.PropertyTag, error) {
	return list[models.PropertyTag](r.s.conn(ctx))
}

type partnerRepo struct{ s *Store }

func (r partnerRepo) Create(ctx context.Context, p *models.Partner) error {
	return insert(r.s.conn(ctx), p)
}

func (r partnerRepo) Get(ctx context.Context, id utils.SixID) (*models.Partner, error) {
	return get[models.Partner](r.s.conn(ctx), id)
}

func (r partnerRepo) List(ctx context.Context) ([]models.Partner, error) {
	return list[models.Partner](r.s.conn(ctx))
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *models.User) error {
	return insert(r.s.conn(ctx), u)
}

func (r userRepo) Get(ctx context.Context, id utils.SixID) (*models.User, error) {
	return get[models.User](r.s.conn(ctx), id)
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.s.conn(ctx).Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return &u, nil
}

func (r userRepo) List(ctx context.Context) ([]models.User, error) {
	return list[models.User](r.s.conn(ctx))
}

type journalRepo struct{ s *Store }

func (r journalRepo) Create(ctx context.Context, j *models.Journal) error {
	return insert(r.s.conn(ctx), j)
}

func (r journalRepo) FirstOfType(ctx context.Context, t models.JournalType) (*models.Journal, error) {
	var j models.Journal
	err := r.s.conn(ctx).Where("type = ?", string(t)).Order("created_at, id").First(&j).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query journals: %w", err)
	}
	return &j, nil
}

func (r journalRepo) List(ctx context.Context) ([]models.Journal, error) {
	return list[models.Journal](r.s.conn(ctx))
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	if err := insert(r.s.conn(ctx), inv); err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (r invoiceRepo) Get(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	return get[models.Invoice](r.s.conn(ctx), id)
}

func (r invoiceRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return update[models.Invoice](r.s.conn(ctx), id, fields)
}

func (r invoiceRepo) ListByProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error) {
	var invs []models.Invoice
	err := r.s.conn(ctx).Where("property_id = ?", propertyID.String()).Order("issued_at, id").Find(&invs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	return invs, nil
}
