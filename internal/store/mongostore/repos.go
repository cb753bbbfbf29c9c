package mongostore

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

type propertyRepo struct{ s *Store }

func (r propertyRepo) Create(ctx context.Context, p *models.Property) error {
	if err := insert(ctx, r.s.db.Collection(propertiesCollection), p); err != nil {
		return fmt.Errorf("failed to insert property: %w", err)
	}
	return nil
}

func (r propertyRepo) Get(ctx context.Context, id utils.SixID) (*models.Property, error) {
	return findOne[models.Property](ctx, r.s.db.Collection(propertiesCollection), bson.M{"_id": id})
}

func (r propertyRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return updateOne(ctx, r.s.db.Collection(propertiesCollection), id, fields)
}

func (r propertyRepo) Find(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error) {
	filter = filter.Normalize()
	q := bson.M{}
	if len(filter.IDs) > 0 {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	if len(filter.States) > 0 {
		q["state"] = bson.M{"$in": stringArgs(filter.States)}
	}
	if filter.SalesmanID != nil {
		q["salesman_id"] = *filter.SalesmanID
	}
	switch filter.Visibility {
	case store.VisibilityActive:
		q["active"] = true
	case store.VisibilityArchived:
		q["active"] = false
	}
	props, err := findAll[models.Property](ctx, r.s.db.Collection(propertiesCollection), q)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	return props, nil
}

func (r propertyRepo) Delete(ctx context.Context, id utils.SixID) error {
	return r.s.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := r.s.db.Collection(offersCollection).DeleteMany(ctx, bson.M{"property_id": id}); err != nil {
			return fmt.Errorf("failed to delete offers: %w", err)
		}
		res, err := r.s.db.Collection(propertiesCollection).DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to delete property: %w", err)
		}
		if res.DeletedCount == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

type offerRepo struct{ s *Store }

func (r offerRepo) Create(ctx context.Context, o *models.Offer) error {
	if err := insert(ctx, r.s.db.Collection(offersCollection), o); err != nil {
		return fmt.Errorf("failed to insert offer: %w", err)
	}
	return nil
}

func (r offerRepo) Get(ctx context.Context, id utils.SixID) (*models.Offer, error) {
	return findOne[models.Offer](ctx, r.s.db.Collection(offersCollection), bson.M{"_id": id})
}

func (r offerRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return updateOne(ctx, r.s.db.Collection(offersCollection), id, fields)
}

func (r offerRepo) UpdateMany(ctx context.Context, ids []utils.SixID, fields store.Fields) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.s.db.Collection(offersCollection).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M(fields)},
	)
	if err != nil {
		return fmt.Errorf("failed to update offers: %w", err)
	}
	return nil
}

func (r offerRepo) Find(ctx context.Context, filter store.OfferFilter) ([]models.Offer, error) {
	q := bson.M{}
	if len(filter.IDs) > 0 {
		q["_id"] = bson.M{"$in": filter.IDs}
	}
	if len(filter.PropertyIDs) > 0 {
		q["property_id"] = bson.M{"$in": filter.PropertyIDs}
	}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": stringArgs(filter.Statuses)}
	}
	offers, err := findAll[models.Offer](ctx, r.s.db.Collection(offersCollection), q)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	return offers, nil
}

func (r offerRepo) Delete(ctx context.Context, id utils.SixID) error {
	res, err := r.s.db.Collection(offersCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type typeRepo struct{ s *Store }

func (r typeRepo) Create(ctx context.Context, rec *models.PropertyType) error {
	return insert(ctx, r.s.db.Collection(propertyTypesCollection), rec)
}

func (r typeRepo) Get(ctx context.Context, id utils.SixID) (*models.PropertyType, error) {
	return findOne[models.PropertyType](ctx, r.s.db.Collection(propertyTypesCollection), bson.M{"_id": id})
}

func (r typeRepo) List(ctx context.Context) ([]models.PropertyType, error) {
	return findAll[models.PropertyType](ctx, r.s.db.Collection(propertyTypesCollection), bson.M{})
}

type tagRepo struct{ s *Store }

func (r tagRepo) Create(ctx context.Context, rec *models.PropertyTag) error {
	return insert(ctx, r.s.db.Collection(propertyTagsCollection), rec)
}

func (r tagRepo) Get(ctx context.Context, id utils.SixID) (*models.PropertyTag, error) {
	return findOne[models.PropertyTag](ctx, r.s.db.Collection(propertyTagsCollection), bson.M{"_id": id})
}

func (r tagRepo) List(ctx context.Context) ([]models.PropertyTag, error) {
	return findAll[models.PropertyTag](ctx, r.s.db.Collection(propertyTagsCollection), bson.M{})
}

type partnerRepo struct{ s *Store }

func (r partnerRepo) Create(ctx context.Context, rec *models.Partner) error {
	return insert(ctx, r.s.db.Collection(partnersCollection), rec)
}

func (r partnerRepo) Get(ctx context.Context, id utils.SixID) (*models.Partner, error) {
	return findOne[models.Partner](ctx, r.s.db.Collection(partnersCollection), bson.M{"_id": id})
}

func (r partnerRepo) List(ctx context.Context) ([]models.Partner, error) {
	return findAll[models.Partner](ctx, r.s.db.Collection(partnersCollection), bson.M{})
}

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, rec *models.User) error {
	return insert(ctx, r.s.db.Collection(usersCollection), rec)
}

func (r userRepo) Get(ctx context.Context, id utils.SixID) (*models.User, error) {
	return findOne[models.User](ctx, r.s.db.Collection(usersCollection), bson.M{"_id": id})
}

// FindByEmail relies on emails being stored lower-cased.
func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, r.s.db.Collection(usersCollection), bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r userRepo) List(ctx context.Context) ([]models.User, error) {
	return findAll[models.User](ctx, r.s.db.Collection(usersCollection), bson.M{})
}

type journalRepo struct{ s *Store }

func (r journalRepo) Create(ctx context.Context, j *models.Journal) error {
	return insert(ctx, r.s.db.Collection(journalsCollection), j)
}

func (r journalRepo) FirstOfType(ctx context.Context, t models.JournalType) (*models.Journal, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findOne[models.Journal](ctx, r.s.db.Collection(journalsCollection), bson.M{"type": string(t)}, opts)
}

func (r journalRepo) List(ctx context.Context) ([]models.Journal, error) {
	return findAll[models.Journal](ctx, r.s.db.Collection(journalsCollection), bson.M{})
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	if err := insert(ctx, r.s.db.Collection(invoicesCollection), inv); err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}
	return nil
}

func (r invoiceRepo) Get(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	return findOne[models.Invoice](ctx, r.s.db.Collection(invoicesCollection), bson.M{"_id": id})
}

func (r invoiceRepo) Update(ctx context.Context, id utils.SixID, fields store.Fields) error {
	return updateOne(ctx, r.s.db.Collection(invoicesCollection), id, fields)
}

func (r invoiceRepo) ListByProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error) {
	invs, err := findAll[models.Invoice](ctx, r.s.db.Collection(invoicesCollection), bson.M{"property_id": propertyID})
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	return invs, nil
}
