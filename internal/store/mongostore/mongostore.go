// Package mongostore implements store.Store on MongoDB. Transactions need a
// replica set or sharded cluster.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"greendrake/estate/internal/db"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

const (
	propertiesCollection    = "properties"
	offersCollection        = "offers"
	propertyTypesCollection = "property_types"
	propertyTagsCollection  = "property_tags"
	partnersCollection      = "partners"
	usersCollection         = "users"
	journalsCollection      = "journals"
	invoicesCollection      = "invoices"
)

// Store is the MongoDB backed store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

func New(client *mongo.Client, database *mongo.Database) *Store {
	return &Store{client: client, db: database}
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		propertyTypesCollection: {{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)}},
		propertyTagsCollection:  {{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)}},
		offersCollection:        {{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "created_at", Value: 1}}}},
		propertiesCollection: {
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "state", Value: 1}}},
			{Keys: bson.D{{Key: "salesman_id", Value: 1}}},
		},
		journalsCollection: {{Keys: bson.D{{Key: "type", Value: 1}, {Key: "created_at", Value: 1}}}},
		invoicesCollection: {
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "property_id", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return db.DisconnectDB(ctx, s.client)
}

func (s *Store) Properties() store.PropertyRepository       { return propertyRepo{s} }
func (s *Store) Offers() store.OfferRepository              { return offerRepo{s} }
func (s *Store) PropertyTypes() store.PropertyTypeRepository { return typeRepo{s} }
func (s *Store) PropertyTags() store.PropertyTagRepository  { return tagRepo{s} }
func (s *Store) Partners() store.PartnerRepository          { return partnerRepo{s} }
func (s *Store) Users() store.UserRepository                { return userRepo{s} }
func (s *Store) Journals() store.JournalRepository          { return journalRepo{s} }
func (s *Store) Invoices() store.InvoiceRepository          { return invoiceRepo{s} }

// isIDCollision is a duplicate key on the primary index only; other unique
// indexes are real conflicts and are not retried.
func isIDCollision(err error) bool {
	return db.IsMongoDuplicateKeyError(err) && strings.Contains(err.Error(), "_id_")
}

// insert stores doc, regenerating its id on collision.
func insert(ctx context.Context, coll *mongo.Collection, doc models.IBase) error {
	doc.GenIDIfEmpty()
	first := true
	err := db.WithRetries(func() error {
		if !first {
			doc.GenID()
		}
		first = false
		_, err := coll.InsertOne(ctx, doc)
		return err
	}, db.DefaultMaxRetries, isIDCollision)
	if db.IsMongoDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts ...*options.FindOneOptions) (*T, error) {
	var rec T
	err := coll.FindOne(ctx, filter, opts...).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	recs := []T{}
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func updateOne(ctx context.Context, coll *mongo.Collection, id utils.SixID, fields store.Fields) error {
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func stringArgs[S ~string](vals []S) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
