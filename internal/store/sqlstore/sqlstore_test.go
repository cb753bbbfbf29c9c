package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

func setupStore(t *testing.T) *Store {
	s := New(utils.SetupTestSQL(t))
	require.NoError(t, s.Migrate())
	return s
}

func newProperty(name string, state models.PropertyState, active bool) *models.Property {
	return &models.Property{
		Name:          name,
		ExpectedPrice: 100000,
		State:         state,
		Active:        active,
		TagIDs:        utils.SixIDList{},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	salesman := utils.NewSixID()
	tag := utils.NewSixID()
	p := newProperty("Villa", models.StateNew, true)
	p.SalesmanID = &salesman
	p.TagIDs = utils.SixIDList{tag}
	p.Garden = true
	p.GardenOrientation = models.OrientationSouth
	require.NoError(t, s.Properties().Create(ctx, p))
	require.False(t, p.ID.IsZero())

	got, err := s.Properties().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Villa", got.Name)
	require.NotNil(t, got.SalesmanID)
	assert.Equal(t, salesman, *got.SalesmanID)
	assert.Nil(t, got.BuyerID)
	assert.Equal(t, utils.SixIDList{tag}, got.TagIDs)
	assert.Equal(t, models.OrientationSouth, got.GardenOrientation)

	buyer := utils.NewSixID()
	require.NoError(t, s.Properties().Update(ctx, p.ID, store.Fields{
		"buyer_id":      &buyer,
		"selling_price": 95000.0,
		"state":         models.StateOfferAccepted,
	}))
	got, err = s.Properties().Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.BuyerID)
	assert.Equal(t, buyer, *got.BuyerID)
	assert.Equal(t, 95000.0, got.SellingPrice)
	assert.Equal(t, models.StateOfferAccepted, got.State)

	_, err = s.Properties().Get(ctx, utils.NewSixID())
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Properties().Update(ctx, utils.NewSixID(), store.Fields{"name": "x"}), store.ErrNotFound)
}

func TestPropertyFindVisibility(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	salesman := utils.NewSixID()
	active := newProperty("Active", models.StateNew, true)
	active.SalesmanID = &salesman
	archived := newProperty("Archived", models.StateOfferReceived, false)
	archived.SalesmanID = &salesman
	sold := newProperty("Sold", models.StateSold, true)
	for _, p := range []*models.Property{active, archived, sold} {
		require.NoError(t, s.Properties().Create(ctx, p))
	}

	props, err := s.Properties().Find(ctx, store.PropertyFilter{})
	require.NoError(t, err)
	assert.Len(t, props, 2)

	props, err = s.Properties().Find(ctx, store.PropertyFilter{Visibility: store.VisibilityArchived})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, archived.ID, props[0].ID)

	props, err = s.Properties().Find(ctx, store.PropertyFilter{Visibility: store.VisibilityAll})
	require.NoError(t, err)
	assert.Len(t, props, 3)

	props, err = s.Properties().Find(ctx, store.PropertyFilter{
		SalesmanID: &salesman,
		States:     []models.PropertyState{models.StateNew, models.StateOfferReceived},
		Visibility: store.VisibilityAll,
	})
	require.NoError(t, err)
	assert.Len(t, props, 2)

	props, err = s.Properties().Find(ctx, store.PropertyFilter{IDs: []utils.SixID{sold.ID}})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "Sold", props[0].Name)
}

func TestPropertyDeleteCascadesOffers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := newProperty("Flat", models.StateNew, true)
	other := newProperty("Other", models.StateNew, true)
	require.NoError(t, s.Properties().Create(ctx, p))
	require.NoError(t, s.Properties().Create(ctx, other))
	for _, pid := range []utils.SixID{p.ID, p.ID, other.ID} {
		require.NoError(t, s.Offers().Create(ctx, &models.Offer{
			PropertyID: pid, PartnerID: utils.NewSixID(), Price: 1000, Status: models.OfferPending, Validity: 7,
		}))
	}

	require.NoError(t, s.Properties().Delete(ctx, p.ID))
	_, err := s.Properties().Get(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	offers, err := s.Offers().Find(ctx, store.OfferFilter{})
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, other.ID, offers[0].PropertyID)

	assert.ErrorIs(t, s.Properties().Delete(ctx, p.ID), store.ErrNotFound)
}

func TestOffersUpdateMany(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	pid := utils.NewSixID()
	var ids []utils.SixID
	for i := 0; i < 3; i++ {
		o := &models.Offer{PropertyID: pid, PartnerID: utils.NewSixID(), Price: float64(1000 + i), Status: models.OfferPending}
		require.NoError(t, s.Offers().Create(ctx, o))
		ids = append(ids, o.ID)
	}

	require.NoError(t, s.Offers().UpdateMany(ctx, ids[:2], store.Fields{"status": models.OfferRefused}))
	refused, err := s.Offers().Find(ctx, store.OfferFilter{PropertyIDs: []utils.SixID{pid}, Statuses: []models.OfferStatus{models.OfferRefused}})
	require.NoError(t, err)
	assert.Len(t, refused, 2)

	require.NoError(t, s.Offers().UpdateMany(ctx, nil, store.Fields{"status": models.OfferRefused}))
}

func TestRunInTxRollsBack(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	p := newProperty("Loft", models.StateNew, true)
	require.NoError(t, s.Properties().Create(ctx, p))

	boom := errors.New("boom")
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Properties().Update(ctx, p.ID, store.Fields{"state": models.StateCancelled}))
		return s.RunInTx(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Properties().Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateNew, got.State)
}

func TestCatalogUniqueNames(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	require.NoError(t, s.PropertyTypes().Create(ctx, &models.PropertyType{Name: "House"}))
	err := s.PropertyTypes().Create(ctx, &models.PropertyType{Name: "House"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	require.NoError(t, s.PropertyTags().Create(ctx, &models.PropertyTag{Name: "cosy"}))
	assert.ErrorIs(t, s.PropertyTags().Create(ctx, &models.PropertyTag{Name: "cosy"}), store.ErrDuplicate)

	types, err := s.PropertyTypes().List(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 1)
}

func TestInsertRetriesOnIDCollision(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	taken := utils.SixID{9, 9, 9, 9, 9, 9}
	require.NoError(t, s.Partners().Create(ctx, &models.Partner{Base: models.Base{ID: taken}, Name: "First"}))

	original := utils.NewSixIDHook
	defer func() { utils.NewSixIDHook = original }()
	fresh := utils.SixID{9, 9, 9, 9, 9, 8}
	utils.NewSixIDHook = func() (utils.SixID, bool) { return fresh, true }

	second := &models.Partner{Base: models.Base{ID: taken}, Name: "Second"}
	require.NoError(t, s.Partners().Create(ctx, second))
	assert.Equal(t, fresh, second.ID)
}

func TestJournalsAndInvoices(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.Journals().FirstOfType(ctx, models.JournalSale)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Journals().Create(ctx, &models.Journal{Name: "Vendor Bills", Type: models.JournalPurchase, CreatedAt: time.Now()}))
	sale := &models.Journal{Name: "Customer Invoices", Code: "INV", Type: models.JournalSale, CreatedAt: time.Now()}
	require.NoError(t, s.Journals().Create(ctx, sale))

	j, err := s.Journals().FirstOfType(ctx, models.JournalSale)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, j.ID)

	pid := utils.NewSixID()
	inv := &models.Invoice{
		PartnerID:     utils.NewSixID(),
		PropertyID:    pid,
		JournalID:     sale.ID,
		MoveType:      models.MoveTypeOutInvoice,
		InvoiceNumber: "INV-1",
		Items: models.InvoiceLines{
			{Name: "Administrative fees", Quantity: 1, PriceUnit: 100, Amount: 100},
		},
		Total:    100,
		IssuedAt: time.Now(),
	}
	require.NoError(t, s.Invoices().Create(ctx, inv))

	got, err := s.Invoices().ListByProperty(ctx, pid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inv.Items, got[0].Items)

	require.NoError(t, s.Invoices().Update(ctx, inv.ID, store.Fields{"sent": true}))
	fetched, err := s.Invoices().Get(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Sent)
}
