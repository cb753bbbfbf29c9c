package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// --- Mocks ---

// MockPropertyService
type MockPropertyService struct {
	mock.Mock
}

func (m *MockPropertyService) Create(ctx context.Context, in services.PropertyInput) (*models.Property, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Get(ctx context.Context, id utils.SixID) (*models.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) Query(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPropertyService) Update(ctx context.Context, id utils.SixID, patch services.PropertyPatch) (*models.Property, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Property), args.Error(1)
}

func (m *MockPropertyService) SetActive(ctx context.Context, ids []utils.SixID, active bool) services.Results {
	args := m.Called(ctx, ids, active)
	return args.Get(0).(services.Results)
}

func (m *MockPropertyService) Delete(ctx context.Context, id utils.SixID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPropertyService) Cancel(ctx context.Context, ids []utils.SixID) services.Results {
	args := m.Called(ctx, ids)
	return args.Get(0).(services.Results)
}

func (m *MockPropertyService) Sell(ctx context.Context, ids []utils.SixID) services.Results {
	args := m.Called(ctx, ids)
	return args.Get(0).(services.Results)
}

// MockOfferService
type MockOfferService struct {
	mock.Mock
}

func (m *MockOfferService) Create(ctx context.Context, inputs []services.OfferInput) ([]models.Offer, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Offer), args.Error(1)
}

func (m *MockOfferService) Get(ctx context.Context, id utils.SixID) (*models.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) ListForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Offer, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Offer), args.Error(1)
}

func (m *MockOfferService) Accept(ctx context.Context, ids []utils.SixID) (*models.Offer, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) Refuse(ctx context.Context, ids []utils.SixID) services.Results {
	args := m.Called(ctx, ids)
	return args.Get(0).(services.Results)
}

func (m *MockOfferService) Update(ctx context.Context, id utils.SixID, patch services.OfferPatch) (*models.Offer, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Offer), args.Error(1)
}

func (m *MockOfferService) Delete(ctx context.Context, id utils.SixID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBillingService
type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) DefaultJournal(ctx context.Context) (*models.Journal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Journal), args.Error(1)
}

func (m *MockBillingService) CreateJournal(ctx context.Context, name, code string, journalType models.JournalType) (*models.Journal, error) {
	args := m.Called(ctx, name, code, journalType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Journal), args.Error(1)
}

func (m *MockBillingService) ListJournals(ctx context.Context) ([]models.Journal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Journal), args.Error(1)
}

func (m *MockBillingService) CreateInvoice(ctx context.Context, partnerID, propertyID utils.SixID, items []models.InvoiceLineItem) (*models.Invoice, error) {
	args := m.Called(ctx, partnerID, propertyID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockBillingService) GetInvoice(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockBillingService) ListInvoicesForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockBillingService) MarkInvoiceSent(ctx context.Context, id utils.SixID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCatalogService
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) CreateType(ctx context.Context, name string) (*models.PropertyType, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyType), args.Error(1)
}

func (m *MockCatalogService) GetType(ctx context.Context, id utils.SixID) (*models.PropertyType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyType), args.Error(1)
}

func (m *MockCatalogService) ListTypes(ctx context.Context) ([]models.PropertyType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PropertyType), args.Error(1)
}

func (m *MockCatalogService) CreateTag(ctx context.Context, name string) (*models.PropertyTag, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyTag), args.Error(1)
}

func (m *MockCatalogService) GetTag(ctx context.Context, id utils.SixID) (*models.PropertyTag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PropertyTag), args.Error(1)
}

func (m *MockCatalogService) ListTags(ctx context.Context) ([]models.PropertyTag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PropertyTag), args.Error(1)
}

// MockPartyService
type MockPartyService struct {
	mock.Mock
}

func (m *MockPartyService) CreatePartner(ctx context.Context, in services.PartnerInput) (*models.Partner, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Partner), args.Error(1)
}

func (m *MockPartyService) GetPartner(ctx context.Context, id utils.SixID) (*models.Partner, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Partner), args.Error(1)
}

func (m *MockPartyService) ListPartners(ctx context.Context) ([]models.Partner, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Partner), args.Error(1)
}

func (m *MockPartyService) CreateUser(ctx context.Context, in services.UserInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockPartyService) GetUser(ctx context.Context, id utils.SixID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockPartyService) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockPartyService) ListAvailableForSalesman(ctx context.Context, userID utils.SixID) ([]models.Property, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Property), args.Error(1)
}

func (m *MockPartyService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}
