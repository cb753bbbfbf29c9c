package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// IBillingService defines the billing collaborator: journals and invoices.
type IBillingService interface {
	// DefaultJournal returns the first sale journal, or nil when none is configured.
	DefaultJournal(ctx context.Context) (*models.Journal, error)
	CreateJournal(ctx context.Context, name, code string, journalType models.JournalType) (*models.Journal, error)
	ListJournals(ctx context.Context) ([]models.Journal, error)
	CreateInvoice(ctx context.Context, partnerID, propertyID utils.SixID, items []models.InvoiceLineItem) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id utils.SixID) (*models.Invoice, error)
	ListInvoicesForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error)
	MarkInvoiceSent(ctx context.Context, id utils.SixID) error
}

type billingService struct {
	store store.Store
	cfg   *config.Config
	log   *zap.Logger
}

// NewBillingService creates a new BillingService.
func NewBillingService(st store.Store, cfg *config.Config, logger *zap.Logger) IBillingService {
	return &billingService{
		store: st,
		cfg:   cfg,
		log:   logging.OrNop(logger).Named("billing"),
	}
}

func (s *billingService) DefaultJournal(ctx context.Context) (*models.Journal, error) {
	j, err := s.store.Journals().FirstOfType(ctx, models.JournalSale)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up sale journal: %w", err)
	}
	return j, nil
}

func (s *billingService) CreateJournal(ctx context.Context, name, code string, journalType models.JournalType) (*models.Journal, error) {
	if strings.TrimSpace(name) == "" {
		return nil, rules.Validation("name", "journal name is required")
	}
	if journalType == "" {
		journalType = models.JournalSale
	}
	if journalType != models.JournalSale && journalType != models.JournalPurchase {
		return nil, rules.Validation("type", "journal type must be sale or purchase")
	}
	j := &models.Journal{Name: name, Code: code, Type: journalType, CreatedAt: time.Now().UTC()}
	if err := s.store.Journals().Create(ctx, j); err != nil {
		return nil, fmt.Errorf("failed to create journal: %w", err)
	}
	s.log.Info("journal created", zap.String("journal_id", j.ID.String()), zap.String("type", string(j.Type)))
	return j, nil
}

func (s *billingService) ListJournals(ctx context.Context) ([]models.Journal, error) {
	return s.store.Journals().List(ctx)
}

// CreateInvoice posts a customer invoice to the default sale journal.
// Line amounts are recomputed as quantity * unit price, rounded to cents.
func (s *billingService) CreateInvoice(ctx context.Context, partnerID, propertyID utils.SixID, items []models.InvoiceLineItem) (*models.Invoice, error) {
	journal, err := s.DefaultJournal(ctx)
	if err != nil {
		return nil, err
	}
	if journal == nil {
		return nil, rules.Configuration(rules.MsgNoSalesJournal)
	}
	if _, err := s.store.Partners().Get(ctx, partnerID); err != nil {
		return nil, notFound(err, "partner", partnerID)
	}

	total := decimal.Zero
	lines := make(models.InvoiceLines, len(items))
	for i, item := range items {
		amount := decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.PriceUnit)).Round(2)
		item.Amount = amount.InexactFloat64()
		lines[i] = item
		total = total.Add(amount)
	}

	now := time.Now().UTC()
	inv := &models.Invoice{
		Base:         models.NewBase(),
		PartnerID:    partnerID,
		PropertyID:   propertyID,
		JournalID:    journal.ID,
		MoveType:     models.MoveTypeOutInvoice,
		Items:        lines,
		CurrencyCode: s.cfg.CurrencyCode,
		Total:        total.InexactFloat64(),
		IssuedAt:     now,
		DueAt:        now.AddDate(0, 0, s.cfg.InvoicePaymentWaitTimeDays),
	}
	inv.InvoiceNumber = fmt.Sprintf("INV/%d/%s", now.Year(), inv.ID)
	if err := s.store.Invoices().Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	s.log.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("property_id", propertyID.String()),
		zap.Float64("total", inv.Total))
	return inv, nil
}

func (s *billingService) GetInvoice(ctx context.Context, id utils.SixID) (*models.Invoice, error) {
	inv, err := s.store.Invoices().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return inv, nil
}

func (s *billingService) ListInvoicesForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Invoice, error) {
	return s.store.Invoices().ListByProperty(ctx, propertyID)
}

func (s *billingService) MarkInvoiceSent(ctx context.Context, id utils.SixID) error {
	if err := s.store.Invoices().Update(ctx, id, store.Fields{"sent": true}); err != nil {
		return notFound(err, "invoice", id)
	}
	return nil
}

// SaleLineItems returns the commission and administrative fee lines billed
// to the buyer of a property sold at sellingPrice.
func SaleLineItems(sellingPrice float64, cfg *config.Config) []models.InvoiceLineItem {
	rate := decimal.NewFromFloat(cfg.CommissionRate)
	commission := decimal.NewFromFloat(sellingPrice).Mul(rate).Round(2)
	return []models.InvoiceLineItem{
		{
			Name:      fmt.Sprintf("%s%% Commission on selling price", rate.Shift(2).String()),
			Quantity:  1,
			PriceUnit: commission.InexactFloat64(),
		},
		{
			Name:      "Administrative fees",
			Quantity:  1,
			PriceUnit: cfg.AdminFee,
		},
	}
}
