package services

import (
	"context"

	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/utils"
)

// InvoiceDeliveryEnqueuer schedules the email delivery of an invoice.
type InvoiceDeliveryEnqueuer interface {
	EnqueueInvoiceDelivery(ctx context.Context, invoiceID utils.SixID) error
}

// saleInvoiceHook bills the buyer when a property is sold.
type saleInvoiceHook struct {
	billing  IBillingService
	cfg      *config.Config
	enqueuer InvoiceDeliveryEnqueuer
	log      *zap.Logger
}

// NewSaleInvoiceHook returns the SaleHook that invoices the buyer. enqueuer
// may be nil, in which case invoices are left unsent.
func NewSaleInvoiceHook(billing IBillingService, cfg *config.Config, enqueuer InvoiceDeliveryEnqueuer, logger *zap.Logger) SaleHook {
	return &saleInvoiceHook{
		billing:  billing,
		cfg:      cfg,
		enqueuer: enqueuer,
		log:      logging.OrNop(logger).Named("sale_invoice"),
	}
}

func (h *saleInvoiceHook) OnSold(ctx context.Context, p *models.Property) error {
	if p.BuyerID == nil || p.BuyerID.IsZero() {
		h.log.Info("sold without buyer, no invoice", zap.String("property_id", p.ID.String()))
		return nil
	}
	_, err := h.billing.CreateInvoice(ctx, *p.BuyerID, p.ID, SaleLineItems(p.SellingPrice, h.cfg))
	if err != nil {
		h.log.Error("failed to invoice sale", zap.String("property_id", p.ID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (h *saleInvoiceHook) OnSoldCommitted(ctx context.Context, p *models.Property) {
	if h.enqueuer == nil {
		return
	}
	invs, err := h.billing.ListInvoicesForProperty(ctx, p.ID)
	if err != nil {
		h.log.Error("failed to list sale invoices", zap.String("property_id", p.ID.String()), zap.Error(err))
		return
	}
	for _, inv := range invs {
		if inv.Sent {
			continue
		}
		if err := h.enqueuer.EnqueueInvoiceDelivery(ctx, inv.ID); err != nil {
			h.log.Error("failed to enqueue invoice delivery", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		}
	}
}
