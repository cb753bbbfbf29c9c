package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"greendrake/estate/internal/config"
	"greendrake/estate/internal/logging"
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/rules"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// OfferInput is one offer to create. DateDeadline, when set, wins over
// Validity; with neither the configured default validity applies.
type OfferInput struct {
	PropertyID   utils.SixID `json:"property_id"`
	PartnerID    utils.SixID `json:"partner_id"`
	Price        float64     `json:"price"`
	Validity     *int        `json:"validity"`
	DateDeadline *utils.Date `json:"date_deadline"`
}

// OfferPatch edits an existing offer. Status changes go through Accept and Refuse.
type OfferPatch struct {
	Price        *float64    `json:"price"`
	Validity     *int        `json:"validity"`
	DateDeadline *utils.Date `json:"date_deadline"`
}

// IOfferService defines the offer protocol.
type IOfferService interface {
	// Create validates and stores every offer or none of them.
	Create(ctx context.Context, inputs []OfferInput) ([]models.Offer, error)
	Get(ctx context.Context, id utils.SixID) (*models.Offer, error)
	ListForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Offer, error)
	// Accept takes exactly one id.
	Accept(ctx context.Context, ids []utils.SixID) (*models.Offer, error)
	Refuse(ctx context.Context, ids []utils.SixID) Results
	Update(ctx context.Context, id utils.SixID, patch OfferPatch) (*models.Offer, error)
	Delete(ctx context.Context, id utils.SixID) error
}

type offerService struct {
	store store.Store
	cfg   *config.Config
	log   *zap.Logger
}

// NewOfferService creates a new OfferService.
func NewOfferService(st store.Store, cfg *config.Config, logger *zap.Logger) IOfferService {
	return &offerService{
		store: st,
		cfg:   cfg,
		log:   logging.OrNop(logger).Named("offer"),
	}
}

func (s *offerService) Create(ctx context.Context, inputs []OfferInput) ([]models.Offer, error) {
	if len(inputs) == 0 {
		return nil, rules.Usage("at least one offer is required")
	}

	created := make([]models.Offer, 0, len(inputs))
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		created = created[:0]
		properties := map[utils.SixID]*models.Property{}
		prices := map[utils.SixID][]float64{}
		var order []utils.SixID

		for _, in := range inputs {
			if in.PropertyID.IsZero() {
				return rules.Validation("property_id", rules.MsgPropertyRequired)
			}
			if in.PartnerID.IsZero() {
				return rules.Validation("partner_id", rules.MsgPartnerRequired)
			}
			if _, seen := properties[in.PropertyID]; !seen {
				p, err := s.lockProperty(ctx, in.PropertyID)
				if err != nil {
					return err
				}
				existing, err := s.store.Offers().Find(ctx, store.OfferFilter{PropertyIDs: []utils.SixID{p.ID}})
				if err != nil {
					return fmt.Errorf("failed to load offers for property %s: %w", p.ID, err)
				}
				properties[p.ID] = p
				prices[p.ID] = rules.OfferPrices(existing)
				order = append(order, p.ID)
			}
			if err := rules.CheckNewOffer(in.Price, prices[in.PropertyID]); err != nil {
				return err
			}
			if _, err := s.store.Partners().Get(ctx, in.PartnerID); err != nil {
				return missingRef(err, "partner_id", "partner", in.PartnerID)
			}

			now := time.Now().UTC()
			validity, err := s.validity(now, in.Validity, in.DateDeadline)
			if err != nil {
				return err
			}
			o := models.Offer{
				Price:      in.Price,
				Status:     models.OfferPending,
				PartnerID:  in.PartnerID,
				PropertyID: in.PropertyID,
				Validity:   validity,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := s.store.Offers().Create(ctx, &o); err != nil {
				return fmt.Errorf("failed to create offer: %w", err)
			}
			prices[in.PropertyID] = append(prices[in.PropertyID], o.Price)
			created = append(created, o)
		}

		for _, id := range order {
			next, changed := rules.AdvanceOnOffer(properties[id].State)
			if !changed {
				continue
			}
			if err := s.store.Properties().Update(ctx, id, store.Fields{"state": next}); err != nil {
				return fmt.Errorf("failed to advance property %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("offer batch rejected", zap.Int("count", len(inputs)), zap.Error(err))
		return nil, err
	}
	for i := range created {
		rules.DecorateOffer(&created[i])
		s.log.Info("offer created",
			zap.String("offer_id", created[i].ID.String()),
			zap.String("property_id", created[i].PropertyID.String()))
	}
	return created, nil
}

// validity resolves the stored validity from the optional inputs.
func (s *offerService) validity(created time.Time, validity *int, deadline *utils.Date) (int, error) {
	switch {
	case deadline != nil:
		return rules.ValidityFromDeadline(created, deadline.Time), nil
	case validity != nil:
		if *validity < 0 {
			return 0, rules.Validation("validity", rules.MsgValidityNegative)
		}
		return *validity, nil
	}
	return s.cfg.DefaultOfferValidityDays, nil
}

func (s *offerService) Get(ctx context.Context, id utils.SixID) (*models.Offer, error) {
	o, err := s.store.Offers().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "offer", id)
	}
	rules.DecorateOffer(o)
	return o, nil
}

func (s *offerService) ListForProperty(ctx context.Context, propertyID utils.SixID) ([]models.Offer, error) {
	if _, err := s.store.Properties().Get(ctx, propertyID); err != nil {
		return nil, notFound(err, "property", propertyID)
	}
	offers, err := s.store.Offers().Find(ctx, store.OfferFilter{PropertyIDs: []utils.SixID{propertyID}})
	if err != nil {
		return nil, err
	}
	for i := range offers {
		rules.DecorateOffer(&offers[i])
	}
	return offers, nil
}

func (s *offerService) Accept(ctx context.Context, ids []utils.SixID) (*models.Offer, error) {
	if len(ids) != 1 {
		return nil, rules.Usage(rules.MsgAcceptSingle)
	}
	id := ids[0]

	var accepted *models.Offer
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.store.Offers().Get(ctx, id)
		if err != nil {
			return notFound(err, "offer", id)
		}
		p, err := s.lockProperty(ctx, target.PropertyID)
		if err != nil {
			return err
		}
		siblings, err := s.store.Offers().Find(ctx, store.OfferFilter{PropertyIDs: []utils.SixID{p.ID}})
		if err != nil {
			return fmt.Errorf("failed to load offers for property %s: %w", p.ID, err)
		}
		// re-read under the property claim
		for i := range siblings {
			if siblings[i].ID == target.ID {
				target = &siblings[i]
			}
		}
		plan, err := rules.PlanAcceptance(p, target, siblings)
		if err != nil {
			return err
		}
		if plan.Unchanged {
			accepted = target
			return nil
		}

		now := time.Now().UTC()
		if err := s.store.Offers().UpdateMany(ctx, plan.RefuseIDs, store.Fields{"status": models.OfferRefused, "updated_at": now}); err != nil {
			return err
		}
		if err := s.store.Offers().Update(ctx, plan.AcceptID, store.Fields{"status": models.OfferAccepted, "updated_at": now}); err != nil {
			return fmt.Errorf("failed to accept offer %s: %w", plan.AcceptID, err)
		}
		buyer := plan.BuyerID
		err = s.store.Properties().Update(ctx, p.ID, store.Fields{
			"buyer_id":      &buyer,
			"selling_price": plan.SellingPrice,
			"state":         plan.State,
		})
		if err != nil {
			return fmt.Errorf("failed to update property %s: %w", p.ID, err)
		}

		target.Status = models.OfferAccepted
		target.UpdatedAt = now
		accepted = target
		return nil
	})
	if err != nil {
		s.log.Warn("offer accept rejected", zap.String("offer_id", id.String()), zap.Error(err))
		return nil, err
	}
	rules.DecorateOffer(accepted)
	s.log.Info("offer accepted",
		zap.String("offer_id", accepted.ID.String()),
		zap.String("property_id", accepted.PropertyID.String()))
	return accepted, nil
}

// Refuse is permissive: it does not check the offer's current status or the
// property state.
func (s *offerService) Refuse(ctx context.Context, ids []utils.SixID) Results {
	out := make(Results, len(ids))
	for i, id := range ids {
		err := s.store.Offers().Update(ctx, id, store.Fields{"status": models.OfferRefused, "updated_at": time.Now().UTC()})
		if err != nil {
			err = notFound(err, "offer", id)
		} else {
			s.log.Info("offer refused", zap.String("offer_id", id.String()))
		}
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (s *offerService) Update(ctx context.Context, id utils.SixID, patch OfferPatch) (*models.Offer, error) {
	var updated *models.Offer
	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		o, err := s.store.Offers().Get(ctx, id)
		if err != nil {
			return notFound(err, "offer", id)
		}
		fields := store.Fields{}
		if patch.Price != nil {
			if err := rules.CheckOfferPrice(*patch.Price); err != nil {
				return err
			}
			o.Price = *patch.Price
			fields["price"] = o.Price
		}
		if patch.Validity != nil || patch.DateDeadline != nil {
			validity, err := s.validity(o.CreatedAt, patch.Validity, patch.DateDeadline)
			if err != nil {
				return err
			}
			o.Validity = validity
			fields["validity"] = o.Validity
		}
		if len(fields) > 0 {
			o.UpdatedAt = time.Now().UTC()
			fields["updated_at"] = o.UpdatedAt
			if err := s.store.Offers().Update(ctx, id, fields); err != nil {
				return notFound(err, "offer", id)
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	rules.DecorateOffer(updated)
	return updated, nil
}

func (s *offerService) Delete(ctx context.Context, id utils.SixID) error {
	if err := s.store.Offers().Delete(ctx, id); err != nil {
		return notFound(err, "offer", id)
	}
	s.log.Info("offer deleted", zap.String("offer_id", id.String()))
	return nil
}

// lockProperty claims the property row before reading it; see propertyService.lock.
func (s *offerService) lockProperty(ctx context.Context, id utils.SixID) (*models.Property, error) {
	if err := s.store.Properties().Update(ctx, id, store.Fields{"updated_at": time.Now().UTC()}); err != nil {
		return nil, missingRef(err, "property_id", "property", id)
	}
	p, err := s.store.Properties().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "property", id)
	}
	return p, nil
}
