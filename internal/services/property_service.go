package services

import (
	"context"
	"errors"
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

// SaleHook runs inside the sell transaction after the property has been
// marked sold. An error aborts the sale.
type SaleHook interface {
	OnSold(ctx context.Context, p *models.Property) error
}

// SaleCommitHook is optionally implemented by a SaleHook that needs to act
// once the sale has been committed. It cannot fail the sale.
type SaleCommitHook interface {
	OnSoldCommitted(ctx context.Context, p *models.Property)
}

type noopSaleHook struct{}

func (noopSaleHook) OnSold(context.Context, *models.Property) error { return nil }

// PropertyInput is the payload for creating a property. Nil pointers take
// the configured defaults.
type PropertyInput struct {
	Name              string                    `json:"name"`
	Description       string                    `json:"description"`
	Postcode          string                    `json:"postcode"`
	DateAvailability  *utils.Date               `json:"date_availability"`
	ExpectedPrice     float64                   `json:"expected_price"`
	Bedrooms          *int                      `json:"bedrooms"`
	LivingArea        int                       `json:"living_area"`
	Facades           int                       `json:"facades"`
	Garage            bool                      `json:"garage"`
	Garden            bool                      `json:"garden"`
	GardenArea        *int                      `json:"garden_area"`
	GardenOrientation *models.GardenOrientation `json:"garden_orientation"`
	PropertyTypeID    *utils.SixID              `json:"property_type_id"`
	SalesmanID        *utils.SixID              `json:"salesman_id"`
	TagIDs            []utils.SixID             `json:"tag_ids"`
}

// PropertyPatch is a partial update. A zero PropertyTypeID clears the type.
// State, SellingPrice and BuyerID exist only so a request trying to set them
// can be rejected.
type PropertyPatch struct {
	Name              *string                   `json:"name"`
	Description       *string                   `json:"description"`
	Postcode          *string                   `json:"postcode"`
	DateAvailability  *utils.Date               `json:"date_availability"`
	ExpectedPrice     *float64                  `json:"expected_price"`
	Bedrooms          *int                      `json:"bedrooms"`
	LivingArea        *int                      `json:"living_area"`
	Facades           *int                      `json:"facades"`
	Garage            *bool                     `json:"garage"`
	Garden            *bool                     `json:"garden"`
	GardenArea        *int                      `json:"garden_area"`
	GardenOrientation *models.GardenOrientation `json:"garden_orientation"`
	PropertyTypeID    *utils.SixID              `json:"property_type_id"`
	SalesmanID        *utils.SixID              `json:"salesman_id"`
	TagIDs            *[]utils.SixID            `json:"tag_ids"`

	State        *models.PropertyState `json:"state"`
	SellingPrice *float64              `json:"selling_price"`
	BuyerID      *utils.SixID          `json:"buyer_id"`
}

// IPropertyService defines the property lifecycle operations.
type IPropertyService interface {
	Create(ctx context.Context, in PropertyInput) (*models.Property, error)
	Get(ctx context.Context, id utils.SixID) (*models.Property, error)
	Query(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error)
	Update(ctx context.Context, id utils.SixID, patch PropertyPatch) (*models.Property, error)
	SetActive(ctx context.Context, ids []utils.SixID, active bool) Results
	Delete(ctx context.Context, id utils.SixID) error
	Cancel(ctx context.Context, ids []utils.SixID) Results
	Sell(ctx context.Context, ids []utils.SixID) Results
}

type propertyService struct {
	store store.Store
	cfg   *config.Config
	hook  SaleHook
	log   *zap.Logger
}

// NewPropertyService creates a PropertyService. A nil hook makes selling a
// pure state transition.
func NewPropertyService(st store.Store, cfg *config.Config, hook SaleHook, logger *zap.Logger) IPropertyService {
	if hook == nil {
		hook = noopSaleHook{}
	}
	return &propertyService{
		store: st,
		cfg:   cfg,
		hook:  hook,
		log:   logging.OrNop(logger).Named("property"),
	}
}

func (s *propertyService) Create(ctx context.Context, in PropertyInput) (*models.Property, error) {
	now := time.Now().UTC()
	p := &models.Property{
		Name:             in.Name,
		Description:      in.Description,
		Postcode:         in.Postcode,
		ExpectedPrice:    in.ExpectedPrice,
		Bedrooms:         s.cfg.DefaultBedrooms,
		LivingArea:       in.LivingArea,
		Facades:          in.Facades,
		Garage:           in.Garage,
		Garden:           in.Garden,
		Active:           true,
		State:            models.StateNew,
		DateAvailability: rules.DefaultAvailability(now, s.cfg.AvailabilityOffsetMonths),
		PropertyTypeID:   nonZero(in.PropertyTypeID),
		TagIDs:           utils.SixIDList(in.TagIDs).Dedup(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.Bedrooms != nil {
		p.Bedrooms = *in.Bedrooms
	}
	if in.DateAvailability != nil {
		p.DateAvailability = in.DateAvailability.Time
	}
	if p.Garden {
		p.GardenArea, p.GardenOrientation = rules.GardenDefaults(true)
	}
	if in.GardenArea != nil {
		p.GardenArea = *in.GardenArea
	}
	if in.GardenOrientation != nil {
		p.GardenOrientation = *in.GardenOrientation
	}
	if sm := nonZero(in.SalesmanID); sm != nil {
		p.SalesmanID = sm
	} else if actor, ok := ActorFromContext(ctx); ok {
		p.SalesmanID = &actor
	}

	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.Properties().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}
	s.log.Info("property created", zap.String("property_id", p.ID.String()))
	rules.Decorate(p)
	return p, nil
}

func (s *propertyService) Get(ctx context.Context, id utils.SixID) (*models.Property, error) {
	p, err := s.store.Properties().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "property", id)
	}
	offers, err := s.store.Offers().Find(ctx, store.OfferFilter{PropertyIDs: []utils.SixID{id}})
	if err != nil {
		return nil, fmt.Errorf("failed to load offers for property %s: %w", id, err)
	}
	p.Offers = offers
	rules.Decorate(p)
	return p, nil
}

func (s *propertyService) Query(ctx context.Context, filter store.PropertyFilter) ([]models.Property, error) {
	props, err := s.store.Properties().Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(props) == 0 {
		return props, nil
	}
	ids := make([]utils.SixID, len(props))
	for i := range props {
		ids[i] = props[i].ID
	}
	offers, err := s.store.Offers().Find(ctx, store.OfferFilter{PropertyIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load offers: %w", err)
	}
	byProperty := make(map[utils.SixID][]models.Offer, len(props))
	for _, o := range offers {
		byProperty[o.PropertyID] = append(byProperty[o.PropertyID], o)
	}
	for i := range props {
		props[i].Offers = byProperty[props[i].ID]
		rules.Decorate(&props[i])
	}
	return props, nil
}

func (s *propertyService) Update(ctx context.Context, id utils.SixID, patch PropertyPatch) (*models.Property, error) {
	switch {
	case patch.State != nil:
		return nil, rules.Usage("state is changed through the offer and sale actions only")
	case patch.SellingPrice != nil:
		return nil, rules.Usage("selling price is set by accepting an offer")
	case patch.BuyerID != nil:
		return nil, rules.Usage("buyer is set by accepting an offer")
	}

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.store.Properties().Get(ctx, id)
		if err != nil {
			return notFound(err, "property", id)
		}
		fields := applyPatch(p, patch)
		if len(fields) == 0 {
			return nil
		}
		if err := s.validate(ctx, p); err != nil {
			return err
		}
		fields["updated_at"] = time.Now().UTC()
		if err := s.store.Properties().Update(ctx, id, fields); err != nil {
			return notFound(err, "property", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("property updated", zap.String("property_id", id.String()))
	return s.Get(ctx, id)
}

// applyPatch writes patch onto p and returns the changed storage fields.
// Toggling garden applies the garden defaults unless the patch sets them.
func applyPatch(p *models.Property, patch PropertyPatch) store.Fields {
	fields := store.Fields{}
	if patch.Name != nil {
		p.Name = *patch.Name
		fields["name"] = p.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
		fields["description"] = p.Description
	}
	if patch.Postcode != nil {
		p.Postcode = *patch.Postcode
		fields["postcode"] = p.Postcode
	}
	if patch.DateAvailability != nil {
		p.DateAvailability = patch.DateAvailability.Time
		fields["date_availability"] = p.DateAvailability
	}
	if patch.ExpectedPrice != nil {
		p.ExpectedPrice = *patch.ExpectedPrice
		fields["expected_price"] = p.ExpectedPrice
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = *patch.Bedrooms
		fields["bedrooms"] = p.Bedrooms
	}
	if patch.LivingArea != nil {
		p.LivingArea = *patch.LivingArea
		fields["living_area"] = p.LivingArea
	}
	if patch.Facades != nil {
		p.Facades = *patch.Facades
		fields["facades"] = p.Facades
	}
	if patch.Garage != nil {
		p.Garage = *patch.Garage
		fields["garage"] = p.Garage
	}
	if patch.Garden != nil && *patch.Garden != p.Garden {
		p.Garden = *patch.Garden
		p.GardenArea, p.GardenOrientation = rules.GardenDefaults(p.Garden)
		fields["garden"] = p.Garden
		fields["garden_area"] = p.GardenArea
		fields["garden_orientation"] = p.GardenOrientation
	}
	if patch.GardenArea != nil {
		p.GardenArea = *patch.GardenArea
		fields["garden_area"] = p.GardenArea
	}
	if patch.GardenOrientation != nil {
		p.GardenOrientation = *patch.GardenOrientation
		fields["garden_orientation"] = p.GardenOrientation
	}
	if patch.PropertyTypeID != nil {
		p.PropertyTypeID = nonZero(patch.PropertyTypeID)
		fields["property_type_id"] = p.PropertyTypeID
	}
	if patch.SalesmanID != nil {
		p.SalesmanID = nonZero(patch.SalesmanID)
		fields["salesman_id"] = p.SalesmanID
	}
	if patch.TagIDs != nil {
		p.TagIDs = utils.SixIDList(*patch.TagIDs).Dedup()
		fields["tag_ids"] = p.TagIDs
	}
	return fields
}

// validate runs the field rules and checks that references resolve.
func (s *propertyService) validate(ctx context.Context, p *models.Property) error {
	if err := rules.CheckPropertyDetails(p.Name, p.LivingArea, p.GardenArea, p.GardenOrientation); err != nil {
		return err
	}
	if err := rules.CheckPropertyPrices(p.ExpectedPrice, p.SellingPrice); err != nil {
		return err
	}
	if p.PropertyTypeID != nil {
		if _, err := s.store.PropertyTypes().Get(ctx, *p.PropertyTypeID); err != nil {
			return missingRef(err, "property_type_id", "property type", *p.PropertyTypeID)
		}
	}
	if p.SalesmanID != nil {
		if _, err := s.store.Users().Get(ctx, *p.SalesmanID); err != nil {
			return missingRef(err, "salesman_id", "salesman", *p.SalesmanID)
		}
	}
	for _, tagID := range p.TagIDs {
		if _, err := s.store.PropertyTags().Get(ctx, tagID); err != nil {
			return missingRef(err, "tag_ids", "tag", tagID)
		}
	}
	return nil
}

func (s *propertyService) SetActive(ctx context.Context, ids []utils.SixID, active bool) Results {
	out := make(Results, len(ids))
	for i, id := range ids {
		err := s.store.Properties().Update(ctx, id, store.Fields{"active": active, "updated_at": time.Now().UTC()})
		if err != nil {
			err = notFound(err, "property", id)
		}
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (s *propertyService) Delete(ctx context.Context, id utils.SixID) error {
	if err := s.store.Properties().Delete(ctx, id); err != nil {
		return notFound(err, "property", id)
	}
	s.log.Info("property deleted", zap.String("property_id", id.String()))
	return nil
}

func (s *propertyService) Cancel(ctx context.Context, ids []utils.SixID) Results {
	out := make(Results, len(ids))
	for i, id := range ids {
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			p, err := s.lock(ctx, id)
			if err != nil {
				return err
			}
			if err := rules.CanCancel(p.State); err != nil {
				return err
			}
			return s.setState(ctx, p, models.StateCancelled)
		})
		s.logTransition(id, models.StateCancelled, err)
		out[i] = Result{ID: id, Err: err}
	}
	return out
}

func (s *propertyService) Sell(ctx context.Context, ids []utils.SixID) Results {
	out := make(Results, len(ids))
	for i, id := range ids {
		var sold *models.Property
		err := s.store.RunInTx(ctx, func(ctx context.Context) error {
			p, err := s.lock(ctx, id)
			if err != nil {
				return err
			}
			if err := rules.CanSell(p.State); err != nil {
				return err
			}
			if err := s.setState(ctx, p, models.StateSold); err != nil {
				return err
			}
			if err := s.hook.OnSold(ctx, p); err != nil {
				return err
			}
			sold = p
			return nil
		})
		s.logTransition(id, models.StateSold, err)
		out[i] = Result{ID: id, Err: err}
		if err == nil {
			if ch, ok := s.hook.(SaleCommitHook); ok {
				ch.OnSoldCommitted(ctx, sold)
			}
		}
	}
	return out
}

// lock claims the property with a write before reading it, so concurrent
// transitions on the same record serialize on the storage layer.
func (s *propertyService) lock(ctx context.Context, id utils.SixID) (*models.Property, error) {
	if err := s.store.Properties().Update(ctx, id, store.Fields{"updated_at": time.Now().UTC()}); err != nil {
		return nil, notFound(err, "property", id)
	}
	p, err := s.store.Properties().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "property", id)
	}
	return p, nil
}

func (s *propertyService) setState(ctx context.Context, p *models.Property, state models.PropertyState) error {
	if err := s.store.Properties().Update(ctx, p.ID, store.Fields{"state": state}); err != nil {
		return fmt.Errorf("failed to set state of property %s: %w", p.ID, err)
	}
	p.State = state
	return nil
}

func (s *propertyService) logTransition(id utils.SixID, to models.PropertyState, err error) {
	fields := []zap.Field{zap.String("property_id", id.String()), zap.String("state", string(to))}
	switch rules.KindOf(err) {
	case "":
		if err != nil {
			s.log.Error("property transition failed", append(fields, zap.Error(err))...)
			return
		}
		s.log.Info("property transitioned", fields...)
	case rules.KindGuard, rules.KindNotFound:
		s.log.Warn("property transition rejected", append(fields, zap.Error(err))...)
	default:
		s.log.Error("property transition failed", append(fields, zap.Error(err))...)
	}
}

func nonZero(id *utils.SixID) *utils.SixID {
	if id == nil || id.IsZero() {
		return nil
	}
	v := *id
	return &v
}

// missingRef reports a dangling reference as a validation failure on field.
func missingRef(err error, field, what string, id utils.SixID) error {
	if errors.Is(err, store.ErrNotFound) {
		return rules.Validation(field, fmt.Sprintf("%s %s does not exist", what, id))
	}
	return fmt.Errorf("failed to resolve %s %s: %w", what, id, err)
}
