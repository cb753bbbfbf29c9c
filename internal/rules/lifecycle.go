package rules

import (
	"greendrake/estate/internal/models"
	"greendrake/estate/internal/utils"
)

const (
	MsgCancelledCannotBeSold = "a cancelled property cannot be sold"
	MsgSoldCannotBeCancelled = "a sold property cannot be cancelled"
	MsgAlreadySold           = "the property is already sold"
	MsgAcceptOnSold          = "cannot accept an offer on a sold property"
	MsgAcceptOnCancelled     = "cannot accept an offer on a cancelled property"
	MsgOfferAlreadyAccepted  = "another offer has already been accepted for this property"
	MsgAcceptSingle          = "exactly one offer can be accepted at a time"
	MsgNoSalesJournal        = "No Sales Journal configured for this company."
	MsgPropertyTypeNameTaken = "Property type name must be unique."
	MsgPropertyTagNameTaken  = "Property tag name must be unique."
)

// CanCancel guards the cancel action.
func CanCancel(state models.PropertyState) error {
	if state == models.StateSold {
		return Guard(MsgSoldCannotBeCancelled)
	}
	return nil
}

// CanSell guards the sell action.
func CanSell(state models.PropertyState) error {
	switch state {
	case models.StateCancelled:
		return Guard(MsgCancelledCannotBeSold)
	case models.StateSold:
		return Guard(MsgAlreadySold)
	}
	return nil
}

// CanAccept guards offer acceptance against the parent property state.
func CanAccept(state models.PropertyState) error {
	switch state {
	case models.StateSold:
		return Guard(MsgAcceptOnSold)
	case models.StateCancelled:
		return Guard(MsgAcceptOnCancelled)
	}
	return nil
}

// AdvanceOnOffer returns the state a property moves to when it receives an
// offer, and whether it changes.
func AdvanceOnOffer(state models.PropertyState) (models.PropertyState, bool) {
	switch state {
	case models.StateNew:
		return models.StateOfferReceived, true
	case models.StateOfferReceived:
		// already there; no write needed
		return state, false
	}
	return state, false
}

// Acceptance is the set of writes produced by accepting one offer.
type Acceptance struct {
	RefuseIDs    []utils.SixID
	AcceptID     utils.SixID
	BuyerID      utils.SixID
	SellingPrice float64
	State        models.PropertyState
	// Unchanged is set when target is already the accepted offer; nothing
	// needs writing.
	Unchanged bool
}

// PlanAcceptance computes the writes for accepting target on property p,
// given all offers currently on p. The offer price becomes the selling price
// and must pass the selling price rules. Siblings already refused are left alone.
// Once a property has an accepted offer, accepting a different one is a guard
// violation.
func PlanAcceptance(p *models.Property, target *models.Offer, offers []models.Offer) (*Acceptance, error) {
	if err := CanAccept(p.State); err != nil {
		return nil, err
	}
	if target.Status == models.OfferAccepted && p.State == models.StateOfferAccepted {
		return &Acceptance{
			AcceptID:     target.ID,
			BuyerID:      target.PartnerID,
			SellingPrice: target.Price,
			State:        p.State,
			Unchanged:    true,
		}, nil
	}
	if p.State == models.StateOfferAccepted {
		return nil, Guard(MsgOfferAlreadyAccepted)
	}
	for i := range offers {
		if offers[i].ID != target.ID && offers[i].Status == models.OfferAccepted {
			return nil, Guard(MsgOfferAlreadyAccepted)
		}
	}
	if err := CheckSellingPrice(target.Price, p.ExpectedPrice); err != nil {
		return nil, err
	}
	plan := &Acceptance{
		AcceptID:     target.ID,
		BuyerID:      target.PartnerID,
		SellingPrice: target.Price,
		State:        models.StateOfferAccepted,
	}
	for i := range offers {
		if offers[i].ID == target.ID || offers[i].Status == models.OfferRefused {
			continue
		}
		plan.RefuseIDs = append(plan.RefuseIDs, offers[i].ID)
	}
	return plan, nil
}
