package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/services"
	"greendrake/estate/internal/store"
	"greendrake/estate/internal/utils"
)

// RestPropertyHandler handles REST requests for properties and their offers.
type RestPropertyHandler struct {
	propertyService services.IPropertyService
	offerService    services.IOfferService
	billingService  services.IBillingService
}

// NewRestPropertyHandler creates a new RestPropertyHandler.
func NewRestPropertyHandler(propertyService services.IPropertyService, offerService services.IOfferService, billingService services.IBillingService) *RestPropertyHandler {
	return &RestPropertyHandler{
		propertyService: propertyService,
		offerService:    offerService,
		billingService:  billingService,
	}
}

// SearchProperties handles GET /v1/property
//
// Query parameters: state (comma separated), salesman_id, and visibility
// (active, archived or all; active by default).
func (h *RestPropertyHandler) SearchProperties(c *gin.Context) {
	var filter store.PropertyFilter
	for _, s := range splitQuery(c, "state") {
		state := models.PropertyState(s)
		if !state.Valid() {
			c.JSON(http.StatusBadRequest, ErrorBody{Error: "Unknown state: " + s})
			return
		}
		filter.States = append(filter.States, state)
	}
	switch v := store.Visibility(c.DefaultQuery("visibility", string(store.VisibilityActive))); v {
	case store.VisibilityActive, store.VisibilityArchived, store.VisibilityAll:
		filter.Visibility = v
	default:
		c.JSON(http.StatusBadRequest, ErrorBody{Error: "Unknown visibility: " + string(v)})
		return
	}
	if raw := c.Query("salesman_id"); raw != "" {
		id, err := utils.ParseSixID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorBody{Error: "Invalid salesman ID format"})
			return
		}
		filter.SalesmanID = &id
	}

	properties, err := h.propertyService.Query(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": properties})
}

// GetPropertyByID handles GET /v1/property/:id
func (h *RestPropertyHandler) GetPropertyByID(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}
	property, err := h.propertyService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// CreateProperty handles POST /v1/property
func (h *RestPropertyHandler) CreateProperty(c *gin.Context) {
	var in services.PropertyInput
	if !bindJSON(c, &in) {
		return
	}
	property, err := h.propertyService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, property)
}

// UpdateProperty handles PATCH /v1/property/:id
func (h *RestPropertyHandler) UpdateProperty(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}
	var patch services.PropertyPatch
	if !bindJSON(c, &patch) {
		return
	}
	property, err := h.propertyService.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, property)
}

// DeleteProperty handles DELETE /v1/property/:id
func (h *RestPropertyHandler) DeleteProperty(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}
	if err := h.propertyService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListPropertyOffers handles GET /v1/property/:id/offer
func (h *RestPropertyHandler) ListPropertyOffers(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}
	offers, err := h.offerService.ListForProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": offers})
}

// ListPropertyInvoices handles GET /v1/property/:id/invoice
func (h *RestPropertyHandler) ListPropertyInvoices(c *gin.Context) {
	id, ok := pathID(c, "property")
	if !ok {
		return
	}
	invoices, err := h.billingService.ListInvoicesForProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

// GetOfferByID handles GET /v1/offer/:id
func (h *RestPropertyHandler) GetOfferByID(c *gin.Context) {
	id, ok := pathID(c, "offer")
	if !ok {
		return
	}
	offer, err := h.offerService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// UpdateOffer handles PATCH /v1/offer/:id
func (h *RestPropertyHandler) UpdateOffer(c *gin.Context) {
	id, ok := pathID(c, "offer")
	if !ok {
		return
	}
	var patch services.OfferPatch
	if !bindJSON(c, &patch) {
		return
	}
	offer, err := h.offerService.Update(c.Request.Context(), id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// DeleteOffer handles DELETE /v1/offer/:id
func (h *RestPropertyHandler) DeleteOffer(c *gin.Context) {
	id, ok := pathID(c, "offer")
	if !ok {
		return
	}
	if err := h.offerService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
