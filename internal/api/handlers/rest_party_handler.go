package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/services"
)

// RestPartyHandler handles REST requests for partners and users.
type RestPartyHandler struct {
	partyService services.IPartyService
}

// NewRestPartyHandler creates a new RestPartyHandler.
func NewRestPartyHandler(partyService services.IPartyService) *RestPartyHandler {
	return &RestPartyHandler{partyService: partyService}
}

// ListPartners handles GET /v1/partner
func (h *RestPartyHandler) ListPartners(c *gin.Context) {
	partners, err := h.partyService.ListPartners(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": partners})
}

// GetPartnerByID handles GET /v1/partner/:id
func (h *RestPartyHandler) GetPartnerByID(c *gin.Context) {
	id, ok := pathID(c, "partner")
	if !ok {
		return
	}
	partner, err := h.partyService.GetPartner(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, partner)
}

// CreatePartner handles POST /v1/partner
func (h *RestPartyHandler) CreatePartner(c *gin.Context) {
	var in services.PartnerInput
	if !bindJSON(c, &in) {
		return
	}
	partner, err := h.partyService.CreatePartner(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, partner)
}

// ListUsers handles GET /v1/user
func (h *RestPartyHandler) ListUsers(c *gin.Context) {
	users, err := h.partyService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

// GetUserByID handles GET /v1/user/:id. The user comes with the properties
// still available to them as salesman.
func (h *RestPartyHandler) GetUserByID(c *gin.Context) {
	id, ok := pathID(c, "user")
	if !ok {
		return
	}
	user, err := h.partyService.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// CreateUser handles POST /v1/admin/user
func (h *RestPartyHandler) CreateUser(c *gin.Context) {
	var in services.UserInput
	if !bindJSON(c, &in) {
		return
	}
	user, err := h.partyService.CreateUser(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}
