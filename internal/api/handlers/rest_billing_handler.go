package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/models"
	"greendrake/estate/internal/services"
)

// RestBillingHandler serves journals and invoices.
type RestBillingHandler struct {
	billingService services.IBillingService
}

func NewRestBillingHandler(billingService services.IBillingService) *RestBillingHandler {
	return &RestBillingHandler{billingService: billingService}
}

type journalRequest struct {
	Name string             `json:"name"`
	Code string             `json:"code"`
	Type models.JournalType `json:"type"`
}

// ListJournals handles GET /v1/journal
func (h *RestBillingHandler) ListJournals(c *gin.Context) {
	journals, err := h.billingService.ListJournals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": journals})
}

// CreateJournal handles POST /v1/admin/journal
func (h *RestBillingHandler) CreateJournal(c *gin.Context) {
	var req journalRequest
	if !bindJSON(c, &req) {
		return
	}
	j, err := h.billingService.CreateJournal(c.Request.Context(), req.Name, req.Code, req.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, j)
}

// GetInvoiceByID handles GET /v1/invoice/:id
func (h *RestBillingHandler) GetInvoiceByID(c *gin.Context) {
	id, ok := pathID(c, "invoice")
	if !ok {
		return
	}
	inv, err := h.billingService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
