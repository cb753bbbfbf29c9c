package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/estate/internal/services"
)

// RestCatalogHandler serves property types and tags.
type RestCatalogHandler struct {
	catalogService services.ICatalogService
}

func NewRestCatalogHandler(catalogService services.ICatalogService) *RestCatalogHandler {
	return &RestCatalogHandler{catalogService: catalogService}
}

type nameRequest struct {
	Name string `json:"name"`
}

// ListTypes handles GET /v1/property-type
func (h *RestCatalogHandler) ListTypes(c *gin.Context) {
	types, err := h.catalogService.ListTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": types})
}

// GetType handles GET /v1/property-type/:id
func (h *RestCatalogHandler) GetType(c *gin.Context) {
	id, ok := pathID(c, "property type")
	if !ok {
		return
	}
	pt, err := h.catalogService.GetType(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pt)
}

// CreateType handles POST /v1/property-type
func (h *RestCatalogHandler) CreateType(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	pt, err := h.catalogService.CreateType(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pt)
}

// ListTags handles GET /v1/property-tag
func (h *RestCatalogHandler) ListTags(c *gin.Context) {
	tags, err := h.catalogService.ListTags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

// GetTag handles GET /v1/property-tag/:id
func (h *RestCatalogHandler) GetTag(c *gin.Context) {
	id, ok := pathID(c, "property tag")
	if !ok {
		return
	}
	tag, err := h.catalogService.GetTag(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tag)
}

// CreateTag handles POST /v1/property-tag
func (h *RestCatalogHandler) CreateTag(c *gin.Context) {
	var req nameRequest
	if !bindJSON(c, &req) {
		return
	}
	tag, err := h.catalogService.CreateTag(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}
