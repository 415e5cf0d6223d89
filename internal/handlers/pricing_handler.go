package handlers

import (
	"log"
	"net/http"

	"github.com/akunflix/backend/internal/models"
	"github.com/akunflix/backend/internal/services"
)

type PricingHandler struct {
	service   *services.PricingService
	validator *services.ValidationHelper
}

func NewPricingHandler(service *services.PricingService) *PricingHandler {
	return &PricingHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GetPrices returns the package price list for a role
// @Summary Price list
// @Description Package prices as seen by the given role (default customer)
// @Tags pricing
// @Produce json
// @Param role query string false "Role label"
// @Success 200 {object} map[string]int64
// @Router /prices [get]
func (h *PricingHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	role := models.ParseRole(r.URL.Query().Get("role"))
	writeJSON(w, http.StatusOK, h.service.Prices(role))
}

// UpdatePrice sets or clears the explicit price for a tier and package
// @Summary Update price
// @Description Set an explicit price; price <= 0 clears it so defaults apply
// @Tags pricing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{tier=string,package_type=string,price=int64} true "Price update"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Router /prices [put]
func (h *PricingHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tier        string `json:"tier" validate:"required,oneof=customer reseller_silver reseller_gold"`
		PackageType string `json:"package_type" validate:"required,package"`
		Price       int64  `json:"price"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.service.UpdatePrices(r.Context(), models.Role(req.Tier), req.PackageType, req.Price); err != nil {
		log.Printf("[PRICING] Update failed: %v", err)
		sendServiceError(w, err)
		return
	}

	log.Printf("[PRICING] %s/%s set to %d", req.Tier, req.PackageType, req.Price)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
