package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akunflix/backend/internal/models"
	"github.com/akunflix/backend/internal/services"
)

type InventoryHandler struct {
	service   *services.InventoryService
	validator *services.ValidationHelper
}

func NewInventoryHandler(service *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// AddAccounts bulk-loads credentials into inventory
// @Summary Add accounts
// @Description Insert one or more ready credentials into inventory
// @Tags inventory
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{accounts=[]services.NewAccount} true "Accounts to add"
// @Success 201 {object} object{ids=[]string}
// @Failure 400 {object} services.ErrorResponse
// @Router /inventory [post]
func (h *InventoryHandler) AddAccounts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accounts []services.NewAccount `json:"accounts" validate:"required,min=1,max=500,dive"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ids, err := h.service.AddAccounts(r.Context(), req.Accounts)
	if err != nil {
		log.Printf("[INVENTORY] Bulk add failed: %v", err)
		sendServiceError(w, err)
		return
	}

	log.Printf("[INVENTORY] Added %d accounts", len(ids))
	writeJSON(w, http.StatusCreated, map[string]any{"ids": ids})
}

// ListAccounts returns inventory records
// @Summary List inventory
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (ready, processing, sold)"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} models.InventoryRecord
// @Router /inventory [get]
func (h *InventoryHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.ListAccounts(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		log.Printf("[INVENTORY] List failed: %v", err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// DeleteAccount removes an unsold record
// @Summary Delete account
// @Tags inventory
// @Produce json
// @Security BearerAuth
// @Param recordID path string true "Record ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /inventory/{recordID} [delete]
func (h *InventoryHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")
	if err := h.service.DeleteAccount(r.Context(), recordID); err != nil {
		sendServiceError(w, err)
		return
	}
	log.Printf("[INVENTORY] Deleted %s", recordID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetStock returns ready counts per package
// @Summary Stock counts
// @Description Ready-account count for one package, or all packages
// @Tags inventory
// @Produce json
// @Param package query string false "Package type"
// @Success 200 {object} map[string]int
// @Router /inventory/stock [get]
func (h *InventoryHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	pkg := r.URL.Query().Get("package")
	if pkg != "" {
		count, err := h.service.StockCount(r.Context(), pkg)
		if err != nil {
			sendServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{pkg: count})
		return
	}

	counts := make(map[string]int)
	for _, p := range []string{
		models.PackagePremium,
		models.PackageStandard,
		models.PackageBasic,
		models.PackageSharing,
	} {
		count, err := h.service.StockCount(r.Context(), p)
		if err != nil {
			sendServiceError(w, err)
			return
		}
		counts[p] = count
	}
	writeJSON(w, http.StatusOK, counts)
}
