package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akunflix/backend/internal/services"
)

type VoucherHandler struct {
	service   *services.VoucherService
	validator *services.ValidationHelper
}

func NewVoucherHandler(service *services.VoucherService) *VoucherHandler {
	return &VoucherHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// RedeemVoucher credits a voucher's amount to a user
// @Summary Redeem voucher
// @Description Redeem a voucher code, crediting its amount to the user's balance
// @Tags vouchers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{user_id=string,code=string} true "Redemption request"
// @Success 200 {object} models.Redemption
// @Failure 404 {object} services.ErrorResponse "Unknown code"
// @Failure 409 {object} services.ErrorResponse "Already claimed or quota exhausted"
// @Router /vouchers/redeem [post]
func (h *VoucherHandler) RedeemVoucher(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id" validate:"required"`
		Code   string `json:"code" validate:"required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	redemption, err := h.service.RedeemVoucher(r.Context(), req.UserID, req.Code)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("[VOUCHERS] User %s redeemed a voucher for %d", req.UserID, redemption.Amount)
	writeJSON(w, http.StatusOK, redemption)
}

// CreateVoucher registers a new voucher code
// @Summary Create voucher
// @Tags vouchers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateVoucherParams true "Voucher definition"
// @Success 201 {object} models.Voucher
// @Failure 409 {object} services.ErrorResponse "Code already exists"
// @Router /vouchers [post]
func (h *VoucherHandler) CreateVoucher(w http.ResponseWriter, r *http.Request) {
	var req services.CreateVoucherParams
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	voucher, err := h.service.CreateVoucher(r.Context(), req)
	if err != nil {
		log.Printf("[VOUCHERS] Create failed: %v", err)
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
		return
	}
	writeJSON(w, http.StatusCreated, voucher)
}

// ListVouchers returns all vouchers
// @Summary List vouchers
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Voucher
// @Router /vouchers [get]
func (h *VoucherHandler) ListVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.service.ListVouchers(r.Context())
	if err != nil {
		log.Printf("[VOUCHERS] List failed: %v", err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vouchers)
}

// DeleteVoucher removes a voucher
// @Summary Delete voucher
// @Tags vouchers
// @Produce json
// @Security BearerAuth
// @Param voucherID path string true "Voucher ID"
// @Success 200 {object} object{success=bool}
// @Router /vouchers/{voucherID} [delete]
func (h *VoucherHandler) DeleteVoucher(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteVoucher(r.Context(), chi.URLParam(r, "voucherID")); err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
