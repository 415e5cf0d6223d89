package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akunflix/backend/internal/services"
)

type OrderHandler struct {
	service   *services.OrderService
	qris      *services.QRISService
	validator *services.ValidationHelper
}

func NewOrderHandler(service *services.OrderService, qris *services.QRISService) *OrderHandler {
	return &OrderHandler{
		service:   service,
		qris:      qris,
		validator: services.NewValidationHelper(),
	}
}

// CreateOrder records a purchase intent
// @Summary Create order
// @Description Record a pending order for a subscription package
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateOrderParams true "Order request"
// @Success 201 {object} object{id=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req services.CreateOrderParams
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		log.Printf("[ORDERS] Create failed: %v", err)
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// GetOrder returns one order
// @Summary Get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} models.Order
// @Failure 404 {object} services.ErrorResponse
// @Router /orders/{orderID} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// ListOrders returns orders, newest first
// @Summary List orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by payment status"
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} models.Order
// @Router /orders [get]
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		log.Printf("[ORDERS] List failed: %v", err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// SettleOrder confirms payment and delivers an account
// @Summary Settle order
// @Description Confirm payment, claim the oldest ready account and deliver it
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Param request body object{payment_method=string} true "Settlement request"
// @Success 200 {object} services.SettleResult
// @Failure 402 {object} services.ErrorResponse "Insufficient balance"
// @Failure 409 {object} services.ErrorResponse "Already settled or out of stock"
// @Router /orders/{orderID}/settle [post]
func (h *OrderHandler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req struct {
		PaymentMethod string `json:"payment_method" validate:"required,oneof=qris balance"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	result, err := h.service.SettleOrder(r.Context(), orderID, req.PaymentMethod)
	if err != nil {
		log.Printf("[ORDERS] Settle failed for %s: %v", orderID, err)
		sendServiceError(w, err)
		return
	}

	log.Printf("[ORDERS] Settled %s (%s)", orderID, req.PaymentMethod)
	writeJSON(w, http.StatusOK, result)
}

// CancelOrder cancels a pending order
// @Summary Cancel order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} object{success=bool}
// @Failure 409 {object} services.ErrorResponse "Order already settled"
// @Router /orders/{orderID}/cancel [post]
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if err := h.service.CancelOrder(r.Context(), orderID); err != nil {
		sendServiceError(w, err)
		return
	}
	log.Printf("[ORDERS] Cancelled %s", orderID)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// CreatePaymentSession issues a QRIS payment session for a pending order
// @Summary Create QRIS payment session
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} services.PaymentSession
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse "Session store unavailable"
// @Router /orders/{orderID}/qris [post]
func (h *OrderHandler) CreatePaymentSession(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	session, err := h.qris.CreatePaymentSession(r.Context(), order.ID, order.Price)
	if err != nil {
		log.Printf("[ORDERS] QRIS session failed for %s: %v", orderID, err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// GetPaymentSession returns the cached QRIS session for an order
// @Summary Get QRIS payment session
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderID path string true "Order ID"
// @Success 200 {object} services.PaymentSession
// @Failure 404 {object} services.ErrorResponse "Session expired"
// @Router /orders/{orderID}/qris [get]
func (h *OrderHandler) GetPaymentSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.qris.GetPaymentSession(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
