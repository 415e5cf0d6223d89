package handlers

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/akunflix/backend/internal/models"
	"github.com/akunflix/backend/internal/services"
)

type UserHandler struct {
	service   *services.UserService
	balance   *services.BalanceService
	validator *services.ValidationHelper
}

func NewUserHandler(service *services.UserService, balance *services.BalanceService) *UserHandler {
	return &UserHandler{
		service:   service,
		balance:   balance,
		validator: services.NewValidationHelper(),
	}
}

// UpsertUser registers a user sighting from a front-end adapter
// @Summary Upsert user
// @Description Create the user on first contact, refresh profile fields after
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{id=string,first_name=string,username=string} true "User sighting"
// @Success 200 {object} models.User
// @Failure 400 {object} services.ErrorResponse
// @Router /users [post]
func (h *UserHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id" validate:"required"`
		FirstName string `json:"first_name"`
		Username  string `json:"username"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	user, err := h.service.GetOrCreateUser(r.Context(), req.ID, models.UserProfile{
		FirstName: req.FirstName,
		Username:  req.Username,
	})
	if err != nil {
		log.Printf("[USERS] Upsert failed for %s: %v", req.ID, err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetUser returns one user
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userID} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsers returns users for an audience
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param target query string false "Audience filter (all, reseller, customer)"
// @Success 200 {array} models.User
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		target = models.TargetAll
	}
	users, err := h.service.ListUsers(r.Context(), target)
	if err != nil {
		log.Printf("[USERS] List failed: %v", err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// UpdateRole changes a user's role
// @Summary Update user role
// @Description Set a user's role; free-form labels map onto the pricing tiers
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param request body object{role=string} true "New role"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userID}/role [put]
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Role string `json:"role" validate:"required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.service.UpdateUserRole(r.Context(), userID, req.Role); err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("[USERS] Role of %s set to %s", userID, req.Role)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// SetReferrer records a referral link
// @Summary Set referrer
// @Description Record who referred this user; write-once, self-referral rejected
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param request body object{referrer_id=string} true "Referrer"
// @Success 200 {object} object{linked=bool}
// @Router /users/{userID}/referrer [post]
func (h *UserHandler) SetReferrer(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		ReferrerID string `json:"referrer_id" validate:"required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	linked, err := h.service.SetReferrer(r.Context(), userID, req.ReferrerID)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"linked": linked})
}

// AdjustBalance credits or debits a user's balance
// @Summary Adjust balance
// @Description Admin credit (positive amount) or debit (negative amount)
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID"
// @Param request body object{amount=int64} true "Adjustment"
// @Success 200 {object} object{new_balance=int64}
// @Failure 402 {object} services.ErrorResponse "Insufficient balance"
// @Failure 404 {object} services.ErrorResponse
// @Router /users/{userID}/balance [post]
func (h *UserHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req struct {
		Amount int64 `json:"amount" validate:"required"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	var newBalance int64
	var err error
	if req.Amount >= 0 {
		newBalance, err = h.balance.CreditBalance(r.Context(), userID, req.Amount)
	} else {
		newBalance, err = h.balance.DeductBalance(r.Context(), userID, -req.Amount)
	}
	if err != nil {
		sendServiceError(w, err)
		return
	}

	log.Printf("[USERS] Balance of %s adjusted by %d (now %d)", userID, req.Amount, newBalance)
	writeJSON(w, http.StatusOK, map[string]any{"new_balance": newBalance})
}
