package handlers

import (
	"log"
	"net/http"

	"github.com/akunflix/backend/internal/services"
)

type AuthHandler struct {
	service   *services.AuthService
	validator *services.ValidationHelper
}

func NewAuthHandler(service *services.AuthService) *AuthHandler {
	return &AuthHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Login authenticates an operator
// @Summary Login
// @Description Exchange an admin id and key for a management token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{admin_id=string,key=string} true "Login request"
// @Success 200 {object} services.Session
// @Failure 401 {object} services.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Login attempt from IP: %s", r.RemoteAddr)

	var req struct {
		AdminID string `json:"admin_id" validate:"required"`
		Key     string `json:"key" validate:"required,min=8"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	session, err := h.service.Login(r.Context(), req.AdminID, req.Key)
	if err != nil {
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}
