package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/akunflix/backend/internal/services"
)

type BroadcastHandler struct {
	service   *services.BroadcastService
	validator *services.ValidationHelper
}

func NewBroadcastHandler(service *services.BroadcastService) *BroadcastHandler {
	return &BroadcastHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateBroadcast queues an announcement for delivery
// @Summary Create broadcast
// @Description Queue an announcement; the background worker delivers it
// @Tags broadcasts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body services.CreateBroadcastParams true "Broadcast"
// @Success 201 {object} object{id=string}
// @Failure 400 {object} services.ErrorResponse
// @Router /broadcasts [post]
func (h *BroadcastHandler) CreateBroadcast(w http.ResponseWriter, r *http.Request) {
	var req services.CreateBroadcastParams
	if err := decodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	id, err := h.service.CreateBroadcast(r.Context(), req)
	if err != nil {
		log.Printf("[BROADCAST] Create failed: %v", err)
		sendServiceError(w, err)
		return
	}

	log.Printf("[BROADCAST] Queued %s (target: %s)", id, req.Target)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// ListBroadcasts returns broadcasts with delivery progress
// @Summary List broadcasts
// @Tags broadcasts
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 50)"
// @Success 200 {array} models.Broadcast
// @Router /broadcasts [get]
func (h *BroadcastHandler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	broadcasts, err := h.service.ListBroadcasts(r.Context(), limit)
	if err != nil {
		log.Printf("[BROADCAST] List failed: %v", err)
		sendServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, broadcasts)
}
