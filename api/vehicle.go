package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/utils"
)

type VehicleHandler struct {
	vehicleService *services.VehicleService
	bookingService *services.BookingService
}

func CreateVehicleHandler(vehicleService *services.VehicleService, bookingService *services.BookingService) *VehicleHandler {
	return &VehicleHandler{
		vehicleService: vehicleService,
		bookingService: bookingService,
	}
}

func (h *VehicleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateVehicleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	vehicle, err := h.vehicleService.Create(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *VehicleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	vehicles, total, err := h.vehicleService.List(r.Context(), utils.GetOrganizationID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	limit, offset = services.NormalizePage(limit, offset)
	writeJSON(w, http.StatusOK, ListResponse[*models.Vehicle]{Items: vehicles, Total: total, Limit: limit, Offset: offset})
}

func (h *VehicleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.vehicleService.Get(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}

func (h *VehicleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateVehicleRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	vehicle, err := h.vehicleService.Update(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicle)
}

// HandleAvailability answers GET /vehicles/{id}/availability?pickup=...&dropoff=... (RFC 3339).
func (h *VehicleHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	pickup, err := queryTime(r, "pickup")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	dropoff, err := queryTime(r, "dropoff")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	availability, err := h.bookingService.CheckAvailability(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r), pickup, dropoff)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, availability)
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, utils.NewValidationError(utils.ReasonInvalidRequest, fmt.Sprintf("%s is required", name))
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, utils.NewValidationError(utils.ReasonInvalidRequest, fmt.Sprintf("%s must be an RFC 3339 timestamp", name))
	}
	return t, nil
}
