package api

import (
	"net/http"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/utils"
)

type LocationHandler struct {
	locationService *services.LocationService
}

func CreateLocationHandler(locationService *services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

func (h *LocationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLocationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	location, err := h.locationService.Create(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, location)
}

func (h *LocationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	locations, total, err := h.locationService.List(r.Context(), utils.GetOrganizationID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	limit, offset = services.NormalizePage(limit, offset)
	writeJSON(w, http.StatusOK, ListResponse[*models.Location]{Items: locations, Total: total, Limit: limit, Offset: offset})
}

func (h *LocationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	location, err := h.locationService.Get(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}

func (h *LocationHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateLocationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	location, err := h.locationService.Update(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, location)
}
