package api

import (
	"net/http"
	"slices"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/utils"
)

type OrganizationHandler struct {
	organizationService *services.OrganizationService
}

func CreateOrganizationHandler(organizationService *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{
		organizationService: organizationService,
	}
}

// HandleCreate is the public signup route; the response carries an owner token.
func (h *OrganizationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrganizationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp, err := h.organizationService.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrganizationHandler) HandleGetCurrent(w http.ResponseWriter, r *http.Request) {
	org, err := h.organizationService.Get(r.Context(), utils.GetOrganizationID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) HandleUpdateCurrent(w http.ResponseWriter, r *http.Request) {
	if !hasRole(r, services.OwnerRole) {
		utils.WriteError(w, utils.ErrForbidden)
		return
	}

	var req models.UpdateOrganizationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	org, err := h.organizationService.Update(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

func (h *OrganizationHandler) HandleDeactivateCurrent(w http.ResponseWriter, r *http.Request) {
	if !hasRole(r, services.OwnerRole) {
		utils.WriteError(w, utils.ErrForbidden)
		return
	}

	if err := h.organizationService.Deactivate(r.Context(), utils.GetOrganizationID(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func hasRole(r *http.Request, role string) bool {
	return slices.Contains(utils.GetRoles(r.Context()), role)
}
