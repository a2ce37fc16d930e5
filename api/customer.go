package api

import (
	"net/http"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/utils"
)

type CustomerHandler struct {
	customerService *services.CustomerService
}

func CreateCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

func (h *CustomerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	customer, err := h.customerService.Create(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

func (h *CustomerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	customers, total, err := h.customerService.List(r.Context(), utils.GetOrganizationID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	limit, offset = services.NormalizePage(limit, offset)
	writeJSON(w, http.StatusOK, ListResponse[*models.Customer]{Items: customers, Total: total, Limit: limit, Offset: offset})
}

func (h *CustomerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	customer, err := h.customerService.Get(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

func (h *CustomerHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateCustomerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	customer, err := h.customerService.Update(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}
