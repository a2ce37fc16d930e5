package api

import (
	"context"
	"net/http"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/services"
	"github.com/malwarebo/rentops/utils"
)

type BookingHandler struct {
	bookingService *services.BookingService
}

func CreateBookingHandler(bookingService *services.BookingService) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
	}
}

func (h *BookingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	booking, err := h.bookingService.Create(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	vehicleID, err := queryID(r, "vehicle_id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	customerID, err := queryID(r, "customer_id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	filter := models.BookingFilter{
		OrganizationID: utils.GetOrganizationID(r.Context()),
		Status:         models.BookingStatus(r.URL.Query().Get("status")),
		VehicleID:      vehicleID,
		CustomerID:     customerID,
		Limit:          limit,
		Offset:         offset,
	}

	resp, err := h.bookingService.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookingService.Get(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateBookingRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	booking, err := h.bookingService.Update(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.bookingService.Delete(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *BookingHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.Confirm)
}

func (h *BookingHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.Activate)
}

func (h *BookingHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.Complete)
}

func (h *BookingHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookingService.Cancel)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, orgID, id string) (*models.Booking, error)) {
	booking, err := apply(r.Context(), utils.GetOrganizationID(r.Context()), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	quote, err := h.bookingService.Quote(r.Context(), utils.GetOrganizationID(r.Context()), &req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
