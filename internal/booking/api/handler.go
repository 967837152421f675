package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"planetarium-service/internal/auth"
	"planetarium-service/internal/booking"
	"planetarium-service/internal/logger"
	"planetarium-service/internal/models"
	"planetarium-service/internal/utils"
)

type Handler struct {
	Booking *booking.Service
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, log *logger.Logger) *Handler {
	return &Handler{Booking: service, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Get("/", h.ListReservations)
		r.Post("/", h.CreateReservation)
		r.Delete("/{reservationId}", h.CancelReservation)
	})

	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/", h.CreateTicket)
		r.Get("/{ticketId}", h.GetTicket)
		r.Put("/{ticketId}", h.UpdateTicket)
		r.Delete("/{ticketId}", h.DeleteTicket)
	})
}

// writeError maps the booking error taxonomy onto HTTP. Geometry and
// duplicate-seat rejections both come back as 400 but with distinct codes
// so clients can render them differently. Storage details never leak.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var geomErr *booking.GeometryError
	switch {
	case errors.As(err, &geomErr):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("out_of_bounds", geomErr.Field, geomErr.Error()))
	case errors.Is(err, booking.ErrSeatTaken):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("seat_taken", "", booking.ErrSeatTaken.Error()))
	case errors.Is(err, booking.ErrTicketImmutable):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("ticket_immutable", "", booking.ErrTicketImmutable.Error()))
	case errors.Is(err, booking.ErrEmptyReservation):
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("empty_reservation", "tickets", booking.ErrEmptyReservation.Error()))
	case errors.Is(err, booking.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse("not found", "record not found"))
	default:
		h.Logger.Error("API", fmt.Sprintf("%s: %v", op, err))
		utils.WriteJSON(w, http.StatusInternalServerError,
			utils.ErrorResponse("internal error", "request could not be processed"))
	}
}

// ---------------- RESERVATIONS ----------------

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req models.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}

	response, err := h.Booking.CreateReservation(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}

	h.Logger.LogBooking("CREATE", response.ID, fmt.Sprintf("%d tickets committed for user %s", len(response.Tickets), userID))
	utils.WriteJSON(w, http.StatusCreated, response)
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	pageResp, err := h.Booking.ListReservations(r.Context(), userID, page, pageSize)
	if err != nil {
		h.writeError(w, "ListReservations", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pageResp)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	reservationID := chi.URLParam(r, "reservationId")

	if err := h.Booking.CancelReservation(r.Context(), userID, reservationID); err != nil {
		h.writeError(w, "CancelReservation", err)
		return
	}

	h.Logger.LogBooking("CANCEL", reservationID, "reservation and tickets removed")
	w.WriteHeader(http.StatusNoContent)
}

// ---------------- TICKETS ----------------

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.Booking.ListTickets(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.writeError(w, "ListTickets", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tickets)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Booking.GetTicket(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId"))
	if err != nil {
		h.writeError(w, "GetTicket", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ticket.ToResponse())
}

func (h *Handler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req models.TicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.ReservationID == "" {
		utils.WriteJSON(w, http.StatusBadRequest,
			utils.ValidationErrorResponse("missing_field", "reservation", "reservation is required"))
		return
	}

	ticket, err := h.Booking.AddTicket(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, "CreateTicket", err)
		return
	}

	h.Logger.LogBooking("TICKET", ticket.TicketID,
		fmt.Sprintf("seat %d-%d committed for session %s", ticket.Row, ticket.Seat, ticket.ShowSessionID))
	utils.WriteJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) UpdateTicket(w http.ResponseWriter, r *http.Request) {
	err := h.Booking.UpdateTicket(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId"))
	// UpdateTicket never succeeds; surface the taxonomy error.
	h.writeError(w, "UpdateTicket", err)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := h.Booking.DeleteTicket(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "ticketId")); err != nil {
		h.writeError(w, "DeleteTicket", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
