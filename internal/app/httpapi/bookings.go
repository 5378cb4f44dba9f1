package httpapi

import (
	"net/http"

	"github.com/pawmate/pawmate/internal/app/domain/booking"
	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/services/bookings"
	"github.com/pawmate/pawmate/internal/app/services/payments"
)

type bookingRequest struct {
	SitterID  string    `json:"sitter_id" validate:"required"`
	PetID     string    `json:"pet_id" validate:"required"`
	StartDate date.Date `json:"start_date"`
	EndDate   date.Date `json:"end_date"`
	Notes     string    `json:"notes" validate:"max=2000"`
}

type payRequest struct {
	MethodID string `json:"method_id"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type cardRequest struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	HolderName string `json:"holder_name"`
}

func (h *handler) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.app.Bookings.List(r.Context(), actor(r), bookings.Role(q.Get("as")), q.Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.app.Bookings.Create(r.Context(), actor(r), bookings.Request(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *handler) getBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.app.Bookings.Get(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) transitionBooking(w http.ResponseWriter, r *http.Request) {
	ctx, u, id := r.Context(), actor(r), pathVar(r, "id")
	var (
		b   booking.Booking
		err error
	)
	switch pathVar(r, "action") {
	case "accept":
		b, err = h.app.Bookings.Accept(ctx, u, id)
	case "decline":
		b, err = h.app.Bookings.Decline(ctx, u, id)
	case "cancel":
		b, err = h.app.Bookings.Cancel(ctx, u, id)
	case "complete":
		b, err = h.app.Bookings.Complete(ctx, u, id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handler) payBooking(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := h.decodeOptional(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Payments.PayBooking(r.Context(), actor(r), pathVar(r, "id"), req.MethodID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) reviewBooking(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rev, err := h.app.Sitters.AddReview(r.Context(), actor(r), pathVar(r, "id"), req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

func (h *handler) bookingPayments(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Payments.ListBookingPayments(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Payments.ListMethods(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// addPaymentMethod leaves card validation to the payments service, which
// owns the credit_card rule.
func (h *handler) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.app.Payments.AddMethod(r.Context(), actor(r), payments.CardInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) deletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Payments.DeleteMethod(r.Context(), actor(r), pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	m, err := h.app.Payments.SetDefault(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handler) listPayments(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Payments.ListPayments(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}
