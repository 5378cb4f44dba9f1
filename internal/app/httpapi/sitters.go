package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
	"github.com/pawmate/pawmate/internal/app/services/sitters"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

type sitterRequest struct {
	Bio             *string  `json:"bio" validate:"omitempty,max=4000"`
	City            *string  `json:"city" validate:"omitempty,max=120"`
	ExperienceYears *int     `json:"experience_years" validate:"omitempty,gte=0,lte=80"`
	DailyRateCents  *int64   `json:"daily_rate_cents" validate:"omitempty,gte=0"`
	Services        []string `json:"services" validate:"omitempty,dive,required"`
}

type availabilityDay struct {
	Date      date.Date `json:"date"`
	Available bool      `json:"available"`
	Note      string    `json:"note" validate:"max=200"`
}

type availabilityRequest struct {
	Days []availabilityDay `json:"days" validate:"required,min=1,max=366,dive"`
}

func (h *handler) searchSitters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sitter.SearchFilter{City: strings.TrimSpace(q.Get("city"))}
	var err error
	if raw := q.Get("min_rating"); raw != "" {
		if filter.MinRating, err = strconv.ParseFloat(raw, 64); err != nil || filter.MinRating < 0 || filter.MinRating > 5 {
			writeError(w, r, apperrors.InvalidInput("min_rating must be between 0 and 5"))
			return
		}
	}
	if raw := q.Get("max_daily_rate"); raw != "" {
		if filter.MaxDailyRate, err = strconv.ParseInt(raw, 10, 64); err != nil || filter.MaxDailyRate < 0 {
			writeError(w, r, apperrors.InvalidInput("max_daily_rate must be a non-negative amount in cents"))
			return
		}
	}
	if filter.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, r, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.app.Sitters.Search(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) createSitter(w http.ResponseWriter, r *http.Request) {
	var req sitterRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Sitters.CreateProfile(r.Context(), actor(r), sitters.ProfileInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) mySitterProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Sitters.GetByUser(r.Context(), actor(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updateSitter(w http.ResponseWriter, r *http.Request) {
	var req sitterRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Sitters.UpdateProfile(r.Context(), actor(r), sitters.ProfileInput(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	days := make([]sitter.Availability, 0, len(req.Days))
	for _, d := range req.Days {
		days = append(days, sitter.Availability{Date: d.Date, Available: d.Available, Note: d.Note})
	}
	out, err := h.app.Sitters.SetAvailability(r.Context(), actor(r), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getSitter(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Sitters.Get(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) availability(w http.ResponseWriter, r *http.Request) {
	from, err := queryDate(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryDate(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.app.Sitters.Availability(r.Context(), pathVar(r, "id"), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) reviews(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Sitters.Reviews(r.Context(), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func queryDate(r *http.Request, name string) (date.Date, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return date.Date{}, nil
	}
	d, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, apperrors.InvalidInput("%s: %v", name, err)
	}
	return d, nil
}
