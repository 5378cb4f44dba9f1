package httpapi

import (
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/app/services/pets"
	"github.com/pawmate/pawmate/internal/app/services/scans"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

type petRequest struct {
	Name      string     `json:"name" validate:"required,max=80"`
	Species   string     `json:"species" validate:"required"`
	Breed     string     `json:"breed" validate:"max=80"`
	Gender    string     `json:"gender" validate:"omitempty,oneof=male female unknown"`
	BirthDate *date.Date `json:"birth_date"`
	WeightKg  float64    `json:"weight_kg" validate:"gte=0"`
	PhotoURL  string     `json:"photo_url" validate:"max=2048"`
	Notes     string     `json:"notes" validate:"max=2000"`
}

type petPatchRequest struct {
	Name      *string    `json:"name" validate:"omitempty,max=80"`
	Species   *string    `json:"species"`
	Breed     *string    `json:"breed" validate:"omitempty,max=80"`
	Gender    *string    `json:"gender" validate:"omitempty,oneof=male female unknown"`
	BirthDate *date.Date `json:"birth_date"`
	WeightKg  *float64   `json:"weight_kg" validate:"omitempty,gte=0"`
	PhotoURL  *string    `json:"photo_url" validate:"omitempty,max=2048"`
	Notes     *string    `json:"notes" validate:"omitempty,max=2000"`
}

type activityRequest struct {
	Kind            string    `json:"kind" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0"`
	DistanceKm      float64   `json:"distance_km" validate:"gte=0"`
	Notes           string    `json:"notes" validate:"max=2000"`
	LoggedAt        time.Time `json:"logged_at"`
}

type mealRequest struct {
	Food        string    `json:"food" validate:"required,max=120"`
	MealType    string    `json:"meal_type" validate:"required"`
	AmountGrams float64   `json:"amount_grams" validate:"gte=0"`
	Notes       string    `json:"notes" validate:"max=2000"`
	LoggedAt    time.Time `json:"logged_at"`
}

type moodRequest struct {
	Mood     string    `json:"mood" validate:"required"`
	Notes    string    `json:"notes" validate:"max=2000"`
	LoggedAt time.Time `json:"logged_at"`
}

type healthRecordRequest struct {
	Kind        string     `json:"kind" validate:"required"`
	Title       string     `json:"title" validate:"required,max=120"`
	Description string     `json:"description" validate:"max=4000"`
	RecordedOn  date.Date  `json:"recorded_on"`
	NextDueOn   *date.Date `json:"next_due_on"`
	Vet         string     `json:"vet" validate:"max=120"`
}

type healthPatchRequest struct {
	Kind        *string    `json:"kind"`
	Title       *string    `json:"title" validate:"omitempty,max=120"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	RecordedOn  *date.Date `json:"recorded_on"`
	NextDueOn   *date.Date `json:"next_due_on"`
	Vet         *string    `json:"vet" validate:"omitempty,max=120"`
}

func (h *handler) listPets(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Pets.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) createPet(w http.ResponseWriter, r *http.Request) {
	var req petRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Pets.Create(r.Context(), actor(r), pets.Input(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *handler) getPet(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.Pets.Get(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) updatePet(w http.ResponseWriter, r *http.Request) {
	var req petPatchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.app.Pets.Update(r.Context(), actor(r), pathVar(r, "pet"), pets.Patch(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deletePet(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Pets.Delete(r.Context(), actor(r), pathVar(r, "pet")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listActivities(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Pets.ListActivities(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) logActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.app.Pets.LogActivity(r.Context(), actor(r), pathVar(r, "pet"), pet.Activity{
		Kind:            req.Kind,
		DurationMinutes: req.DurationMinutes,
		DistanceKm:      req.DistanceKm,
		Notes:           req.Notes,
		LoggedAt:        req.LoggedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) listMeals(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Pets.ListMeals(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) logMeal(w http.ResponseWriter, r *http.Request) {
	var req mealRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.app.Pets.LogMeal(r.Context(), actor(r), pathVar(r, "pet"), pet.Meal{
		Food:        req.Food,
		MealType:    req.MealType,
		AmountGrams: req.AmountGrams,
		Notes:       req.Notes,
		LoggedAt:    req.LoggedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) listMoods(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Pets.ListMoods(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) logMood(w http.ResponseWriter, r *http.Request) {
	var req moodRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := h.app.Pets.LogMood(r.Context(), actor(r), pathVar(r, "pet"), pet.Mood{
		Mood:     req.Mood,
		Notes:    req.Notes,
		LoggedAt: req.LoggedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) deleteLog(w http.ResponseWriter, r *http.Request) {
	kind := pet.LogKind(pathVar(r, "kind"))
	if err := h.app.Pets.DeleteLog(r.Context(), actor(r), kind, pathVar(r, "pet"), pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listHealthRecords(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Pets.ListHealthRecords(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) addHealthRecord(w http.ResponseWriter, r *http.Request) {
	var req healthRecordRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.app.Pets.AddHealthRecord(r.Context(), actor(r), pathVar(r, "pet"), pet.HealthRecord{
		Kind:        req.Kind,
		Title:       req.Title,
		Description: req.Description,
		RecordedOn:  req.RecordedOn,
		NextDueOn:   req.NextDueOn,
		Vet:         req.Vet,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) updateHealthRecord(w http.ResponseWriter, r *http.Request) {
	var req healthPatchRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rec, err := h.app.Pets.UpdateHealthRecord(r.Context(), actor(r), pathVar(r, "pet"), pathVar(r, "id"), pets.HealthPatch(req))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) deleteHealthRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Pets.DeleteHealthRecord(r.Context(), actor(r), pathVar(r, "pet"), pathVar(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) streak(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Pets.Streak(r.Context(), actor(r), pathVar(r, "pet"), r.URL.Query().Get("tz"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *handler) listScans(w http.ResponseWriter, r *http.Request) {
	items, err := h.app.Scans.List(r.Context(), actor(r), pathVar(r, "pet"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// createScan accepts multipart/form-data with a "kind" field and an "image" file.
func (h *handler) createScan(w http.ResponseWriter, r *http.Request) {
	file, err := formFile(w, r, "image", scans.MaxImageBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	kind, ok := scan.ParseKind(r.FormValue("kind"))
	if !ok {
		writeError(w, r, apperrors.InvalidInput("kind must be one of stool, fur"))
		return
	}
	result, err := h.app.Scans.Analyze(r.Context(), actor(r), pathVar(r, "pet"), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *handler) getScan(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Scans.Get(r.Context(), actor(r), pathVar(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// formFile parses a multipart body capped at limit plus form overhead and
// returns the named file part.
func formFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (multipart.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+64<<10)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, apperrors.InvalidInput("expected multipart form with %q under %d bytes", field, limit)
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, apperrors.InvalidInput("%s file is required", field)
	}
	return file, nil
}
