package pets

import (
	"context"
	"strings"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
)

// HealthPatch carries optional health record changes.
type HealthPatch struct {
	Kind        *string
	Title       *string
	Description *string
	RecordedOn  *date.Date
	NextDueOn   *date.Date
	Vet         *string
}

// AddHealthRecord appends an entry to a pet's medical history.
func (s *Service) AddHealthRecord(ctx context.Context, actor user.User, petID string, rec pet.HealthRecord) (pet.HealthRecord, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessManage); err != nil {
		return pet.HealthRecord{}, err
	}
	rec.ID = ""
	rec.PetID = petID
	normalizeHealth(&rec)
	if rec.RecordedOn.IsZero() {
		rec.RecordedOn = date.In(s.now(), time.UTC)
	}
	if err := s.validateHealth(rec); err != nil {
		return pet.HealthRecord{}, err
	}
	created, err := s.pets.CreateHealthRecord(ctx, rec)
	if err != nil {
		return pet.HealthRecord{}, storage.AsServiceError(err, "health record", "")
	}
	s.log.WithContext(ctx).
		WithField("pet_id", petID).
		WithField("record_id", created.ID).
		Info("health record added")
	return created, nil
}

// ListHealthRecords returns a pet's medical history, newest first.
func (s *Service) ListHealthRecords(ctx context.Context, actor user.User, petID string) ([]pet.HealthRecord, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessCare); err != nil {
		return nil, err
	}
	items, err := s.pets.ListHealthRecords(ctx, petID)
	return items, storage.AsServiceError(err, "health record", "")
}

// UpdateHealthRecord applies a patch to a health record.
func (s *Service) UpdateHealthRecord(ctx context.Context, actor user.User, petID, id string, patch HealthPatch) (pet.HealthRecord, error) {
	rec, err := s.healthRecord(ctx, actor, petID, id)
	if err != nil {
		return pet.HealthRecord{}, err
	}
	if patch.Kind != nil {
		rec.Kind = *patch.Kind
	}
	if patch.Title != nil {
		rec.Title = *patch.Title
	}
	if patch.Description != nil {
		rec.Description = *patch.Description
	}
	if patch.RecordedOn != nil {
		rec.RecordedOn = *patch.RecordedOn
	}
	if patch.NextDueOn != nil {
		rec.NextDueOn = patch.NextDueOn
		if patch.NextDueOn.IsZero() {
			rec.NextDueOn = nil
		}
	}
	if patch.Vet != nil {
		rec.Vet = *patch.Vet
	}
	normalizeHealth(&rec)
	if err := s.validateHealth(rec); err != nil {
		return pet.HealthRecord{}, err
	}
	updated, err := s.pets.UpdateHealthRecord(ctx, rec)
	if err != nil {
		return pet.HealthRecord{}, storage.AsServiceError(err, "health record", id)
	}
	return updated, nil
}

// DeleteHealthRecord removes a health record.
func (s *Service) DeleteHealthRecord(ctx context.Context, actor user.User, petID, id string) error {
	if _, err := s.healthRecord(ctx, actor, petID, id); err != nil {
		return err
	}
	return storage.AsServiceError(s.pets.DeleteHealthRecord(ctx, id), "health record", id)
}

func (s *Service) healthRecord(ctx context.Context, actor user.User, petID, id string) (pet.HealthRecord, error) {
	if _, err := s.Authorize(ctx, actor, petID, AccessManage); err != nil {
		return pet.HealthRecord{}, err
	}
	rec, err := s.pets.GetHealthRecord(ctx, id)
	if err != nil {
		return pet.HealthRecord{}, storage.AsServiceError(err, "health record", id)
	}
	if rec.PetID != petID {
		return pet.HealthRecord{}, apperrors.NotFound("health record", id)
	}
	return rec, nil
}

func normalizeHealth(rec *pet.HealthRecord) {
	rec.Kind = strings.ToLower(strings.TrimSpace(rec.Kind))
	rec.Title = strings.TrimSpace(rec.Title)
	rec.Description = strings.TrimSpace(rec.Description)
	rec.Vet = strings.TrimSpace(rec.Vet)
}

func (s *Service) validateHealth(rec pet.HealthRecord) error {
	switch {
	case !oneOf(rec.Kind, pet.HealthKinds):
		return apperrors.InvalidInput("kind must be one of %s", strings.Join(pet.HealthKinds, ", "))
	case rec.Title == "":
		return apperrors.InvalidInput("title is required")
	case len(rec.Title) > 200:
		return apperrors.InvalidInput("title must be at most 200 characters")
	case rec.RecordedOn.After(date.In(s.now(), time.UTC)):
		return apperrors.InvalidInput("recorded_on cannot be in the future")
	case rec.NextDueOn != nil && rec.NextDueOn.Before(rec.RecordedOn):
		return apperrors.InvalidInput("next_due_on must not be before recorded_on")
	}
	return nil
}
