package memory

import (
	"context"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func (s *Store) CreatePet(_ context.Context, p pet.Pet) (pet.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = newID(p.ID)
	now := s.nowLocked()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.pets[p.ID] = p
	return p, nil
}

func (s *Store) UpdatePet(_ context.Context, p pet.Pet) (pet.Pet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.pets[p.ID]
	if !ok {
		return pet.Pet{}, storage.ErrNotFound
	}
	p.OwnerID = original.OwnerID
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = s.nowLocked()
	s.pets[p.ID] = p
	return p, nil
}

func (s *Store) GetPet(_ context.Context, id string) (pet.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pets[id]
	if !ok {
		return pet.Pet{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPets(_ context.Context, ownerID string) ([]pet.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.pets,
		func(p pet.Pet) bool { return p.OwnerID == ownerID },
		func(a, b pet.Pet) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (s *Store) ListStreakingPets(_ context.Context, day date.Date) ([]pet.Pet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.pets,
		func(p pet.Pet) bool {
			return p.Streak > 0 && p.LastLoggedOn != nil && p.LastLoggedOn.Before(day)
		},
		func(a, b pet.Pet) bool { return a.CreatedAt.Before(b.CreatedAt) },
	), nil
}

func (s *Store) DeletePet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pets[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.pets, id)
	for logID, a := range s.activities {
		if a.PetID == id {
			delete(s.activities, logID)
		}
	}
	for logID, m := range s.meals {
		if m.PetID == id {
			delete(s.meals, logID)
		}
	}
	for logID, m := range s.moods {
		if m.PetID == id {
			delete(s.moods, logID)
		}
	}
	for recID, rec := range s.healthRecords {
		if rec.PetID == id {
			delete(s.healthRecords, recID)
		}
	}
	for scanID, sc := range s.scans {
		if sc.PetID == id {
			delete(s.scans, scanID)
		}
	}
	return nil
}

func (s *Store) CreateActivity(_ context.Context, a pet.Activity) (pet.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a.ID = newID(a.ID)
	a.CreatedAt = s.nowLocked()
	s.activities[a.ID] = a
	return a, nil
}

func (s *Store) ListActivities(_ context.Context, petID string) ([]pet.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.activities,
		func(a pet.Activity) bool { return a.PetID == petID },
		func(a, b pet.Activity) bool { return a.LoggedAt.After(b.LoggedAt) },
	), nil
}

func (s *Store) CreateMeal(_ context.Context, m pet.Meal) (pet.Meal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = newID(m.ID)
	m.CreatedAt = s.nowLocked()
	s.meals[m.ID] = m
	return m, nil
}

func (s *Store) ListMeals(_ context.Context, petID string) ([]pet.Meal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.meals,
		func(m pet.Meal) bool { return m.PetID == petID },
		func(a, b pet.Meal) bool { return a.LoggedAt.After(b.LoggedAt) },
	), nil
}

func (s *Store) CreateMood(_ context.Context, m pet.Mood) (pet.Mood, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = newID(m.ID)
	m.CreatedAt = s.nowLocked()
	s.moods[m.ID] = m
	return m, nil
}

func (s *Store) ListMoods(_ context.Context, petID string) ([]pet.Mood, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.moods,
		func(m pet.Mood) bool { return m.PetID == petID },
		func(a, b pet.Mood) bool { return a.LoggedAt.After(b.LoggedAt) },
	), nil
}

func (s *Store) DeleteLog(_ context.Context, kind pet.LogKind, petID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch kind {
	case pet.LogActivity:
		if a, ok := s.activities[id]; ok && a.PetID == petID {
			delete(s.activities, id)
			return nil
		}
	case pet.LogMeal:
		if m, ok := s.meals[id]; ok && m.PetID == petID {
			delete(s.meals, id)
			return nil
		}
	case pet.LogMood:
		if m, ok := s.moods[id]; ok && m.PetID == petID {
			delete(s.moods, id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) LogTimes(_ context.Context, petID string) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var times []time.Time
	for _, a := range s.activities {
		if a.PetID == petID {
			times = append(times, a.LoggedAt)
		}
	}
	for _, m := range s.meals {
		if m.PetID == petID {
			times = append(times, m.LoggedAt)
		}
	}
	for _, m := range s.moods {
		if m.PetID == petID {
			times = append(times, m.LoggedAt)
		}
	}
	return times, nil
}

func (s *Store) CreateHealthRecord(_ context.Context, rec pet.HealthRecord) (pet.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = newID(rec.ID)
	now := s.nowLocked()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.healthRecords[rec.ID] = rec
	return rec, nil
}

func (s *Store) UpdateHealthRecord(_ context.Context, rec pet.HealthRecord) (pet.HealthRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.healthRecords[rec.ID]
	if !ok {
		return pet.HealthRecord{}, storage.ErrNotFound
	}
	rec.PetID = original.PetID
	rec.CreatedAt = original.CreatedAt
	rec.UpdatedAt = s.nowLocked()
	s.healthRecords[rec.ID] = rec
	return rec, nil
}

func (s *Store) GetHealthRecord(_ context.Context, id string) (pet.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.healthRecords[id]
	if !ok {
		return pet.HealthRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (s *Store) ListHealthRecords(_ context.Context, petID string) ([]pet.HealthRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collect(s.healthRecords,
		func(r pet.HealthRecord) bool { return r.PetID == petID },
		func(a, b pet.HealthRecord) bool { return a.RecordedOn.After(b.RecordedOn) },
	), nil
}

func (s *Store) DeleteHealthRecord(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.healthRecords[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.healthRecords, id)
	return nil
}
