package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/storage"
)

const petColumns = `id, owner_id, name, species, breed, gender, birth_date, weight_kg, photo_url, notes,
	streak, longest_streak, last_logged_on, created_at, updated_at`

func (s *Store) CreatePet(ctx context.Context, p pet.Pet) (pet.Pet, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pets (`+petColumns+`)
		VALUES (:id, :owner_id, :name, :species, :breed, :gender, :birth_date, :weight_kg, :photo_url, :notes,
			:streak, :longest_streak, :last_logged_on, :created_at, :updated_at)
	`, p)
	if err != nil {
		return pet.Pet{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdatePet(ctx context.Context, p pet.Pet) (pet.Pet, error) {
	p.UpdatedAt = now()
	row := s.db.QueryRowxContext(ctx, `
		UPDATE pets
		SET name = $2, species = $3, breed = $4, gender = $5, birth_date = $6, weight_kg = $7, photo_url = $8,
			notes = $9, streak = $10, longest_streak = $11, last_logged_on = $12, updated_at = $13
		WHERE id = $1
		RETURNING owner_id, created_at
	`, p.ID, p.Name, p.Species, p.Breed, p.Gender, p.BirthDate, p.WeightKg, p.PhotoURL,
		p.Notes, p.Streak, p.LongestStreak, p.LastLoggedOn, p.UpdatedAt)
	if err := row.Scan(&p.OwnerID, &p.CreatedAt); err != nil {
		return pet.Pet{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) GetPet(ctx context.Context, id string) (pet.Pet, error) {
	var p pet.Pet
	if err := s.db.GetContext(ctx, &p, `SELECT `+petColumns+` FROM pets WHERE id = $1`, id); err != nil {
		return pet.Pet{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) ListPets(ctx context.Context, ownerID string) ([]pet.Pet, error) {
	var pets []pet.Pet
	err := s.db.SelectContext(ctx, &pets, `SELECT `+petColumns+` FROM pets WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	return pets, mapErr(err)
}

func (s *Store) ListStreakingPets(ctx context.Context, day date.Date) ([]pet.Pet, error) {
	var pets []pet.Pet
	err := s.db.SelectContext(ctx, &pets, `
		SELECT `+petColumns+` FROM pets
		WHERE streak > 0 AND last_logged_on < $1
		ORDER BY created_at
	`, day)
	return pets, mapErr(err)
}

func (s *Store) DeletePet(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM pets WHERE id = $1`, id))
}

func (s *Store) CreateActivity(ctx context.Context, a pet.Activity) (pet.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pet_activities (id, pet_id, logged_by, kind, duration_minutes, distance_km, notes, logged_at, created_at)
		VALUES (:id, :pet_id, :logged_by, :kind, :duration_minutes, :distance_km, :notes, :logged_at, :created_at)
	`, a)
	if err != nil {
		return pet.Activity{}, mapErr(err)
	}
	return a, nil
}

func (s *Store) ListActivities(ctx context.Context, petID string) ([]pet.Activity, error) {
	var out []pet.Activity
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, pet_id, logged_by, kind, duration_minutes, distance_km, notes, logged_at, created_at
		FROM pet_activities WHERE pet_id = $1 ORDER BY logged_at DESC
	`, petID)
	return out, mapErr(err)
}

func (s *Store) CreateMeal(ctx context.Context, m pet.Meal) (pet.Meal, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pet_meals (id, pet_id, logged_by, food, meal_type, amount_grams, notes, logged_at, created_at)
		VALUES (:id, :pet_id, :logged_by, :food, :meal_type, :amount_grams, :notes, :logged_at, :created_at)
	`, m)
	if err != nil {
		return pet.Meal{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListMeals(ctx context.Context, petID string) ([]pet.Meal, error) {
	var out []pet.Meal
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, pet_id, logged_by, food, meal_type, amount_grams, notes, logged_at, created_at
		FROM pet_meals WHERE pet_id = $1 ORDER BY logged_at DESC
	`, petID)
	return out, mapErr(err)
}

func (s *Store) CreateMood(ctx context.Context, m pet.Mood) (pet.Mood, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pet_moods (id, pet_id, logged_by, mood, notes, logged_at, created_at)
		VALUES (:id, :pet_id, :logged_by, :mood, :notes, :logged_at, :created_at)
	`, m)
	if err != nil {
		return pet.Mood{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) ListMoods(ctx context.Context, petID string) ([]pet.Mood, error) {
	var out []pet.Mood
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, pet_id, logged_by, mood, notes, logged_at, created_at
		FROM pet_moods WHERE pet_id = $1 ORDER BY logged_at DESC
	`, petID)
	return out, mapErr(err)
}

var logTables = map[pet.LogKind]string{
	pet.LogActivity: "pet_activities",
	pet.LogMeal:     "pet_meals",
	pet.LogMood:     "pet_moods",
}

func (s *Store) DeleteLog(ctx context.Context, kind pet.LogKind, petID, id string) error {
	table, ok := logTables[kind]
	if !ok {
		return storage.ErrNotFound
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND pet_id = $2`, table)
	return expectRow(s.db.ExecContext(ctx, query, id, petID))
}

func (s *Store) LogTimes(ctx context.Context, petID string) ([]time.Time, error) {
	var times []time.Time
	err := s.db.SelectContext(ctx, &times, `
		SELECT logged_at FROM pet_activities WHERE pet_id = $1
		UNION ALL
		SELECT logged_at FROM pet_meals WHERE pet_id = $1
		UNION ALL
		SELECT logged_at FROM pet_moods WHERE pet_id = $1
	`, petID)
	return times, mapErr(err)
}

const healthColumns = `id, pet_id, kind, title, description, recorded_on, next_due_on, vet, created_at, updated_at`

func (s *Store) CreateHealthRecord(ctx context.Context, rec pet.HealthRecord) (pet.HealthRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = now()
	rec.UpdatedAt = rec.CreatedAt
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO pet_health_records (`+healthColumns+`)
		VALUES (:id, :pet_id, :kind, :title, :description, :recorded_on, :next_due_on, :vet, :created_at, :updated_at)
	`, rec)
	if err != nil {
		return pet.HealthRecord{}, mapErr(err)
	}
	return rec, nil
}

func (s *Store) UpdateHealthRecord(ctx context.Context, rec pet.HealthRecord) (pet.HealthRecord, error) {
	rec.UpdatedAt = now()
	row := s.db.QueryRowxContext(ctx, `
		UPDATE pet_health_records
		SET kind = $2, title = $3, description = $4, recorded_on = $5, next_due_on = $6, vet = $7, updated_at = $8
		WHERE id = $1
		RETURNING pet_id, created_at
	`, rec.ID, rec.Kind, rec.Title, rec.Description, rec.RecordedOn, rec.NextDueOn, rec.Vet, rec.UpdatedAt)
	if err := row.Scan(&rec.PetID, &rec.CreatedAt); err != nil {
		return pet.HealthRecord{}, mapErr(err)
	}
	return rec, nil
}

func (s *Store) GetHealthRecord(ctx context.Context, id string) (pet.HealthRecord, error) {
	var rec pet.HealthRecord
	if err := s.db.GetContext(ctx, &rec, `SELECT `+healthColumns+` FROM pet_health_records WHERE id = $1`, id); err != nil {
		return pet.HealthRecord{}, mapErr(err)
	}
	return rec, nil
}

func (s *Store) ListHealthRecords(ctx context.Context, petID string) ([]pet.HealthRecord, error) {
	var out []pet.HealthRecord
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+healthColumns+` FROM pet_health_records WHERE pet_id = $1 ORDER BY recorded_on DESC
	`, petID)
	return out, mapErr(err)
}

func (s *Store) DeleteHealthRecord(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM pet_health_records WHERE id = $1`, id))
}
