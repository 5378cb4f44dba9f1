package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/sitter"
)

type sitterRow struct {
	ID              string         `db:"id"`
	UserID          string         `db:"user_id"`
	Bio             string         `db:"bio"`
	City            string         `db:"city"`
	ExperienceYears int            `db:"experience_years"`
	DailyRateCents  int64          `db:"daily_rate_cents"`
	Services        pq.StringArray `db:"services"`
	Status          string         `db:"status"`
	Rating          float64        `db:"rating"`
	ReviewCount     int            `db:"review_count"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r sitterRow) profile() sitter.Profile {
	return sitter.Profile{
		ID:              r.ID,
		UserID:          r.UserID,
		Bio:             r.Bio,
		City:            r.City,
		ExperienceYears: r.ExperienceYears,
		DailyRateCents:  r.DailyRateCents,
		Services:        append([]string{}, r.Services...),
		Status:          sitter.Status(r.Status),
		Rating:          r.Rating,
		ReviewCount:     r.ReviewCount,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func profiles(rows []sitterRow) []sitter.Profile {
	out := make([]sitter.Profile, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.profile())
	}
	return out
}

const sitterColumns = `id, user_id, bio, city, experience_years, daily_rate_cents, services, status, rating,
	review_count, created_at, updated_at`

func (s *Store) CreateSitter(ctx context.Context, p sitter.Profile) (sitter.Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sitter_profiles (`+sitterColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.UserID, p.Bio, p.City, p.ExperienceYears, p.DailyRateCents, pq.Array(p.Services), p.Status,
		p.Rating, p.ReviewCount, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return sitter.Profile{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) UpdateSitter(ctx context.Context, p sitter.Profile) (sitter.Profile, error) {
	p.UpdatedAt = now()
	row := s.db.QueryRowxContext(ctx, `
		UPDATE sitter_profiles
		SET bio = $2, city = $3, experience_years = $4, daily_rate_cents = $5, services = $6, status = $7,
			rating = $8, review_count = $9, updated_at = $10
		WHERE id = $1
		RETURNING user_id, created_at
	`, p.ID, p.Bio, p.City, p.ExperienceYears, p.DailyRateCents, pq.Array(p.Services), p.Status,
		p.Rating, p.ReviewCount, p.UpdatedAt)
	if err := row.Scan(&p.UserID, &p.CreatedAt); err != nil {
		return sitter.Profile{}, mapErr(err)
	}
	return p, nil
}

func (s *Store) GetSitter(ctx context.Context, id string) (sitter.Profile, error) {
	var row sitterRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+sitterColumns+` FROM sitter_profiles WHERE id = $1`, id); err != nil {
		return sitter.Profile{}, mapErr(err)
	}
	return row.profile(), nil
}

func (s *Store) GetSitterByUser(ctx context.Context, userID string) (sitter.Profile, error) {
	var row sitterRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+sitterColumns+` FROM sitter_profiles WHERE user_id = $1`, userID); err != nil {
		return sitter.Profile{}, mapErr(err)
	}
	return row.profile(), nil
}

func (s *Store) SearchSitters(ctx context.Context, filter sitter.SearchFilter) ([]sitter.Profile, error) {
	var w where
	w.add("status = ?", string(sitter.StatusApproved))
	if filter.City != "" {
		w.add("lower(city) = lower(?)", filter.City)
	}
	if filter.MinRating > 0 {
		w.add("rating >= ?", filter.MinRating)
	}
	if filter.MaxDailyRate > 0 {
		w.add("daily_rate_cents <= ?", filter.MaxDailyRate)
	}
	query := `SELECT ` + sitterColumns + ` FROM sitter_profiles` + w.String() + ` ORDER BY rating DESC, created_at`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + w.next(filter.Offset)
	}

	var rows []sitterRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), w.args...); err != nil {
		return nil, mapErr(err)
	}
	return profiles(rows), nil
}

func (s *Store) ListSittersByStatus(ctx context.Context, status sitter.Status) ([]sitter.Profile, error) {
	var w where
	if status != "" {
		w.add("status = ?", string(status))
	}
	var rows []sitterRow
	query := `SELECT ` + sitterColumns + ` FROM sitter_profiles` + w.String() + ` ORDER BY created_at`
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), w.args...); err != nil {
		return nil, mapErr(err)
	}
	return profiles(rows), nil
}

func (s *Store) UpsertAvailability(ctx context.Context, days []sitter.Availability) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, day := range days {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO sitter_availability (sitter_id, day, available, note)
			VALUES (:sitter_id, :day, :available, :note)
			ON CONFLICT (sitter_id, day) DO UPDATE SET available = EXCLUDED.available, note = EXCLUDED.note
		`, day)
		if err != nil {
			return mapErr(err)
		}
	}
	return tx.Commit()
}

func (s *Store) ListAvailability(ctx context.Context, sitterID string, from, to date.Date) ([]sitter.Availability, error) {
	var out []sitter.Availability
	err := s.db.SelectContext(ctx, &out, `
		SELECT sitter_id, day, available, note FROM sitter_availability
		WHERE sitter_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, sitterID, from, to)
	return out, mapErr(err)
}

func (s *Store) CreateReview(ctx context.Context, r sitter.Review) (sitter.Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO sitter_reviews (id, sitter_id, booking_id, reviewer_id, rating, comment, created_at)
		VALUES (:id, :sitter_id, :booking_id, :reviewer_id, :rating, :comment, :created_at)
	`, r)
	if err != nil {
		return sitter.Review{}, mapErr(err)
	}
	return r, nil
}

func (s *Store) ListReviews(ctx context.Context, sitterID string) ([]sitter.Review, error) {
	var out []sitter.Review
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, sitter_id, booking_id, reviewer_id, rating, comment, created_at
		FROM sitter_reviews WHERE sitter_id = $1 ORDER BY created_at DESC
	`, sitterID)
	return out, mapErr(err)
}
