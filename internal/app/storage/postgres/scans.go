package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
)

type scanRow struct {
	ID         string         `db:"id"`
	PetID      string         `db:"pet_id"`
	UserID     string         `db:"user_id"`
	Kind       string         `db:"kind"`
	ImageURL   string         `db:"image_url"`
	Label      string         `db:"label"`
	Confidence float64        `db:"confidence"`
	Findings   pq.StringArray `db:"findings"`
	Model      string         `db:"model"`
	Status     string         `db:"status"`
	Error      string         `db:"error"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r scanRow) scan() scan.Scan {
	return scan.Scan{
		ID:         r.ID,
		PetID:      r.PetID,
		UserID:     r.UserID,
		Kind:       scan.Kind(r.Kind),
		ImageURL:   r.ImageURL,
		Label:      r.Label,
		Confidence: r.Confidence,
		Findings:   append([]string{}, r.Findings...),
		Model:      r.Model,
		Status:     scan.Status(r.Status),
		Error:      r.Error,
		CreatedAt:  r.CreatedAt,
	}
}

const scanColumns = `id, pet_id, user_id, kind, image_url, label, confidence, findings, model, status, error, created_at`

func (s *Store) CreateScan(ctx context.Context, sc scan.Scan) (scan.Scan, error) {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = now()
	if sc.Findings == nil {
		sc.Findings = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (`+scanColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, sc.ID, sc.PetID, sc.UserID, sc.Kind, sc.ImageURL, sc.Label, sc.Confidence, pq.Array(sc.Findings),
		sc.Model, sc.Status, sc.Error, sc.CreatedAt)
	if err != nil {
		return scan.Scan{}, mapErr(err)
	}
	return sc, nil
}

func (s *Store) GetScan(ctx context.Context, id string) (scan.Scan, error) {
	var row scanRow
	if err := s.db.GetContext(ctx, &row, `SELECT `+scanColumns+` FROM scans WHERE id = $1`, id); err != nil {
		return scan.Scan{}, mapErr(err)
	}
	return row.scan(), nil
}

func (s *Store) ListScans(ctx context.Context, petID string) ([]scan.Scan, error) {
	var rows []scanRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+scanColumns+` FROM scans WHERE pet_id = $1 ORDER BY created_at DESC`, petID); err != nil {
		return nil, mapErr(err)
	}
	out := make([]scan.Scan, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.scan())
	}
	return out, nil
}
