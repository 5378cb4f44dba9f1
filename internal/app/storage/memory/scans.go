package memory

import (
	"context"

	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/app/storage"
)

func cloneScan(sc scan.Scan) scan.Scan {
	sc.Findings = append([]string{}, sc.Findings...)
	return sc
}

func (s *Store) CreateScan(_ context.Context, sc scan.Scan) (scan.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc.ID = newID(sc.ID)
	sc.CreatedAt = s.nowLocked()
	sc = cloneScan(sc)
	s.scans[sc.ID] = sc
	return cloneScan(sc), nil
}

func (s *Store) GetScan(_ context.Context, id string) (scan.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scans[id]
	if !ok {
		return scan.Scan{}, storage.ErrNotFound
	}
	return cloneScan(sc), nil
}

func (s *Store) ListScans(_ context.Context, petID string) ([]scan.Scan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.scans,
		func(sc scan.Scan) bool { return sc.PetID == petID },
		func(a, b scan.Scan) bool { return a.CreatedAt.After(b.CreatedAt) },
	)
	for i := range out {
		out[i] = cloneScan(out[i])
	}
	return out, nil
}
