// Package scans classifies stool and fur photos of pets.
package scans

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/pawmate/pawmate/internal/app/domain/pet"
	"github.com/pawmate/pawmate/internal/app/domain/scan"
	"github.com/pawmate/pawmate/internal/app/domain/user"
	"github.com/pawmate/pawmate/internal/app/metrics"
	"github.com/pawmate/pawmate/internal/app/services/pets"
	"github.com/pawmate/pawmate/internal/app/storage"
	apperrors "github.com/pawmate/pawmate/internal/errors"
	"github.com/pawmate/pawmate/internal/platform/blob"
	"github.com/pawmate/pawmate/pkg/logger"
)

// PetAccess resolves whether a user may act on a pet.
type PetAccess interface {
	Authorize(ctx context.Context, actor user.User, petID string, access pets.Access) (pet.Pet, error)
}

// Service runs and stores scans.
type Service struct {
	store      storage.ScanStore
	pets       PetAccess
	blobs      blob.Store
	classifier Classifier
	timeout    time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each classifier call.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// New constructs a scan service. A nil classifier disables Analyze.
func New(store storage.ScanStore, petAccess PetAccess, blobs blob.Store, classifier Classifier, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.NewDefault("scans")
	}
	s := &Service{
		store:      store,
		pets:       petAccess,
		blobs:      blobs,
		classifier: classifier,
		timeout:    30 * time.Second,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze stores the image and classifies it. A classifier failure is kept
// as a failed scan and reported as an upstream error.
func (s *Service) Analyze(ctx context.Context, actor user.User, petID string, kind scan.Kind, r io.Reader) (scan.Scan, error) {
	if _, ok := scan.ParseKind(string(kind)); !ok {
		return scan.Scan{}, apperrors.InvalidInput("kind must be stool or fur")
	}
	if _, err := s.pets.Authorize(ctx, actor, petID, pets.AccessCare); err != nil {
		return scan.Scan{}, err
	}
	if s.classifier == nil {
		return scan.Scan{}, apperrors.Unavailable("image analysis is not configured", nil)
	}
	img, err := Preprocess(r)
	if err != nil {
		return scan.Scan{}, err
	}

	obj, err := s.blobs.Put(ctx, blob.NewKey("scans", img.ContentType), img.ContentType, bytes.NewReader(img.Data))
	if err != nil {
		return scan.Scan{}, apperrors.Upstream("store image", err)
	}

	log := s.log.WithContext(ctx).WithFields(map[string]interface{}{"pet_id": petID, "kind": string(kind)})
	record := scan.Scan{PetID: petID, UserID: actor.ID, Kind: kind, ImageURL: obj.URL}

	classifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	start := s.now()
	res, classifyErr := s.classifier.Classify(classifyCtx, kind, img)
	elapsed := s.now().Sub(start)
	cancel()

	if classifyErr != nil {
		metrics.RecordScan(string(kind), string(scan.StatusFailed), elapsed)
		log.WithError(classifyErr).Warn("scan classification failed")
		record.Status = scan.StatusFailed
		record.Error = "classification failed"
		record.Findings = []string{}
		if _, err := s.store.CreateScan(ctx, record); err != nil {
			log.WithError(err).Error("store failed scan")
		}
		return scan.Scan{}, apperrors.Upstream("image classification failed", classifyErr)
	}

	res = normalize(kind, res)
	metrics.RecordScan(string(kind), string(scan.StatusCompleted), elapsed)
	record.Status = scan.StatusCompleted
	record.Label = res.Label
	record.Confidence = res.Confidence
	record.Findings = res.Findings
	record.Model = res.Model

	saved, err := s.store.CreateScan(ctx, record)
	if err != nil {
		return scan.Scan{}, storage.AsServiceError(err, "scan", "")
	}
	log.WithField("label", saved.Label).Info("scan completed")
	return saved, nil
}

// List returns a pet's scans, newest first.
func (s *Service) List(ctx context.Context, actor user.User, petID string) ([]scan.Scan, error) {
	if _, err := s.pets.Authorize(ctx, actor, petID, pets.AccessCare); err != nil {
		return nil, err
	}
	items, err := s.store.ListScans(ctx, petID)
	if err != nil {
		return nil, storage.AsServiceError(err, "scan", "")
	}
	return items, nil
}

// Get returns one scan if the caller may see its pet.
func (s *Service) Get(ctx context.Context, actor user.User, id string) (scan.Scan, error) {
	sc, err := s.store.GetScan(ctx, id)
	if err != nil {
		return scan.Scan{}, storage.AsServiceError(err, "scan", id)
	}
	if _, err := s.pets.Authorize(ctx, actor, sc.PetID, pets.AccessCare); err != nil {
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return scan.Scan{}, apperrors.NotFound("scan", id)
		}
		return scan.Scan{}, err
	}
	return sc, nil
}
