package profile

import (
	"bytes"
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthshield/backoffice/internal/platform/apperr"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
)

// FieldExtractor reads named test results off a lab report.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, data []byte, mimeType string) (map[string]string, error)
}

type Service struct {
	repo      Repository
	extractor FieldExtractor
	blobs     blobstore.Store
	logger    zerolog.Logger
}

func NewService(repo Repository, extractor FieldExtractor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, extractor: extractor, logger: logger}
}

// SetBlobStore enables archival of uploaded lab reports.
func (s *Service) SetBlobStore(b blobstore.Store) { s.blobs = b }

// Snapshot assembles everything plan generation needs for userID. Any absent
// record, including an empty prediction set, is MissingData.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	const op = "profile.snapshot"
	if userID == uuid.Nil {
		return nil, apperr.InvalidInput(op, "user id is required")
	}

	var (
		snap Snapshot
		err  error
	)
	if snap.Profile, err = s.repo.GetProfile(ctx, userID); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if snap.Health, err = s.repo.GetHealth(ctx, userID); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if snap.Lifestyle, err = s.repo.GetLifestyle(ctx, userID); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if snap.Labs, err = s.repo.GetLabs(ctx, userID); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if snap.Risks, err = s.repo.ListConditionRisks(ctx, userID); err != nil {
		return nil, apperr.Persistence(op, err)
	}

	var missing []string
	if snap.Profile == nil {
		missing = append(missing, "profile")
	}
	if snap.Health == nil {
		missing = append(missing, "health information")
	}
	if snap.Lifestyle == nil {
		missing = append(missing, "lifestyle information")
	}
	if snap.Labs == nil {
		missing = append(missing, "lab results")
	}
	if len(snap.Risks) == 0 {
		missing = append(missing, "condition risk predictions")
	}
	if len(missing) > 0 {
		return nil, apperr.MissingData(op, "user data is incomplete: missing "+strings.Join(missing, ", "))
	}
	return &snap, nil
}

// IngestLabReport extracts test results from a report, fills the gaps with
// population defaults and stores the result as the user's lab snapshot.
func (s *Service) IngestLabReport(ctx context.Context, userID uuid.UUID, report *blobstore.Upload) (*LabSnapshot, error) {
	const op = "profile.ingest_lab_report"
	if userID == uuid.Nil {
		return nil, apperr.InvalidInput(op, "user id is required")
	}
	if report == nil || len(report.Data) == 0 {
		return nil, apperr.InvalidInput(op, "lab report file is required")
	}
	mimeType, err := blobstore.DetectContentType(report.FileName, report.ContentType, report.Head())
	if err != nil {
		return nil, apperr.InvalidInput(op, "unsupported file format, upload a JPEG, PNG or PDF file")
	}

	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	life, err := s.repo.GetLifestyle(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	if p == nil || life == nil {
		return nil, apperr.MissingData(op, "profile and lifestyle information are required before uploading lab reports")
	}

	fields, err := s.extractor.ExtractFields(ctx, report.Data, mimeType)
	if err != nil {
		return nil, apperr.ExtractionFailed(op, err)
	}

	labs, applied := BuildLabs(userID, p, fields)
	if err := s.repo.UpsertLabs(ctx, labs); err != nil {
		return nil, apperr.Persistence(op, err)
	}
	s.logger.Info().
		Str("user_id", userID.String()).
		Int("fields_extracted", len(fields)).
		Int("fields_applied", applied).
		Msg("lab snapshot stored")

	s.archive(ctx, userID, report, mimeType)
	return labs, nil
}

func (s *Service) archive(ctx context.Context, userID uuid.UUID, report *blobstore.Upload, mimeType string) {
	if s.blobs == nil {
		return
	}
	meta, err := s.blobs.Put(ctx, blobstore.Metadata{
		UserID:      userID.String(),
		Kind:        blobstore.KindLabReport,
		FileName:    report.FileName,
		ContentType: mimeType,
	}, bytes.NewReader(report.Data))
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("lab report archival failed")
		return
	}
	s.logger.Debug().Str("key", meta.Key).Msg("lab report archived")
}
