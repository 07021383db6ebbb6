package claims

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthshield/backoffice/internal/platform/apperr"
	"github.com/healthshield/backoffice/internal/platform/blobstore"
)

// TextExtractor reads the text off a bill document.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Classifier answers a free-text prompt.
type Classifier interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Submission is one claim as received from the claimant.
type Submission struct {
	UserID          uuid.UUID
	TreatmentReason string
	Bill            *blobstore.Upload
}

var errEmptyExtraction = errors.New("extraction returned no text")

type Service struct {
	repo       Repository
	extractor  TextExtractor
	classifier Classifier
	blobs      blobstore.Store
	logger     zerolog.Logger
}

func NewService(repo Repository, extractor TextExtractor, classifier Classifier, logger zerolog.Logger) *Service {
	return &Service{repo: repo, extractor: extractor, classifier: classifier, logger: logger}
}

// SetBlobStore enables archival of adjudicated bills.
func (s *Service) SetBlobStore(b blobstore.Store) { s.blobs = b }

// Adjudicate validates a submission, extracts the bill text, reads the
// claimant's policy context, classifies the claim and records the decision.
// Only the final step writes; any earlier failure leaves no claim behind.
func (s *Service) Adjudicate(ctx context.Context, sub Submission) (*ClaimStatus, error) {
	const op = "claims.adjudicate"
	log := s.logger.With().Str("user_id", sub.UserID.String()).Logger()

	// Submitted
	if sub.UserID == uuid.Nil {
		return nil, apperr.InvalidInput(op, "user id is required")
	}
	if strings.TrimSpace(sub.TreatmentReason) == "" {
		return nil, apperr.InvalidInput(op, "reason for treatment is required")
	}
	if sub.Bill == nil || len(sub.Bill.Data) == 0 {
		return nil, apperr.InvalidInput(op, "bill file is required")
	}
	mimeType, err := billContentType(sub.Bill.FileName)
	if err != nil {
		return nil, apperr.InvalidInput(op, err.Error())
	}

	// TextExtracted
	billText, err := s.extractor.ExtractText(ctx, sub.Bill.Data, mimeType)
	if err == nil && strings.TrimSpace(billText) == "" {
		err = errEmptyExtraction
	}
	if err != nil {
		log.Warn().Err(err).Str("bill_name", sub.Bill.FileName).Msg("claim: bill extraction failed")
		sentry.CaptureException(err)
		return nil, apperr.ExtractionFailed("claims.extract", err)
	}
	log.Debug().Int("chars", len(billText)).Msg("claim: bill text extracted")

	// ContextFetched
	pc, err := s.repo.GetPolicyContext(ctx, sub.UserID)
	if err != nil {
		return nil, apperr.Persistence("claims.context", err)
	}
	if !pc.UserExists {
		log.Warn().Msg("claim: unknown user")
		return nil, apperr.InvalidInput(op, "user does not exist")
	}
	if !pc.HasPlan {
		log.Info().Msg("claim: no plan on record, classifying without policy terms")
	}

	// Classified
	resp, err := s.classifier.GenerateText(ctx, BuildPrompt(billText, sub.TreatmentReason, pc))
	if err != nil {
		log.Warn().Err(err).Msg("claim: classifier unavailable")
		sentry.CaptureException(err)
		return nil, apperr.ClassificationUnparseable("claims.classify", err)
	}
	verdict, err := ParseDecision(resp)
	if err != nil {
		log.Warn().Str("response", truncate(resp, 200)).Msg("claim: classifier response had no decision")
		return nil, apperr.ClassificationUnparseable("claims.classify", err)
	}

	// Persisted
	claim := &ClaimStatus{
		UserID:   sub.UserID,
		Decision: verdict.Decision,
		Reason:   verdict.Reason,
		BillName: sub.Bill.FileName,
	}
	if err := s.repo.Create(ctx, claim); err != nil {
		log.Error().Err(err).Msg("claim: persist failed")
		return nil, apperr.Persistence(op, err)
	}
	log.Info().
		Int64("claim_id", claim.ID).
		Str("decision", string(claim.Decision)).
		Msg("claim adjudicated")

	s.archive(ctx, sub, mimeType)
	return claim, nil
}

// ListClaims returns a page of the user's claim history.
func (s *Service) ListClaims(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ClaimStatus, int, error) {
	const op = "claims.list"
	if userID == uuid.Nil {
		return nil, 0, apperr.InvalidInput(op, "user id is required")
	}
	items, total, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Persistence(op, err)
	}
	return items, total, nil
}

func (s *Service) archive(ctx context.Context, sub Submission, mimeType string) {
	if s.blobs == nil {
		return
	}
	meta, err := s.blobs.Put(ctx, blobstore.Metadata{
		UserID:      sub.UserID.String(),
		Kind:        blobstore.KindBill,
		FileName:    sub.Bill.FileName,
		ContentType: mimeType,
	}, bytes.NewReader(sub.Bill.Data))
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", sub.UserID.String()).Msg("bill archival failed")
		return
	}
	s.logger.Debug().Str("key", meta.Key).Msg("bill archived")
}

// billContentType derives the MIME type of a bill from its extension.
func billContentType(fileName string) (string, error) {
	if ct, ok := blobstore.ContentTypeByExtension(fileName); ok {
		return ct, nil
	}
	return "", errors.New("unsupported file format, upload a JPEG, PNG or PDF file")
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
