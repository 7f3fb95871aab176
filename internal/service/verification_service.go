package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/media"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
)

// VerificationInput is a seller application. Image fields hold data URIs
// or already hosted URLs.
type VerificationInput struct {
	FullName         string
	Address          string
	Phone            string
	IDType           entity.IDType
	IDNumber         string
	IDPhoto          string
	SelfieWithID     string
	ProofOfOwnership string
}

// VerificationService runs the seller verification workflow.
type VerificationService struct {
	verifications repository.VerificationRepository
	users         repository.UserRepository
	eventStore    repository.EventStore
	uploader      media.Uploader
	publisher     messaging.Publisher
	now           func() time.Time
}

func NewVerificationService(
	verifications repository.VerificationRepository,
	users repository.UserRepository,
	eventStore repository.EventStore,
	uploader media.Uploader,
	publisher messaging.Publisher,
) *VerificationService {
	return &VerificationService{
		verifications: verifications,
		users:         users,
		eventStore:    eventStore,
		uploader:      uploader,
		publisher:     publisher,
		now:           nowUTC,
	}
}

// Submit files a new request. A user may hold only one pending or approved
// request at a time.
func (s *VerificationService) Submit(ctx context.Context, userID string, in VerificationInput) (*entity.SellerVerification, error) {
	slog.Info("Service: Submitting verification", "user_id", userID)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CanSell() {
		return nil, entity.ErrActiveVerificationExists
	}

	v := &entity.SellerVerification{
		ID:       uuid.NewString(),
		UserID:   userID,
		FullName: strings.TrimSpace(in.FullName),
		Address:  strings.TrimSpace(in.Address),
		Phone:    strings.TrimSpace(in.Phone),
		IDType:   entity.IDType(strings.TrimSpace(string(in.IDType))),
		IDNumber: strings.TrimSpace(in.IDNumber),
		Status:   entity.VerificationPending,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	images := []struct {
		field string
		src   string
		dst   *string
	}{
		{"id_photo", in.IDPhoto, &v.IDPhoto},
		{"selfie_with_id", in.SelfieWithID, &v.SelfieWithID},
		{"proof_of_ownership", in.ProofOfOwnership, &v.ProofOfOwnership},
	}
	for _, img := range images {
		if !media.Acceptable(img.src) {
			return nil, entity.NewValidationError(img.field, "must be an image data URI or URL")
		}
	}
	folder := "verifications/" + userID
	for _, img := range images {
		if img.src == "" {
			continue
		}
		url, err := s.uploader.Upload(ctx, folder, img.src)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", img.field, err)
		}
		*img.dst = url
	}

	v.SubmittedAt = s.now()
	if err := s.verifications.Create(ctx, v); err != nil {
		return nil, err
	}

	event := entity.VerificationSubmitted{VerificationID: v.ID, UserID: userID, SubmittedAt: v.SubmittedAt}
	s.record(ctx, v.ID, 0, event)
	messaging.PublishEvents(ctx, s.publisher, userID, event)
	return v, nil
}

// MyStatus returns the user's most recent request.
func (s *VerificationService) MyStatus(ctx context.Context, userID string) (*entity.SellerVerification, error) {
	return s.verifications.FindLatestByUser(ctx, userID)
}

// ListAll returns requests, optionally narrowed to one status.
func (s *VerificationService) ListAll(ctx context.Context, status entity.VerificationStatus) ([]entity.SellerVerification, error) {
	switch status {
	case "", entity.VerificationPending, entity.VerificationApproved, entity.VerificationRejected:
	default:
		return nil, entity.NewValidationError("status", "must be pending, approved or rejected")
	}
	list, err := s.verifications.FindAll(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return list, nil
}

// UpdateStatus approves or rejects a pending request. Approval promotes the
// applicant to a verified seller in the same unit of work.
func (s *VerificationService) UpdateStatus(ctx context.Context, id, reviewerID string, status entity.VerificationStatus, note string) (*entity.SellerVerification, error) {
	slog.Info("Service: Reviewing verification", "verification_id", id, "status", status, "reviewer_id", reviewerID)

	note = strings.TrimSpace(note)
	switch status {
	case entity.VerificationApproved:
	case entity.VerificationRejected:
		if note == "" {
			return nil, entity.NewValidationError("note", "is required when rejecting")
		}
	default:
		return nil, entity.NewValidationError("status", "must be approved or rejected")
	}

	v, err := s.verifications.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := v.Review(status, reviewerID, note, s.now()); err != nil {
		return nil, err
	}
	if err := s.verifications.Review(ctx, v); err != nil {
		return nil, fmt.Errorf("failed to store review: %w", err)
	}

	event := entity.VerificationReviewed{
		VerificationID: v.ID,
		UserID:         v.UserID,
		ReviewerID:     reviewerID,
		Status:         status,
		Note:           note,
		ReviewedAt:     *v.ReviewedAt,
	}
	s.record(ctx, v.ID, 1, event)
	messaging.PublishEvents(ctx, s.publisher, v.UserID, event)
	return v, nil
}

// record appends to the request's audit stream. The request row is already
// committed, so a failure here is logged only.
func (s *VerificationService) record(ctx context.Context, id string, expectedVersion int, event entity.Event) {
	if err := s.eventStore.SaveEvents(ctx, id, entity.StreamVerification, expectedVersion, []entity.Event{event}); err != nil {
		slog.Error("Failed to append verification event", "verification_id", id, "event_type", event.EventType(), "err", err)
	}
}
