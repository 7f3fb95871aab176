package entity

import (
	"strings"
	"time"
)

// VerificationStatus is the review state of a seller verification request.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Active reports whether the status blocks a new submission.
func (s VerificationStatus) Active() bool {
	return s == VerificationPending || s == VerificationApproved
}

// verificationTransitions lists every allowed review move. Approved and
// rejected are final; a rejected user submits a new request instead.
var verificationTransitions = map[VerificationStatus][]VerificationStatus{
	VerificationPending: {VerificationApproved, VerificationRejected},
}

// CanTransition reports whether a review may move from one status to another.
func (s VerificationStatus) CanTransition(to VerificationStatus) bool {
	for _, next := range verificationTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IDType names the government ID presented with a verification request.
type IDType string

// SellerVerification is a request by a user to become a verified seller.
type SellerVerification struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	FullName         string             `json:"full_name"`
	Address          string             `json:"address"`
	Phone            string             `json:"phone"`
	IDType           IDType             `json:"id_type"`
	IDNumber         string             `json:"id_number"`
	IDPhoto          string             `json:"id_photo,omitempty"`
	SelfieWithID     string             `json:"selfie_with_id,omitempty"`
	ProofOfOwnership string             `json:"proof_of_ownership,omitempty"`
	Status           VerificationStatus `json:"status"`
	AdminNotes       string             `json:"admin_notes,omitempty"`
	RejectionReason  string             `json:"rejection_reason,omitempty"`
	SubmittedAt      time.Time          `json:"submitted_at"`
	ReviewedAt       *time.Time         `json:"reviewed_at,omitempty"`
	ReviewerID       string             `json:"reviewer_id,omitempty"`
}

// Validate checks the personal fields every request must carry.
func (v *SellerVerification) Validate() error {
	required := []struct{ field, value string }{
		{"full_name", v.FullName},
		{"address", v.Address},
		{"phone", v.Phone},
		{"id_type", string(v.IDType)},
		{"id_number", v.IDNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, "is required")
		}
	}
	return nil
}

// Review moves a pending request to approved or rejected.
func (v *SellerVerification) Review(to VerificationStatus, reviewerID, note string, now time.Time) error {
	if !v.Status.CanTransition(to) {
		return &TransitionError{Entity: "verification", From: string(v.Status), To: string(to)}
	}
	v.Status = to
	v.ReviewerID = reviewerID
	v.ReviewedAt = &now
	v.AdminNotes = note
	if to == VerificationRejected {
		v.RejectionReason = note
	}
	return nil
}
