package service

import (
	"context"
	"testing"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func application() VerificationInput {
	return VerificationInput{
		FullName:     "Juan Dela Cruz",
		Address:      "123 Rizal St, Manila",
		Phone:        "09171234567",
		IDType:       "passport",
		IDNumber:     "P1234567",
		IDPhoto:      "data:image/png;base64,iVBORw0KGgo=",
		SelfieWithID: "https://img.example.com/selfie.jpg",
	}
}

func TestVerificationService_ApprovePromotesUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.buyer(t, "juan@example.com")

	v, err := f.verifications.Submit(ctx, user.ID, application())
	require.NoError(t, err)
	assert.Equal(t, entity.VerificationPending, v.Status)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", v.IDPhoto)

	_, err = f.verifications.Submit(ctx, user.ID, application())
	assert.ErrorIs(t, err, entity.ErrActiveVerificationExists)

	reviewed, err := f.verifications.UpdateStatus(ctx, v.ID, "admin-1", entity.VerificationApproved, "")
	require.NoError(t, err)
	assert.Equal(t, entity.VerificationApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedAt)
	assert.Equal(t, "admin-1", reviewed.ReviewerID)

	promoted, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleSeller, promoted.Role)
	assert.True(t, promoted.IsVerified)
	assert.True(t, promoted.CanSell())

	_, err = f.verifications.UpdateStatus(ctx, v.ID, "admin-2", entity.VerificationRejected, "too late")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = f.verifications.Submit(ctx, user.ID, application())
	assert.ErrorIs(t, err, entity.ErrActiveVerificationExists)

	history, err := f.store.Events().LoadEvents(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.EventVerificationReviewed, history[1].EventType)
	assert.Contains(t, f.pub.topics, messaging.TopicVerificationsReviewed)
}

func TestVerificationService_RejectThenResubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.buyer(t, "juan@example.com")

	v, err := f.verifications.Submit(ctx, user.ID, application())
	require.NoError(t, err)

	_, err = f.verifications.UpdateStatus(ctx, v.ID, "admin-1", entity.VerificationRejected, "")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "note", verr.Field)

	rejected, err := f.verifications.UpdateStatus(ctx, v.ID, "admin-1", entity.VerificationRejected, "blurry ID photo")
	require.NoError(t, err)
	assert.Equal(t, "blurry ID photo", rejected.RejectionReason)

	u, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleBuyer, u.Role)
	assert.False(t, u.IsVerified)

	again, err := f.verifications.Submit(ctx, user.ID, application())
	require.NoError(t, err)
	assert.NotEqual(t, v.ID, again.ID)

	latest, err := f.verifications.MyStatus(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, again.ID, latest.ID)

	pending, err := f.verifications.ListAll(ctx, entity.VerificationPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, again.ID, pending[0].ID)

	all, err := f.verifications.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestVerificationService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.buyer(t, "juan@example.com")

	tests := []struct {
		field  string
		mutate func(*VerificationInput)
	}{
		{"full_name", func(in *VerificationInput) { in.FullName = " " }},
		{"address", func(in *VerificationInput) { in.Address = "" }},
		{"phone", func(in *VerificationInput) { in.Phone = "" }},
		{"id_type", func(in *VerificationInput) { in.IDType = "" }},
		{"id_number", func(in *VerificationInput) { in.IDNumber = "" }},
		{"id_photo", func(in *VerificationInput) { in.IDPhoto = "javascript:alert(1)" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := application()
			tt.mutate(&in)
			_, err := f.verifications.Submit(ctx, user.ID, in)
			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := f.verifications.MyStatus(ctx, user.ID)
	assert.ErrorIs(t, err, entity.ErrVerificationNotFound)

	_, err = f.verifications.UpdateStatus(ctx, "missing", "admin-1", entity.VerificationApproved, "")
	assert.ErrorIs(t, err, entity.ErrVerificationNotFound)

	_, err = f.verifications.UpdateStatus(ctx, "missing", "admin-1", entity.VerificationPending, "")
	var verr *entity.ValidationError
	assert.ErrorAs(t, err, &verr)
}
