package memory

import (
	"context"
	"sort"

	"github.com/egannguyen/secondhand-market/internal/entity"
)

type verificationRepository struct {
	s *Store
}

func (r *verificationRepository) Create(ctx context.Context, v *entity.SellerVerification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.verifications {
		if existing.UserID == v.UserID && existing.Status.Active() {
			return entity.ErrActiveVerificationExists
		}
	}
	r.s.verifications[v.ID] = *v
	return nil
}

func (r *verificationRepository) FindByID(ctx context.Context, id string) (*entity.SellerVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.verifications[id]
	if !ok {
		return nil, entity.ErrVerificationNotFound
	}
	return &v, nil
}

func (r *verificationRepository) FindLatestByUser(ctx context.Context, userID string) (*entity.SellerVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var latest *entity.SellerVerification
	for _, v := range r.s.verifications {
		if v.UserID != userID {
			continue
		}
		if latest == nil || v.SubmittedAt.After(latest.SubmittedAt) {
			v := v
			latest = &v
		}
	}
	if latest == nil {
		return nil, entity.ErrVerificationNotFound
	}
	return latest, nil
}

func (r *verificationRepository) FindAll(ctx context.Context, status entity.VerificationStatus) ([]entity.SellerVerification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]entity.SellerVerification, 0)
	for _, v := range r.s.verifications {
		if status == "" || v.Status == status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (r *verificationRepository) Review(ctx context.Context, v *entity.SellerVerification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.verifications[v.ID]
	if !ok {
		return entity.ErrVerificationNotFound
	}
	if current.Status != entity.VerificationPending {
		return entity.ErrConcurrentModification
	}
	if v.Status == entity.VerificationApproved {
		u, ok := r.s.users[v.UserID]
		if !ok {
			return entity.ErrUserNotFound
		}
		if u.Role == entity.RoleBuyer {
			u.Role = entity.RoleSeller
		}
		u.IsVerified = true
		if v.ReviewedAt != nil {
			u.UpdatedAt = *v.ReviewedAt
		}
		r.s.users[u.ID] = u
	}
	r.s.verifications[v.ID] = *v
	return nil
}
