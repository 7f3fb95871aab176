package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/repository"
)

const verificationColumns = `id, user_id, full_name, address, phone, id_type, id_number, id_photo, selfie_with_id,
	proof_of_ownership, status, admin_notes, rejection_reason, submitted_at, reviewed_at, reviewer_id`

type verificationRepository struct {
	db *sql.DB
}

// NewVerificationRepository creates a new VerificationRepository backed by Postgres.
func NewVerificationRepository(db *sql.DB) repository.VerificationRepository {
	return &verificationRepository{db: db}
}

// Create relies on the partial unique index over active requests, so two
// concurrent submissions cannot both succeed.
func (r *verificationRepository) Create(ctx context.Context, v *entity.SellerVerification) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO verifications ("+verificationColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)",
		v.ID, v.UserID, v.FullName, v.Address, v.Phone, string(v.IDType), v.IDNumber, v.IDPhoto, v.SelfieWithID,
		v.ProofOfOwnership, string(v.Status), v.AdminNotes, v.RejectionReason, v.SubmittedAt, nullTime(v.ReviewedAt), v.ReviewerID,
	)
	if isUniqueViolation(err, "verifications_one_active_idx") {
		return entity.ErrActiveVerificationExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert verification: %w", err)
	}
	return nil
}

func (r *verificationRepository) FindByID(ctx context.Context, id string) (*entity.SellerVerification, error) {
	v, err := scanVerification(r.db.QueryRowContext(ctx, "SELECT "+verificationColumns+" FROM verifications WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrVerificationNotFound
	}
	return v, err
}

func (r *verificationRepository) FindLatestByUser(ctx context.Context, userID string) (*entity.SellerVerification, error) {
	v, err := scanVerification(r.db.QueryRowContext(ctx,
		"SELECT "+verificationColumns+" FROM verifications WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT 1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrVerificationNotFound
	}
	return v, err
}

func (r *verificationRepository) FindAll(ctx context.Context, status entity.VerificationStatus) ([]entity.SellerVerification, error) {
	query := "SELECT " + verificationColumns + " FROM verifications"
	var args []any
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY submitted_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer rows.Close()

	out := []entity.SellerVerification{}
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *verificationRepository) Review(ctx context.Context, v *entity.SellerVerification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE verifications SET status = $2, admin_notes = $3, rejection_reason = $4, reviewed_at = $5, reviewer_id = $6
		WHERE id = $1 AND status = 'pending'`,
		v.ID, string(v.Status), v.AdminNotes, v.RejectionReason, nullTime(v.ReviewedAt), v.ReviewerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM verifications WHERE id = $1)", v.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check verification: %w", err)
		}
		if !exists {
			return entity.ErrVerificationNotFound
		}
		return entity.ErrConcurrentModification
	}

	if v.Status == entity.VerificationApproved {
		res, err := tx.ExecContext(ctx, `
			UPDATE users SET role = CASE WHEN role = 'buyer' THEN 'seller' ELSE role END, is_verified = TRUE, updated_at = $2
			WHERE id = $1`,
			v.UserID, v.ReviewedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to promote user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return entity.ErrUserNotFound
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func scanVerification(row rowScanner) (*entity.SellerVerification, error) {
	var (
		v          entity.SellerVerification
		reviewedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.UserID, &v.FullName, &v.Address, &v.Phone, &v.IDType, &v.IDNumber, &v.IDPhoto,
		&v.SelfieWithID, &v.ProofOfOwnership, &v.Status, &v.AdminNotes, &v.RejectionReason, &v.SubmittedAt,
		&reviewedAt, &v.ReviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan verification: %w", err)
	}
	v.ReviewedAt = timePtr(reviewedAt)
	return &v, nil
}
