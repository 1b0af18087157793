package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attendly/attendly/internal/domain/entity"
	"github.com/attendly/attendly/internal/domain/repository"
)

type SignatureRepository struct {
	pool *pgxpool.Pool
}

func NewSignatureRepository(pool *pgxpool.Pool) *SignatureRepository {
	return &SignatureRepository{pool: pool}
}

func (r *SignatureRepository) Add(ctx context.Context, userID, signatureData string) (*entity.UserSignature, error) {
	sig := &entity.UserSignature{
		ID:            uuid.NewString(),
		UserID:        userID,
		SignatureData: signatureData,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_signatures (id, user_id, signature_data, created_at)
		VALUES ($1, $2, $3, $4)
	`, sig.ID, sig.UserID, sig.SignatureData, sig.CreatedAt)
	if err != nil {
		return nil, err
	}
	return sig, nil
}

func (r *SignatureRepository) ListByUser(ctx context.Context, userID string) ([]entity.UserSignature, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, signature_data, created_at
		FROM user_signatures
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sigs []entity.UserSignature
	for rows.Next() {
		var s entity.UserSignature
		if err := rows.Scan(&s.ID, &s.UserID, &s.SignatureData, &s.CreatedAt); err != nil {
			return nil, err
		}
		sigs = append(sigs, s)
	}
	return sigs, rows.Err()
}

func (r *SignatureRepository) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM user_signatures
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

var _ repository.SignatureRepository = (*SignatureRepository)(nil)
