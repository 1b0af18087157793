package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attendly/attendly/internal/domain/repository"
	"github.com/attendly/attendly/internal/portal"
)

// PortalStore persists per-user portal sessions: one JSONB cookie jar per
// (user, day) and the credentials used for automatic reconnects.
type PortalStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPortalStore(pool *pgxpool.Pool) *PortalStore {
	return &PortalStore{pool: pool, now: time.Now}
}

func (s *PortalStore) today() time.Time {
	return s.now().UTC().Truncate(24 * time.Hour)
}

func (s *PortalStore) JarForToday(ctx context.Context, userID string) (portal.Jar, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT cookie_data
		FROM portal_cookies
		WHERE user_id = $1 AND date = $2
	`, userID, s.today()).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var jar portal.Jar
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, err
	}
	return jar, nil
}

func (s *PortalStore) SaveJarForToday(ctx context.Context, userID string, jar portal.Jar) error {
	data, err := json.Marshal(jar)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO portal_cookies (id, user_id, date, cookie_data)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date) DO UPDATE SET cookie_data = EXCLUDED.cookie_data
	`, uuid.NewString(), userID, s.today(), data)
	return err
}

func (s *PortalStore) ClearJarForToday(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM portal_cookies
		WHERE user_id = $1 AND date = $2
	`, userID, s.today())
	return err
}

func (s *PortalStore) Credentials(ctx context.Context, userID string) (string, string, bool, error) {
	var email, password string
	err := s.pool.QueryRow(ctx, `
		SELECT email, password
		FROM portal_credentials
		WHERE user_id = $1
	`, userID).Scan(&email, &password)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	return email, password, true, nil
}

func (s *PortalStore) SaveCredentials(ctx context.Context, userID, email, password string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO portal_credentials (id, user_id, email, password)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, password = EXCLUDED.password
	`, uuid.NewString(), userID, email, password)
	return err
}

var _ portal.SessionStore = (*PortalStore)(nil)

// IntraJarRepository stores the single shared per-day jar for the intra sign
// flow; there is at most one row per calendar day.
type IntraJarRepository struct {
	pool *pgxpool.Pool
}

func NewIntraJarRepository(pool *pgxpool.Pool) *IntraJarRepository {
	return &IntraJarRepository{pool: pool}
}

func (r *IntraJarRepository) JarForDate(ctx context.Context, date time.Time) (portal.Jar, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `
		SELECT cookie_data
		FROM intra_cookies
		WHERE date = $1
	`, date.UTC().Truncate(24*time.Hour)).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var jar portal.Jar
	if err := json.Unmarshal(data, &jar); err != nil {
		return nil, err
	}
	return jar, nil
}

func (r *IntraJarRepository) SaveJarForDate(ctx context.Context, date time.Time, jar portal.Jar) error {
	data, err := json.Marshal(jar)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO intra_cookies (id, date, cookie_data)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET cookie_data = EXCLUDED.cookie_data
	`, uuid.NewString(), date.UTC().Truncate(24*time.Hour), data)
	return err
}

func (r *IntraJarRepository) ExistsForDate(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM intra_cookies WHERE date = $1)
	`, date.UTC().Truncate(24*time.Hour)).Scan(&exists)
	return exists, err
}

var _ repository.IntraJarRepository = (*IntraJarRepository)(nil)
