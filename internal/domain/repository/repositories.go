package repository

import (
	"context"
	"errors"
	"time"

	"github.com/attendly/attendly/internal/domain/entity"
	"github.com/attendly/attendly/internal/portal"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// UserRepository defines user-account persistence operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]entity.User, error)
	GetAll(ctx context.Context) ([]entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	UpdateIntraJWT(ctx context.Context, id, token string, expiresAt time.Time) error
	// DeleteAccount removes the user row together with all owned state:
	// signatures, portal credentials and stored cookie jars.
	DeleteAccount(ctx context.Context, id string) (bool, error)
}

// SignatureRepository manages a user's signature collection.
type SignatureRepository interface {
	Add(ctx context.Context, userID, signatureData string) (*entity.UserSignature, error)
	ListByUser(ctx context.Context, userID string) ([]entity.UserSignature, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// IntraJarRepository stores the single shared per-day cookie jar used by the
// intra sign flow.
type IntraJarRepository interface {
	JarForDate(ctx context.Context, date time.Time) (portal.Jar, error)
	SaveJarForDate(ctx context.Context, date time.Time, jar portal.Jar) error
	ExistsForDate(ctx context.Context, date time.Time) (bool, error)
}
