package application

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/domain/entity"
	repo "github.com/attendly/attendly/internal/domain/repository"
	"github.com/attendly/attendly/internal/portal"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*entity.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(_ context.Context, ids []string) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetAll(_ context.Context) ([]entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) UpdateIntraJWT(_ context.Context, id, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.IntraJWT = &token
	u.IntraJWTExpiresAt = &expiresAt
	return nil
}

func (r *fakeUserRepo) DeleteAccount(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

// fakeSignatureRepo is an in-memory SignatureRepository.
type fakeSignatureRepo struct {
	mu   sync.Mutex
	next int
	sigs map[string][]entity.UserSignature
}

func newFakeSignatureRepo() *fakeSignatureRepo {
	return &fakeSignatureRepo{sigs: make(map[string][]entity.UserSignature)}
}

func (r *fakeSignatureRepo) Add(_ context.Context, userID, signatureData string) (*entity.UserSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	sig := entity.UserSignature{
		ID:            "sig-" + strconv.Itoa(r.next),
		UserID:        userID,
		SignatureData: signatureData,
		CreatedAt:     time.Now(),
	}
	r.sigs[userID] = append(r.sigs[userID], sig)
	return &sig, nil
}

func (r *fakeSignatureRepo) ListByUser(_ context.Context, userID string) ([]entity.UserSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.UserSignature(nil), r.sigs[userID]...), nil
}

func (r *fakeSignatureRepo) Delete(_ context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sigs[userID]
	for i, sig := range list {
		if sig.ID == id {
			r.sigs[userID] = append(list[:i], list[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// fakeIntraJarRepo stores shared per-day jars keyed by calendar day.
type fakeIntraJarRepo struct {
	mu   sync.Mutex
	jars map[string]portal.Jar
}

func newFakeIntraJarRepo() *fakeIntraJarRepo {
	return &fakeIntraJarRepo{jars: make(map[string]portal.Jar)}
}

func dayKey(date time.Time) string { return date.UTC().Format("2006-01-02") }

func (r *fakeIntraJarRepo) JarForDate(_ context.Context, date time.Time) (portal.Jar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jars[dayKey(date)], nil
}

func (r *fakeIntraJarRepo) SaveJarForDate(_ context.Context, date time.Time, jar portal.Jar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jars[dayKey(date)] = jar
	return nil
}

func (r *fakeIntraJarRepo) ExistsForDate(_ context.Context, date time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.jars[dayKey(date)]
	return ok, nil
}

// fakePortalStore is an in-memory portal.SessionStore for wiring a real
// portal client against a test server.
type fakePortalStore struct {
	mu    sync.Mutex
	jars  map[string]portal.Jar
	creds map[string][2]string
}

func newFakePortalStore() *fakePortalStore {
	return &fakePortalStore{jars: make(map[string]portal.Jar), creds: make(map[string][2]string)}
}

func (s *fakePortalStore) JarForToday(_ context.Context, userID string) (portal.Jar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jars[userID], nil
}

func (s *fakePortalStore) SaveJarForToday(_ context.Context, userID string, jar portal.Jar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jars[userID] = jar
	return nil
}

func (s *fakePortalStore) ClearJarForToday(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jars, userID)
	return nil
}

func (s *fakePortalStore) Credentials(_ context.Context, userID string) (string, string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.creds[userID]
	if !ok {
		return "", "", false, nil
	}
	return c[0], c[1], true, nil
}

func (s *fakePortalStore) SaveCredentials(_ context.Context, userID, email, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[userID] = [2]string{email, password}
	return nil
}
