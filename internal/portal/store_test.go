package portal

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// memStore is an in-memory SessionStore for tests.
type memStore struct {
	mu        sync.Mutex
	jars      map[string]Jar
	emails    map[string]string
	passwords map[string]string
	clears    int
}

func newMemStore() *memStore {
	return &memStore{
		jars:      make(map[string]Jar),
		emails:    make(map[string]string),
		passwords: make(map[string]string),
	}
}

func (m *memStore) JarForToday(_ context.Context, userID string) (Jar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jars[userID], nil
}

func (m *memStore) SaveJarForToday(_ context.Context, userID string, jar Jar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jars[userID] = jar
	return nil
}

func (m *memStore) ClearJarForToday(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jars, userID)
	m.clears++
	return nil
}

func (m *memStore) Credentials(_ context.Context, userID string) (string, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email, ok := m.emails[userID]
	if !ok {
		return "", "", false, nil
	}
	return email, m.passwords[userID], true, nil
}

func (m *memStore) SaveCredentials(_ context.Context, userID, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails[userID] = email
	m.passwords[userID] = password
	return nil
}

func (m *memStore) clearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

func testClient(t *testing.T, baseURL string, store SessionStore, now func() time.Time) *Client {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(Config{
		BaseURL:     baseURL,
		Store:       store,
		Logger:      logger,
		Timeout:     5 * time.Second,
		PlanningTTL: time.Minute,
		Now:         now,
	})
}

// sessionJar is a jar with one long-enough session cookie and no expiry.
func sessionJar() Jar {
	return Jar{{Name: "_session_id", Value: "abcdefghijklmnopqrstuvwxyz", Domain: "portal.test", Path: "/"}}
}
