package application

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly/internal/domain/entity"
	"github.com/attendly/attendly/internal/portal"
)

func sharedJar() portal.Jar {
	return portal.Jar{{Name: "intra_session", Value: "shared-cookie-value"}}
}

func tokenUser(id, username, token string) *entity.User {
	exp := time.Now().Add(24 * time.Hour)
	return &entity.User{ID: id, Username: username, IntraJWT: &token, IntraJWTExpiresAt: &exp}
}

func TestSignOutcomeMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Succès", SignSuccess.Message())
	assert.Equal(t, "Token expiré", SignTokenExpired.Message())
	assert.Equal(t, "Token non trouvé", SignTokenNotFound.Message())
	assert.Equal(t, "Déjà signé", SignAlreadySigned.Message())
	assert.Equal(t, "Service indisponible", SignServiceUnavailable.Message())
	assert.Equal(t, "Erreur inconnue", SignUnknownError.Message())
}

func TestSignFailsWithoutSharedJar(t *testing.T) {
	t.Parallel()

	svc := NewSignService(newFakeUserRepo(), newFakeIntraJarRepo(), nil, testLogger(), time.Second)
	_, err := svc.Sign(context.Background(), SignInput{UserIDs: []string{"u1"}, URL: "https://intra.example/e/1"})
	assert.ErrorIs(t, err, ErrNoSharedJar)
}

func TestSignFailsOnUnknownUser(t *testing.T) {
	t.Parallel()

	jars := newFakeIntraJarRepo()
	require.NoError(t, jars.SaveJarForDate(context.Background(), time.Now(), sharedJar()))

	users := newFakeUserRepo(tokenUser("u1", "alice", "tok"))
	svc := NewSignService(users, jars, nil, testLogger(), time.Second)

	_, err := svc.Sign(context.Background(), SignInput{UserIDs: []string{"u1", "ghost"}, URL: "https://intra.example/e/1"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSignClassifiesUpstreamResponses(t *testing.T) {
	t.Parallel()

	// The fake intranet reads the user token from the replayed Cookie header
	// and answers with a status describing that token's fate.
	statusByToken := map[string]int{
		"tok-ok":      http.StatusOK,
		"tok-expired": http.StatusUnauthorized,
		"tok-signed":  http.StatusForbidden,
		"tok-down":    http.StatusServiceUnavailable,
		"tok-weird":   http.StatusInternalServerError,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		assert.Contains(t, cookie, "intra_session=shared-cookie-value")
		var token string
		for _, part := range strings.Split(cookie, "; ") {
			if strings.HasPrefix(part, "user=") {
				token = strings.TrimPrefix(part, "user=")
			}
		}
		if token == "tok-redirect" {
			w.Header().Set("Location", "https://auth.intra.example/login")
			w.WriteHeader(http.StatusFound)
			return
		}
		w.WriteHeader(statusByToken[token])
	}))
	defer srv.Close()

	ctx := context.Background()
	jars := newFakeIntraJarRepo()
	require.NoError(t, jars.SaveJarForDate(ctx, time.Now(), sharedJar()))

	expired := time.Now().Add(-time.Hour)
	staleToken := "tok-stale"
	users := newFakeUserRepo(
		tokenUser("u1", "alice", "tok-ok"),
		tokenUser("u2", "bob", "tok-expired"),
		tokenUser("u3", "carol", "tok-signed"),
		tokenUser("u4", "dave", "tok-down"),
		tokenUser("u5", "erin", "tok-weird"),
		tokenUser("u6", "frank", "tok-redirect"),
		&entity.User{ID: "u7", Username: "grace"},
		&entity.User{ID: "u8", Username: "heidi", IntraJWT: &staleToken, IntraJWTExpiresAt: &expired},
	)
	svc := NewSignService(users, jars, nil, testLogger(), 5*time.Second)

	ids := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7", "u8"}
	results, err := svc.Sign(ctx, SignInput{UserIDs: ids, URL: srv.URL + "/events/7/register", InitiatedBy: "alice"})
	require.NoError(t, err)
	require.Len(t, results, len(ids))

	want := map[string]SignOutcome{
		"u1": SignSuccess,
		"u2": SignTokenExpired,
		"u3": SignAlreadySigned,
		"u4": SignServiceUnavailable,
		"u5": SignUnknownError,
		"u6": SignTokenExpired,
		"u7": SignTokenNotFound,
		"u8": SignTokenExpired,
	}
	for i, id := range ids {
		assert.Equal(t, id, results[i].UserID, "results must keep request order")
		assert.Equal(t, want[id], results[i].Response, "outcome for %s", id)
	}
}

func TestSignJarRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewSignService(newFakeUserRepo(), newFakeIntraJarRepo(), nil, testLogger(), time.Second)

	ok, err := svc.HasJarForToday(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, svc.SaveJarForToday(ctx, sharedJar()))
	ok, err = svc.HasJarForToday(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}
