package application

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/attendly/attendly/internal/domain/entity"
	repo "github.com/attendly/attendly/internal/domain/repository"
	"github.com/attendly/attendly/internal/portal"
)

// ErrNoSharedJar means no intranet cookie jar was captured today, so nothing
// can be signed.
var ErrNoSharedJar = errors.New("no cookies found for today")

// SignOutcome classifies one user's intranet sign attempt.
type SignOutcome string

const (
	SignSuccess            SignOutcome = "success"
	SignTokenExpired       SignOutcome = "tokenExpired"
	SignTokenNotFound      SignOutcome = "tokenNotFound"
	SignAlreadySigned      SignOutcome = "alreadySigned"
	SignUnknownError       SignOutcome = "unknownError"
	SignServiceUnavailable SignOutcome = "serviceUnavailable"
)

// Message returns the user-facing summary text for an outcome.
func (o SignOutcome) Message() string {
	switch o {
	case SignSuccess:
		return "Succès"
	case SignTokenExpired:
		return "Token expiré"
	case SignTokenNotFound:
		return "Token non trouvé"
	case SignAlreadySigned:
		return "Déjà signé"
	case SignServiceUnavailable:
		return "Service indisponible"
	default:
		return "Erreur inconnue"
	}
}

// UserSignResult is the per-user outcome of a batch sign run.
type UserSignResult struct {
	UserID   string      `json:"user_id"`
	Response SignOutcome `json:"response"`
}

// SignService replays intranet event registrations for a set of users. All
// users share the same per-day cookie jar; each brings their own intra token.
type SignService struct {
	Users    repo.UserRepository
	Jars     repo.IntraJarRepository
	Notifier *Notifier
	Logger   *logrus.Logger
	http     *http.Client
	now      func() time.Time
}

func NewSignService(users repo.UserRepository, jars repo.IntraJarRepository, notifier *Notifier, logger *logrus.Logger, timeout time.Duration) *SignService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SignService{
		Users:    users,
		Jars:     jars,
		Notifier: notifier,
		Logger:   logger,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		now: time.Now,
	}
}

// HasJarForToday reports whether a shared jar was captured today.
func (s *SignService) HasJarForToday(ctx context.Context) (bool, error) {
	return s.Jars.ExistsForDate(ctx, s.now())
}

// SaveJarForToday stores the shared jar captured by an operator.
func (s *SignService) SaveJarForToday(ctx context.Context, jar portal.Jar) error {
	return s.Jars.SaveJarForDate(ctx, s.now(), jar)
}

// SignInput drives a batch sign run: every listed user registers on the same
// event URL.
type SignInput struct {
	UserIDs     []string
	URL         string
	InitiatedBy string
}

// Sign registers each user on the event URL in order, then reports a summary
// webhook when at least one user succeeded. The whole batch fails only when
// the shared jar is missing or the user list cannot be resolved.
func (s *SignService) Sign(ctx context.Context, in SignInput) ([]UserSignResult, error) {
	jar, err := s.Jars.JarForDate(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if len(jar) == 0 {
		return nil, ErrNoSharedJar
	}

	users, err := s.Users.GetByIDs(ctx, in.UserIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(in.UserIDs) {
		s.Logger.WithFields(logrus.Fields{
			"expected": len(in.UserIDs),
			"found":    len(users),
		}).Error("user count mismatch in sign batch")
		return nil, ErrUserNotFound
	}

	usernameByID := make(map[string]string, len(users))
	for _, u := range users {
		usernameByID[u.ID] = u.Username
	}

	results := make([]UserSignResult, 0, len(users))
	for i := range users {
		outcome := s.signOne(ctx, &users[i], jar, in.URL)
		s.Logger.WithFields(logrus.Fields{
			"user_id":  users[i].ID,
			"username": users[i].Username,
			"outcome":  string(outcome),
		}).Info("intra sign attempt finished")
		results = append(results, UserSignResult{UserID: users[i].ID, Response: outcome})
	}

	var validated []string
	var failed []FailedEntry
	for _, r := range results {
		name := usernameByID[r.UserID]
		if r.Response == SignSuccess {
			validated = append(validated, name)
		} else {
			failed = append(failed, FailedEntry{Username: name, Message: r.Response.Message()})
		}
	}
	if s.Notifier != nil {
		s.Notifier.NotifySign(in.InitiatedBy, in.URL, validated, failed)
	}

	return results, nil
}

// signOne replays the registration request with the shared jar plus the
// user's own intra token.
func (s *SignService) signOne(ctx context.Context, u *entity.User, jar portal.Jar, eventURL string) SignOutcome {
	if u.IntraJWT == nil || *u.IntraJWT == "" {
		return SignTokenNotFound
	}
	if u.IntraJWTExpiresAt != nil && !u.IntraJWTExpiresAt.After(s.now()) {
		return SignTokenExpired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return SignUnknownError
	}
	cookieHeader := jar.HeaderValue()
	if cookieHeader != "" {
		cookieHeader += "; "
	}
	cookieHeader += "user=" + *u.IntraJWT
	req.Header.Set("Cookie", cookieHeader)

	resp, err := s.http.Do(req)
	if err != nil {
		return SignServiceUnavailable
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		return SignSuccess
	case resp.StatusCode == http.StatusUnauthorized:
		return SignTokenExpired
	case resp.StatusCode == http.StatusForbidden:
		return SignAlreadySigned
	case resp.StatusCode == http.StatusServiceUnavailable:
		return SignServiceUnavailable
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// A redirect to the auth portal means the token was not accepted.
		if loc := resp.Header.Get("Location"); strings.Contains(loc, "auth") || strings.Contains(loc, "login") {
			return SignTokenExpired
		}
		return SignSuccess
	default:
		return SignUnknownError
	}
}
