// Package portal automates authenticated interactions with the EDSquare
// portal: cookie-session login, secret-code submission and planning scraping.
package portal

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"
	acceptLanguage = "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7"

	signInPath     = "/users/sign_in"
	homePath       = "/home"
	classroomsPath = "/apps/classrooms"
	signaturesPath = "/apps/course_user_signatures"
	planningPath   = "/apps/planning/json_dashboard"
)

// The anti-forgery token appears either as a hidden form field or, failing
// that, in the csrf-token meta tag.
var (
	csrfInputRe = regexp.MustCompile(`name="authenticity_token"\s+value="([^"]+)"`)
	csrfMetaRe  = regexp.MustCompile(`<meta\s+name="csrf-token"\s+content="([^"]+)"`)
)

// SessionStore persists per-user portal state: one cookie jar per calendar day
// and the credentials used for automatic reconnection.
type SessionStore interface {
	// JarForToday returns today's stored jar, or nil when none exists.
	JarForToday(ctx context.Context, userID string) (Jar, error)
	SaveJarForToday(ctx context.Context, userID string, jar Jar) error
	ClearJarForToday(ctx context.Context, userID string) error
	// Credentials returns the saved email/password pair, or ok=false when the
	// user never saved any.
	Credentials(ctx context.Context, userID string) (email, password string, ok bool, err error)
	SaveCredentials(ctx context.Context, userID, email, password string) error
}

// Config carries the client's collaborators and tunables.
type Config struct {
	BaseURL     string
	Store       SessionStore
	Logger      *logrus.Logger
	Timeout     time.Duration
	PlanningTTL time.Duration
	// Now is the clock used for cookie expiry checks and the planning cache.
	// Defaults to time.Now.
	Now func() time.Time
}

// Client drives the portal on behalf of stored user sessions. All network
// calls go through http clients that never follow redirects: the redirect
// itself is a classification signal (login success, session expiry).
type Client struct {
	baseURL  string
	domain   string
	store    SessionStore
	log      *logrus.Logger
	http     *http.Client
	now      func() time.Time
	planning *PlanningCache
}

func New(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	u, _ := url.Parse(base)
	domain := ""
	if u != nil {
		domain = u.Host
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ttl := cfg.PlanningTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: base,
		domain:  domain,
		store:   cfg.Store,
		log:     logger,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		now:      now,
		planning: NewPlanningCache(ttl, now),
	}
}

// newRequest builds a portal request with the browser-mimicking headers the
// upstream discriminates on.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", acceptLanguage)
	return req, nil
}

func readBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(b)
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}

func extractCSRFToken(html string) string {
	if m := csrfInputRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	if m := csrfMetaRe.FindStringSubmatch(html); m != nil {
		return m[1]
	}
	return ""
}

// fetchCSRFToken probes an authenticated page for a fresh anti-forgery token.
// A redirect to the sign-in page means the session expired; that error must
// stop the caller before any submission. A token that simply cannot be found
// is reported as empty, not as an error.
func (c *Client) fetchCSRFToken(ctx context.Context, cookieHeader string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, classroomsPath, nil)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to build token probe request")
	}
	req.Header.Set("Cookie", cookieHeader)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to fetch token page")
	}

	if isRedirect(resp.StatusCode) || strings.Contains(resp.Request.URL.Path, signInPath) {
		_ = resp.Body.Close()
		c.log.Warn("portal session expired: redirected to sign-in during token probe")
		return "", newError(KindSessionExpired, "portal session expired, please reconnect")
	}

	html := readBody(resp)
	if resp.StatusCode != http.StatusOK {
		c.log.WithField("status", resp.StatusCode).Warn("token page fetch failed")
		return "", nil
	}
	token := extractCSRFToken(html)
	if token == "" {
		c.log.Warn("anti-forgery token not found in token page")
	}
	return token, nil
}

// withSessionRetry runs op once and, when it fails with an expired session,
// clears the cached jar, reconnects with saved credentials and retries exactly
// once. A failed reconnect surfaces the original error, never its own.
func (c *Client) withSessionRetry(ctx context.Context, userID string, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || !IsKind(err, KindSessionExpired) {
		return err
	}
	c.log.WithField("user_id", userID).Info("portal session expired, clearing jar and reconnecting")
	if cerr := c.store.ClearJarForToday(ctx, userID); cerr != nil {
		c.log.WithError(cerr).Warn("failed to clear expired portal jar")
		return err
	}
	if _, rerr := c.LoginWithSaved(ctx, userID); rerr != nil {
		c.log.WithError(rerr).WithField("user_id", userID).Warn("portal reconnect failed after expired session")
		return err
	}
	return op(ctx)
}
