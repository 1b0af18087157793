package portal

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Phrases the upstream embeds in the login page when a POST is rejected.
var invalidLoginPhrases = []string{
	"Invalid email or password",
	"Email ou mot de passe invalide",
	"incorrect",
	"erreur",
}

// A session token shorter than this cannot be a real session cookie.
const minSessionValueLen = 10

// Login performs the two-step browser-emulating portal login for userID and,
// on success, persists the captured jar for today and the credentials for
// later automatic reconnection. The returned string is a human-readable
// success message.
func (c *Client) Login(ctx context.Context, userID, email, password string) (string, error) {
	c.log.WithField("email", email).Info("attempting portal login")

	// Step 1: fetch the sign-in page for the anti-forgery token. Cookies set
	// here are needed for the POST to be accepted.
	pageReq, err := c.newRequest(ctx, http.MethodGet, signInPath, nil)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to build login page request")
	}
	pageResp, err := c.http.Do(pageReq)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to fetch login page")
	}
	pageJar := fromHTTPCookies(pageResp.Cookies(), c.domain)
	pageHTML := readBody(pageResp)
	if pageResp.StatusCode != http.StatusOK {
		return "", newError(KindUpstreamRejected, "failed to fetch login page: status %d", pageResp.StatusCode)
	}

	token := extractCSRFToken(pageHTML)
	if token == "" {
		return "", newError(KindContractViolation, "anti-forgery token not found in login page")
	}

	// Step 2: POST the credentials with the token.
	form := url.Values{}
	form.Set("authenticity_token", token)
	form.Set("user[email]", email)
	form.Set("user[password]", password)
	form.Set("user[remember_me]", "0")

	postReq, err := c.newRequest(ctx, http.MethodPost, signInPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to build login request")
	}
	postReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	postReq.Header.Set("Origin", c.baseURL)
	postReq.Header.Set("Referer", c.baseURL+"/")
	if h := pageJar.HeaderValue(); h != "" {
		postReq.Header.Set("Cookie", h)
	}

	postResp, err := c.http.Do(postReq)
	if err != nil {
		return "", wrapError(KindTransport, err, "login request failed")
	}

	// Capture the session cookies before touching the body: it is single-read.
	loginJar := fromHTTPCookies(postResp.Cookies(), c.domain)

	if !isRedirect(postResp.StatusCode) {
		// Staying on the sign-in page means the credentials were rejected;
		// the body only refines the diagnosis.
		body := readBody(postResp)
		for _, phrase := range invalidLoginPhrases {
			if strings.Contains(body, phrase) {
				return "", newError(KindInvalidCredentials, "portal login failed: invalid credentials")
			}
		}
		return "", newError(KindInvalidCredentials, "portal login failed: invalid credentials")
	}
	_ = postResp.Body.Close()
	if loc := postResp.Header.Get("Location"); strings.Contains(loc, signInPath) {
		return "", newError(KindInvalidCredentials, "portal login failed: invalid credentials")
	}

	// Step 3: probe the home page with the accumulated cookies to confirm the
	// session is live, and pick up any cookies minted there.
	probeJar := pageJar.merge(loginJar)
	homeReq, err := c.newRequest(ctx, http.MethodGet, homePath, nil)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to build home probe request")
	}
	if h := probeJar.HeaderValue(); h != "" {
		homeReq.Header.Set("Cookie", h)
	}
	homeResp, err := c.http.Do(homeReq)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to fetch home page")
	}
	homeJar := fromHTTPCookies(homeResp.Cookies(), c.domain)
	_ = homeResp.Body.Close()

	homeLocation := homeResp.Header.Get("Location")
	if strings.Contains(homeResp.Request.URL.Path, signInPath) || strings.Contains(homeLocation, signInPath) {
		return "", newError(KindInvalidCredentials, "portal login failed: invalid credentials or expired session")
	}
	if homeResp.StatusCode != http.StatusOK && !isRedirect(homeResp.StatusCode) {
		c.log.WithFields(map[string]any{
			"status":   homeResp.StatusCode,
			"location": homeLocation,
		}).Warn("portal home probe failed after login")
		return "", newError(KindInvalidCredentials, "portal login failed: invalid credentials")
	}

	// Step 4: sanity-check and persist the session. Login cookies win over
	// home cookies on duplicate names.
	sessionJar := loginJar.merge(homeJar)
	if len(sessionJar) == 0 {
		return "", newError(KindContractViolation, "no cookies received after login")
	}
	valid := false
	for _, ck := range sessionJar {
		if len(ck.Value) > minSessionValueLen {
			valid = true
			break
		}
	}
	if !valid {
		return "", newError(KindContractViolation, "cookies received after login look invalid")
	}

	if err := c.store.SaveJarForToday(ctx, userID, sessionJar); err != nil {
		return "", wrapError(KindTransport, err, "login succeeded but saving the session failed")
	}
	// Saved credentials enable automatic reconnects; failing to store them is
	// not fatal for this login.
	if err := c.store.SaveCredentials(ctx, userID, email, password); err != nil {
		c.log.WithError(err).WithField("user_id", userID).Warn("login ok but saving portal credentials failed")
	}

	c.log.WithFields(map[string]any{
		"user_id": userID,
		"cookies": len(sessionJar),
	}).Info("portal login succeeded, session saved")
	return "portal login succeeded and session saved", nil
}

// LoginWithSaved re-runs the login flow using the credentials stored for the
// user. The no-credentials case is a distinct error kind so callers can tell
// "nothing to reconnect with" from an actual login failure.
func (c *Client) LoginWithSaved(ctx context.Context, userID string) (string, error) {
	email, password, ok, err := c.store.Credentials(ctx, userID)
	if err != nil {
		return "", wrapError(KindTransport, err, "failed to load saved portal credentials")
	}
	if !ok {
		return "", ErrNoSavedCredentials
	}
	return c.Login(ctx, userID, email, password)
}
