package portal

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// Even a 200 can carry an embedded toast error instead of a success.
var toastrErrorRe = regexp.MustCompile(`toastr\.error\("([^"]+)"`)

const codeLength = 6

// ValidateCode submits a one-time secret code with the user's signature to the
// portal. On a session-expired failure it clears the cached session, reconnects
// once with saved credentials, and retries exactly once; a failed reconnect
// surfaces the original error.
func (c *Client) ValidateCode(ctx context.Context, userID, code, planningEventID, signature string) error {
	// Validated before any network I/O.
	if len(code) != codeLength {
		return newError(KindInputValidation,
			"the secret code must contain exactly 6 digits, got: %d characters", len(code))
	}
	return c.withSessionRetry(ctx, userID, func(ctx context.Context) error {
		return c.validateCodeOnce(ctx, userID, code, planningEventID, signature)
	})
}

func (c *Client) validateCodeOnce(ctx context.Context, userID, code, planningEventID, signature string) error {
	jar, err := c.ValidSession(ctx, userID)
	if err != nil {
		return err
	}
	cookieHeader := jar.HeaderValue()

	token, err := c.fetchCSRFToken(ctx, cookieHeader)
	if err != nil {
		if IsKind(err, KindSessionExpired) {
			return err
		}
		c.log.WithError(err).Warn("could not fetch anti-forgery token, submitting without it")
		token = ""
	}

	// The form shape is a hard upstream contract: token first, then the
	// signature envelope, then the code split into six discrete fields.
	parts := make([]string, 0, 4)
	if token != "" {
		parts = append(parts, "authenticity_token="+url.QueryEscape(token))
	}
	parts = append(parts,
		"course_user_signature%5Bplanning_event_id%5D="+url.QueryEscape(planningEventID),
		"course_user_signature%5Bsignature_data%5D="+url.QueryEscape(signature),
	)
	for i, ch := range code {
		parts = append(parts, fmt.Sprintf("secret_code_part_%d=%s", i+1, url.QueryEscape(string(ch))))
	}
	formData := strings.Join(parts, "&")

	c.log.WithFields(map[string]any{
		"user_id":           userID,
		"planning_event_id": planningEventID,
		"signature_length":  len(signature),
	}).Info("submitting secret code to portal")

	req, err := c.newRequest(ctx, http.MethodPost, signaturesPath, strings.NewReader(formData))
	if err != nil {
		return wrapError(KindTransport, err, "failed to build code submission request")
	}
	req.Header.Set("Cookie", cookieHeader)
	req.Header.Set("Accept", "text/javascript, application/javascript, application/ecmascript, application/x-ecmascript, */*; q=0.01")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.baseURL+classroomsPath)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(KindTransport, err, "code submission request failed")
	}
	body := readBody(resp)

	c.log.WithFields(map[string]any{
		"status":      resp.StatusCode,
		"body_length": len(body),
	}).Debug("portal code submission response")

	switch resp.StatusCode {
	case http.StatusOK:
		// A 200 is only provisional: scan for an embedded toast error.
		if m := toastrErrorRe.FindStringSubmatch(body); m != nil {
			c.log.WithField("message", m[1]).Error("portal returned an error despite status 200")
			return newError(KindUpstreamRejected, "portal rejected the code: %s", m[1])
		}
		c.log.Info("secret code validated by portal")
		return nil
	case http.StatusUnauthorized:
		return newError(KindSessionExpired, "portal session expired, please reconnect")
	case http.StatusNotFound:
		return &Error{
			Kind:    KindUpstreamRejected,
			Message: "invalid code or unknown planning event",
			Body:    truncateBody(body),
		}
	case http.StatusBadRequest:
		return &Error{
			Kind:    KindUpstreamRejected,
			Message: "portal rejected the submission format",
			Body:    truncateBody(body),
		}
	default:
		return &Error{
			Kind:    KindUpstreamRejected,
			Message: fmt.Sprintf("unexpected portal status %d during code validation", resp.StatusCode),
			Body:    truncateBody(body),
		}
	}
}
