package portal

import "context"

// ValidSession returns a usable cookie jar for the user. Today's stored jar is
// used when it still contains unexpired cookies; otherwise a reconnect with
// saved credentials is attempted and the freshly stored jar is returned.
func (c *Client) ValidSession(ctx context.Context, userID string) (Jar, error) {
	jar, err := c.store.JarForToday(ctx, userID)
	if err != nil {
		return nil, wrapError(KindTransport, err, "failed to load stored portal session")
	}
	if valid := jar.FilterValid(c.now()); len(valid) > 0 {
		if len(valid) < len(jar) {
			c.log.WithFields(map[string]any{
				"user_id": userID,
				"valid":   len(valid),
				"total":   len(jar),
			}).Info("dropped expired cookies from stored portal session")
		}
		return valid, nil
	}

	c.log.WithField("user_id", userID).Info("no valid portal session, reconnecting with saved credentials")
	if _, err := c.LoginWithSaved(ctx, userID); err != nil {
		return nil, err
	}

	jar, err = c.store.JarForToday(ctx, userID)
	if err != nil {
		return nil, wrapError(KindTransport, err, "failed to reload portal session after reconnect")
	}
	valid := jar.FilterValid(c.now())
	if len(valid) == 0 {
		return nil, newError(KindContractViolation, "portal reconnect succeeded but no session was produced")
	}
	return valid, nil
}

// HasValidSession reports whether a usable jar is stored for today without
// triggering a reconnect.
func (c *Client) HasValidSession(ctx context.Context, userID string) (bool, error) {
	jar, err := c.store.JarForToday(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(jar.FilterValid(c.now())) > 0, nil
}

// HasSavedCredentials reports whether the user stored portal credentials.
func (c *Client) HasSavedCredentials(ctx context.Context, userID string) (bool, error) {
	_, _, ok, err := c.store.Credentials(ctx, userID)
	return ok, err
}

// SaveJar stores an externally captured jar as today's session.
func (c *Client) SaveJar(ctx context.Context, userID string, jar Jar) error {
	return c.store.SaveJarForToday(ctx, userID, jar)
}
