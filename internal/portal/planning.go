package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// PlanningEvent is one entry of the portal's planning dashboard, a read-only
// upstream snapshot.
type PlanningEvent struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Target      *string `json:"target,omitempty"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	EventType   *string `json:"event_type,omitempty"`
	Registrable *bool   `json:"registrable,omitempty"`
}

// The portal serves planning windows in its own fixed timezone offset.
const planningTimeSuffix = "T00:00:00+01:00"

// PlanningEvents fetches the portal planning for the day, covering
// [date 00:00, date+1 00:00). A warm cache entry short-circuits the whole
// session/reconnect path; otherwise the fetch runs under the same
// reconnect-once policy as code validation.
func (c *Client) PlanningEvents(ctx context.Context, userID string, date time.Time) ([]PlanningEvent, error) {
	day := date.Format("2006-01-02")
	if events, ok := c.planning.Get(userID, day); ok {
		return events, nil
	}

	var events []PlanningEvent
	err := c.withSessionRetry(ctx, userID, func(ctx context.Context) error {
		var ferr error
		events, ferr = c.fetchPlanningEvents(ctx, userID, date)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	c.planning.Put(userID, day, events)
	return events, nil
}

func (c *Client) fetchPlanningEvents(ctx context.Context, userID string, date time.Time) ([]PlanningEvent, error) {
	jar, err := c.ValidSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := date.Format("2006-01-02") + planningTimeSuffix
	end := date.AddDate(0, 0, 1).Format("2006-01-02") + planningTimeSuffix
	query := "?start=" + url.QueryEscape(start) + "&end=" + url.QueryEscape(end)

	req, err := c.newRequest(ctx, http.MethodGet, planningPath+query, nil)
	if err != nil {
		return nil, wrapError(KindTransport, err, "failed to build planning request")
	}
	req.Header.Set("Cookie", jar.HeaderValue())
	req.Header.Set("Referer", c.baseURL+homePath)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, wrapError(KindTransport, err, "planning request failed")
	}
	body := readBody(resp)

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized || strings.Contains(body, "sign_in") {
			return nil, newError(KindSessionExpired, "portal session expired, please reconnect")
		}
		return nil, &Error{
			Kind:    KindUpstreamRejected,
			Message: "portal planning responded with status " + resp.Status,
			Body:    truncateBody(body),
		}
	}

	var events []PlanningEvent
	if err := json.Unmarshal([]byte(body), &events); err != nil {
		// A parse failure is an upstream contract problem, not a session one.
		return nil, wrapError(KindContractViolation, err, "invalid portal planning response")
	}

	c.log.WithFields(map[string]any{
		"user_id": userID,
		"date":    date.Format("2006-01-02"),
		"events":  len(events),
	}).Info("fetched portal planning events")
	return events, nil
}
