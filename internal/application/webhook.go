package application

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Discord caps message content; longer summaries are cut with an ellipsis.
const discordContentLimit = 2000

// FailedEntry is one per-user failure in a batch summary.
type FailedEntry struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Notifier posts batch summaries to a configured webhook. Deliveries are
// fire-and-forget: failures are logged and never surface to the caller.
type Notifier struct {
	URL    string
	Logger *logrus.Logger
	http   *http.Client
}

func NewNotifier(url string, logger *logrus.Logger) *Notifier {
	return &Notifier{
		URL:    url,
		Logger: logger,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *Notifier) isDiscord() bool {
	return strings.Contains(strings.ToLower(n.URL), "discord.com")
}

func truncateContent(content string) string {
	if len(content) > discordContentLimit {
		return content[:discordContentLimit-3] + "…"
	}
	return content
}

// NotifyValidation sends the summary of a multi-user code validation.
func (n *Notifier) NotifyValidation(initiatedBy string, globalSuccess bool, validated []string, failed []FailedEntry, validatedCodes []string) {
	if n.URL == "" || len(validated) == 0 {
		return
	}
	var body any
	if n.isDiscord() {
		parts := []string{"**Bilan EDSquare**", "**Lancé par :** " + initiatedBy}
		if len(validatedCodes) > 0 {
			parts = append(parts, "**Code(s) validé(s) :** "+strings.Join(validatedCodes, ", "))
		}
		if len(validated) > 0 {
			parts = append(parts, "✅ **Validés :** "+strings.Join(validated, ", ")+".")
		}
		if len(failed) > 0 {
			items := make([]string, 0, len(failed))
			for _, f := range failed {
				items = append(items, f.Username+" ("+f.Message+")")
			}
			parts = append(parts, "❌ **Échecs :** "+strings.Join(items, " ; ")+".")
		}
		body = map[string]string{"content": truncateContent(strings.Join(parts, "\n"))}
	} else {
		body = map[string]any{
			"event":           "edsquare_validation_multi",
			"initiated_by":    initiatedBy,
			"global_success":  globalSuccess,
			"validated":       validated,
			"validated_codes": validatedCodes,
			"failed":          failed,
		}
	}
	go n.post(body)
}

// NotifySign sends the summary of a multi-user intra sign run.
func (n *Notifier) NotifySign(initiatedBy, url string, validated []string, failed []FailedEntry) {
	if n.URL == "" || len(validated) == 0 {
		return
	}
	var body any
	if n.isDiscord() {
		parts := []string{"**Bilan signature**", "**Lancé par :** " + initiatedBy, "**URL :** " + url}
		if len(validated) > 0 {
			parts = append(parts, "✅ **Validés :** "+strings.Join(validated, ", ")+".")
		}
		if len(failed) > 0 {
			items := make([]string, 0, len(failed))
			for _, f := range failed {
				items = append(items, f.Username+" ("+f.Message+")")
			}
			parts = append(parts, "❌ **Échecs :** "+strings.Join(items, " ; ")+".")
		}
		body = map[string]string{"content": truncateContent(strings.Join(parts, "\n"))}
	} else {
		body = map[string]any{
			"event":        "sign_multi",
			"initiated_by": initiatedBy,
			"url":          url,
			"validated":    validated,
			"failed":       failed,
		}
	}
	go n.post(body)
}

func (n *Notifier) post(body any) {
	b, err := json.Marshal(body)
	if err != nil {
		n.Logger.WithError(err).Warn("webhook: failed to encode payload")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(b))
	if err != nil {
		n.Logger.WithError(err).Warn("webhook: failed to build request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.http.Do(req)
	if err != nil {
		n.Logger.WithError(err).WithField("url", n.URL).Warn("webhook: delivery failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.Logger.WithFields(logrus.Fields{"status": resp.StatusCode, "url": n.URL}).Warn("webhook: non-success status")
		return
	}
	n.Logger.Info("webhook: summary delivered")
}
