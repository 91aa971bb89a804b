package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var errNotifyFailed = errors.New("notification failed")

// Notifier tells someone about the outcome of a run.
type Notifier interface {
	// NewCalendars announces calendars written from new or changed schedules.
	NewCalendars(ctx context.Context, calendars []string) error
	// Failure reports a run that stopped on err.
	Failure(ctx context.Context, err error) error
}

type notify17 struct {
	newCalendarURL string
	errorURL       string
	client         *http.Client
}

// Notify17 posts form data to Notify17 webhook templates. Either URL may be
// empty, which turns that notification off.
func Notify17(newCalendarURL, errorURL string, client *http.Client) Notifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &notify17{
		newCalendarURL: newCalendarURL,
		errorURL:       errorURL,
		client:         client,
	}
}

func (n *notify17) NewCalendars(ctx context.Context, calendars []string) error {
	if n.newCalendarURL == "" || len(calendars) == 0 {
		return nil
	}
	return n.post(ctx, n.newCalendarURL, url.Values{
		"calendar_name": {calendars[0]},
		"calendar_list": calendars,
	})
}

func (n *notify17) Failure(ctx context.Context, err error) error {
	if n.errorURL == "" || err == nil {
		return nil
	}
	return n.post(ctx, n.errorURL, url.Values{"error_text": {err.Error()}})
}

func (n *notify17) post(ctx context.Context, hookURL string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hookURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	slog.Debug("notify17 reply", "status", resp.StatusCode, "body", strings.TrimSpace(string(reply)))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s", errNotifyFailed, resp.Status)
	}
	return nil
}
