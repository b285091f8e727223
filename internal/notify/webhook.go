package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// WebhookPayload is the JSON body posted for each new record.
type WebhookPayload struct {
	Event   string  `json:"event"`
	Message Message `json:"message"`
}

// WebhookChannel posts each message as JSON to a fixed URL.
type WebhookChannel struct {
	URL  string
	HTTP *http.Client
}

func (c WebhookChannel) Name() string { return "webhook" }

func (c WebhookChannel) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(WebhookPayload{Event: "insider.created", Message: msg})
	if err != nil {
		return err
	}
	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &httpError{StatusCode: resp.StatusCode}
	}
	return nil
}

type httpError struct {
	StatusCode int
}

func (e *httpError) Error() string {
	return "webhook http status " + http.StatusText(e.StatusCode)
}
