package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSender posts announcements as JSON to the venue display webhook.
type HTTPSender struct {
	URL  string
	HTTP *http.Client
}

func NewHTTPSender(url string) *HTTPSender {
	return &HTTPSender{
		URL:  url,
		HTTP: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a webhook is configured.
func (s *HTTPSender) Enabled() bool { return s.URL != "" }

// Announce is a no-op without a configured URL.
func (s *HTTPSender) Announce(ctx context.Context, a Announcement) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(a)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("announce request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("announce webhook error %s: %s", resp.Status, bytes.TrimSpace(msg))
	}
	return nil
}
