package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"shiplog/internal/notify"
	dErrors "shiplog/pkg/domain-errors"
)

// HTTPSource polls the engine's read/ack API over HTTP with a bearer token.
// The recipient is whoever the token authenticates as.
type HTTPSource struct {
	client  *http.Client
	baseURL string
	token   string
}

func NewHTTPSource(client *http.Client, baseURL, token string) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{client: client, baseURL: baseURL, token: token}
}

func (s *HTTPSource) Pending(ctx context.Context, limit int) ([]notify.Notification, error) {
	endpoint := s.baseURL + "/notifications?limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build pending request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch pending notifications: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var envelope struct {
		Notifications []notify.Notification `json:"notifications"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode pending notifications: %w", err)
	}
	return envelope.Notifications, nil
}

func (s *HTTPSource) Acknowledge(ctx context.Context, id uuid.UUID) error {
	endpoint := s.baseURL + "/notifications/" + url.PathEscape(id.String()) + "/consume"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build consume request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("consume notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// apiError turns the server's error envelope back into a coded error.
func apiError(resp *http.Response) error {
	var envelope struct {
		Code        string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Code == "" {
		return dErrors.Newf(dErrors.CodeInternal, "unexpected status %d", resp.StatusCode)
	}
	return dErrors.New(dErrors.Code(envelope.Code), envelope.Description)
}
