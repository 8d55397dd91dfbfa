// internal/platform/client.go
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/outboundhq/outreach-backend/internal/config"
	appErrors "github.com/outboundhq/outreach-backend/internal/errors"
	"github.com/outboundhq/outreach-backend/internal/model"
)

// Client talks to the external email-sending platform. Lead registration is
// idempotent on the platform side (keyed by email+campaign), so every call
// here is safe to retry.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a platform client with the configured timeout.
func NewClient(cfg config.PlatformConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type registerRequest struct {
	CampaignID string   `json:"campaign_id"`
	Emails     []string `json:"emails"`
}

// RegisterTargets enrolls the given addresses in the platform-side campaign.
func (c *Client) RegisterTargets(ctx context.Context, campaignExternalID string, emails []string) error {
	if len(emails) == 0 {
		return nil
	}

	body, err := json.Marshal(registerRequest{CampaignID: campaignExternalID, Emails: emails})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/campaigns/targets", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return &appErrors.ExternalPlatformError{Op: "register targets", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return &appErrors.ExternalPlatformError{
			Op:  "register targets",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}

type eventsResponse struct {
	Events []model.PlatformEvent `json:"events"`
}

// FetchEvents pulls the platform's status reports for a campaign since the
// given time. Used by the poll-driven sync path.
func (c *Client) FetchEvents(ctx context.Context, campaignExternalID string, since time.Time) ([]model.PlatformEvent, error) {
	url := fmt.Sprintf("%s/v1/campaigns/%s/events?since=%s",
		c.baseURL, campaignExternalID, since.UTC().Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &appErrors.ExternalPlatformError{Op: "fetch events", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &appErrors.ExternalPlatformError{
			Op:  "fetch events",
			Err: fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var out eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &appErrors.ExternalPlatformError{Op: "fetch events", Err: err}
	}
	return out.Events, nil
}
