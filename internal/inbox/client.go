package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client reads messages from an SMS inbox HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates an inbox API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: http.DefaultClient,
	}
}

// ListMessages fetches one page of messages.
func (c *Client) ListMessages(ctx context.Context, params ListMessagesParams) (*ListMessagesResponse, error) {
	u, err := url.Parse(c.BaseURL + "/messages")
	if err != nil {
		return nil, fmt.Errorf("parse URL: %w", err)
	}

	q := u.Query()
	if params.Direction != "" {
		q.Set("direction", params.Direction)
	}
	if params.Since != "" {
		q.Set("since", params.Since)
	}
	if params.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", params.Limit))
	}
	if params.After != "" {
		q.Set("after", params.After)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inbox API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ListMessagesResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &result, nil
}

// ListAll follows pagination cursors and returns every message since params.Since.
func (c *Client) ListAll(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	var all []Message
	for {
		resp, err := c.ListMessages(ctx, params)
		if err != nil {
			return all, err
		}
		all = append(all, resp.Data...)

		if resp.Paging == nil || resp.Paging.Cursors.After == "" || len(resp.Data) == 0 {
			return all, nil
		}
		params.After = resp.Paging.Cursors.After
	}
}
