package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"stellarsignals/internal/errs"
)

// Client talks to the platform directory service, which fronts provider
// performance metrics, win streaks and wallet addresses. It implements both
// MetricsSource and WalletDirectory.
type Client struct {
	host       string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("directory API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host string) *Client {
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Metrics returns the provider's performance snapshot, or an all-zero
// snapshot when the directory has no data for the provider.
func (c *Client) Metrics(ctx context.Context, providerID string) (Metrics, error) {
	if strings.TrimSpace(providerID) == "" {
		return Metrics{}, fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	body, err := c.doRequest(ctx, "/providers/"+url.PathEscape(providerID)+"/metrics", nil)
	if errs.IsNotFound(err) {
		return Metrics{ProviderID: providerID}, nil
	}
	if err != nil {
		return Metrics{}, err
	}
	var m Metrics
	if err := json.Unmarshal(body, &m); err != nil {
		return Metrics{}, fmt.Errorf("decode metrics: %w", err)
	}
	m.ProviderID = providerID
	return m, nil
}

func (c *Client) List(ctx context.Context) ([]Metrics, error) {
	body, err := c.doRequest(ctx, "/providers/metrics", nil)
	if err != nil {
		return nil, err
	}
	var items []Metrics
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode metrics list: %w", err)
	}
	return items, nil
}

func (c *Client) Streak(ctx context.Context, providerID string) (int, error) {
	if strings.TrimSpace(providerID) == "" {
		return 0, fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	body, err := c.doRequest(ctx, "/providers/"+url.PathEscape(providerID)+"/streak", nil)
	if errs.IsNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var payload struct {
		ConsecutiveWins int `json:"consecutive_wins"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("decode streak: %w", err)
	}
	return payload.ConsecutiveWins, nil
}

// WalletAddress resolves the provider's payable Stellar address. Unknown
// providers and providers without a wallet on file fail with ErrNotFound.
func (c *Client) WalletAddress(ctx context.Context, providerID string) (string, error) {
	if strings.TrimSpace(providerID) == "" {
		return "", fmt.Errorf("%w: provider id is required", errs.ErrInvalidArgument)
	}
	body, err := c.doRequest(ctx, "/providers/"+url.PathEscape(providerID)+"/wallet", nil)
	if err != nil {
		return "", err
	}
	var payload struct {
		WalletAddress string `json:"wallet_address"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode wallet: %w", err)
	}
	addr := strings.TrimSpace(payload.WalletAddress)
	if addr == "" {
		return "", fmt.Errorf("%w: provider %s has no wallet address", errs.ErrNotFound, providerID)
	}
	return addr, nil
}
