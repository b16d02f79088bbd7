// Package arweave uploads ASSET_MINT payloads to an Arweave bundler
// gateway and returns permanent locators.
package arweave

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ingmarAvocado/abs-worker/internal/core/domain"
)

// Config holds gateway settings.
type Config struct {
	GatewayURL string        `yaml:"gateway_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Client posts payloads to the gateway's upload endpoint.
type Client struct {
	gatewayURL string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an upload client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		gatewayURL: strings.TrimSuffix(cfg.GatewayURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Upload stores data on the gateway and returns its locator URL.
// Connectivity failures and gateway 5xx responses are transient.
func (c *Client) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+"/tx", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := domain.InfraNetwork
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			kind = domain.InfraTimeout
		}
		return "", &domain.RetryableInfraError{Kind: kind, Err: fmt.Errorf("upload: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.RetryableInfraError{Kind: domain.InfraNetwork, Err: fmt.Errorf("read upload response: %w", err)}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return "", &domain.RetryableInfraError{
			Kind: domain.InfraNetwork,
			Err:  fmt.Errorf("http %d from storage gateway: %s", resp.StatusCode, body),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("storage gateway rejected upload: http %d: %s", resp.StatusCode, body)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("storage gateway returned empty transaction id")
	}

	return c.gatewayURL + "/" + result.ID, nil
}
