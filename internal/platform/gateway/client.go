package gateway

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var errNoRadioStats = errors.New("no radio stats in response")

// maxBody bounds a status response.
const maxBody = 1 << 20

// Config describes how to reach a gateway.
type Config struct {
	URL                string        `mapstructure:"url"`
	Model              string        `mapstructure:"model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	// OperatorName is reported as the operator; gateways do not expose it.
	OperatorName string `mapstructure:"operator_name"`
}

// DefaultConfig returns the settings for a T-Mobile home internet gateway
// on its factory address.
func DefaultConfig() Config {
	return Config{
		URL:                "http://192.168.12.1",
		Model:              string(ModelAuto),
		Timeout:            10 * time.Second,
		InsecureSkipVerify: true,
	}
}

// NewHTTPClient builds the HTTP client used for gateway requests.
func NewHTTPClient(cfg Config) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // gateways ship self-signed certs
			},
		},
	}
}

// NewClient returns the client for a fixed model. ModelAuto is resolved by
// Detect instead.
func NewClient(model Model, baseURL string, httpClient *http.Client) (Client, error) {
	switch model {
	case ModelArcadyanKVD21:
		return NewArcadyanClient(baseURL, httpClient), nil
	case ModelNokia:
		return NewNokiaClient(baseURL, httpClient), nil
	}
	return nil, fmt.Errorf("no client for gateway model %q", model)
}

// Detect probes the known gateway families in turn and returns the first
// client whose status read succeeds.
func Detect(ctx context.Context, baseURL string, httpClient *http.Client) (Client, error) {
	var errs []error
	for _, model := range []Model{ModelArcadyanKVD21, ModelNokia} {
		c, err := NewClient(model, baseURL, httpClient)
		if err != nil {
			return nil, err
		}
		if _, err := c.Status(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", model, err))
			continue
		}
		return c, nil
	}
	return nil, fmt.Errorf("could not detect gateway model at %s: %w", baseURL, errors.Join(errs...))
}

func getJSON(ctx context.Context, hc *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse JSON response: %w", err)
	}
	return nil
}
