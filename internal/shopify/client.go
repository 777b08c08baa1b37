// Package shopify is the transport layer for the Shopify Storefront
// GraphQL API. Callers hand it a query document plus variables and a
// typed destination for the data; transport failures and payload-level
// GraphQL errors are surfaced separately so both can be branched on.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrUnauthorized marks an invalid or expired storefront access token.
var ErrUnauthorized = errors.New("shopify: invalid or expired storefront access token")

// GraphQLError is a payload-level failure: the transport returned 2xx
// but the response carried an errors list instead of (or alongside) data.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "shopify graphql error: " + strings.Join(e.Messages, "; ")
}

type Config struct {
	// Domain is the shop domain; a scheme prefix is tolerated and stripped.
	Domain      string
	AccessToken string
	APIVersion  string
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Client issues authenticated requests against one storefront endpoint.
// It is constructed once at startup and injected into the adapters that
// need it; there is no process-wide cached instance.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      *zap.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.Domain == "" {
		return nil, errors.New("shopify: store domain is not configured")
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("shopify: storefront access token is not configured")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-01"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	domain := strings.TrimSuffix(cfg.Domain, "/")
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")

	return &Client{
		endpoint: fmt.Sprintf("https://%s/api/%s/graphql.json", domain, cfg.APIVersion),
		token:    cfg.AccessToken,
		http:     cfg.HTTPClient,
		log:      cfg.Logger,
	}, nil
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string `json:"message"`
		Extensions struct {
			Code string `json:"code"`
		} `json:"extensions"`
	} `json:"errors"`
}

// Do executes one GraphQL operation and decodes the data object into out.
// out must be a pointer to the per-operation response type; unexpected
// upstream shapes fail the decode rather than being coerced.
func (c *Client) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("shopify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shopify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shopify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("shopify: api error: %d %s", resp.StatusCode, resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("shopify: read response: %w", err)
	}

	var env response
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("shopify: decode response: %w", err)
	}

	if len(env.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range env.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
			if e.Extensions.Code != "" {
				c.log.Debug("graphql error", zap.String("code", e.Extensions.Code), zap.String("message", e.Message))
			}
		}
		return gqlErr
	}
	if env.Data == nil {
		return errors.New("shopify: no data returned")
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("shopify: decode data: %w", err)
		}
	}
	return nil
}
