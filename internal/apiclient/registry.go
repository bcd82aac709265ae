// Package apiclient talks to the external account and category registry over HTTP.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

var (
	errUnexpectedStatusCode = errors.New("unexpected http status code")
	errBasePathFormatting   = errors.New("error formatting registry base path")
	errBodyUnmarshal        = errors.New("error unmarshalling registry response body")
)

// UnexpectedStatusCodeError wraps a non-2xx status other than 404.
func UnexpectedStatusCodeError(statusCode int) error {
	return fmt.Errorf("%w: %d", errUnexpectedStatusCode, statusCode)
}

// RegistryClient resolves accounts and categories from a REST registry:
//
//	GET {base}/accounts/{id}
//	GET {base}/categories/{id}
//
// A 404 maps to core.ErrNotFound.
type RegistryClient struct {
	HTTPClient *http.Client
	BasePath   *url.URL
	token      string
}

// NewRegistryClient creates a client. token is sent as a bearer token when non-empty.
func NewRegistryClient(httpClient *http.Client, basePath, token string, timeout time.Duration) (*RegistryClient, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	u, err := url.Parse(strings.TrimRight(basePath, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errBasePathFormatting, basePath)
	}
	return &RegistryClient{HTTPClient: httpClient, BasePath: u, token: token}, nil
}

type accountResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	Owner    string `json:"owner,omitempty"`
}

type categoryResponse struct {
	ID       int64  `json:"id"`
	ParentID int64  `json:"parent_id,omitempty"`
	Name     string `json:"name"`
}

// Account implements ports.AccountLookup.
func (c *RegistryClient) Account(ctx context.Context, id int64) (core.Account, error) {
	var body accountResponse
	if err := c.get(ctx, "accounts", id, &body); err != nil {
		return core.Account{}, err
	}
	return core.Account{
		ID:       body.ID,
		Name:     body.Name,
		Currency: strings.ToUpper(body.Currency),
		Owner:    body.Owner,
	}, nil
}

// Category implements ports.CategoryLookup.
func (c *RegistryClient) Category(ctx context.Context, id int64) (core.Category, error) {
	var body categoryResponse
	if err := c.get(ctx, "categories", id, &body); err != nil {
		return core.Category{}, err
	}
	return core.Category{ID: body.ID, ParentID: body.ParentID, Name: body.Name}, nil
}

func (c *RegistryClient) get(ctx context.Context, resource string, id int64, out any) error {
	endpoint := c.BasePath.JoinPath(resource, strconv.FormatInt(id, 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("registry %s/%d: %w", resource, id, core.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return UnexpectedStatusCodeError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", errBodyUnmarshal, err)
	}
	return nil
}
