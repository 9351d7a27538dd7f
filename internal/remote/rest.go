package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"possync/m/internal/auth"
)

// RESTClient writes rows through a PostgREST style HTTP API. The bearer
// token is taken from the request context.
type RESTClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewRESTClient(baseURL, apiKey string) *RESTClient {
	return &RESTClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *RESTClient) Upsert(ctx context.Context, table, id string, data map[string]any) error {
	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		row[k] = v
	}
	row["id"] = id
	_, err := c.do(ctx, http.MethodPost, table, nil, row, "resolution=merge-duplicates,return=minimal")
	return err
}

func (c *RESTClient) Update(ctx context.Context, table, id string, data map[string]any) error {
	_, err := c.do(ctx, http.MethodPatch, table, idFilter(id), data, "return=minimal")
	return err
}

func (c *RESTClient) Delete(ctx context.Context, table, id string) error {
	_, err := c.do(ctx, http.MethodDelete, table, idFilter(id), nil, "return=minimal")
	return err
}

func (c *RESTClient) Exists(ctx context.Context, table, column, value string) (bool, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	body, err := c.do(ctx, http.MethodGet, table, q, nil, "")
	if err != nil {
		return false, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return false, fmt.Errorf("decode %s lookup: %w", table, err)
	}
	return len(rows) > 0, nil
}

func idFilter(id string) url.Values {
	return url.Values{"id": []string{"eq." + id}}
}

func (c *RESTClient) do(ctx context.Context, method, table string, query url.Values, payload any, prefer string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.BaseURL, url.PathEscape(table))
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.APIKey)
	if token := auth.TokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		remoteErr := &Error{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(body, remoteErr); jsonErr != nil || remoteErr.Message == "" {
			remoteErr.Message = strings.TrimSpace(string(body))
		}
		return nil, remoteErr
	}
	return body, nil
}
