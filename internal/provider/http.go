package provider

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
)

const dateLayout = "2006-01-02"

// Client talks to a JSON gateway in front of the search engine APIs
// (indexing, URL inspection, search analytics and page performance).
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates a gateway client. An empty baseURL is rejected since the
// disabled provider covers the unconfigured case.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("provider base URL is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid provider base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}, nil
}

func (c *Client) Name() string { return "gateway" }

type submitRequest struct {
	URL  string     `json:"url"`
	Type ChangeType `json:"type"`
}

// Submit posts a URL notification
func (c *Client) Submit(ctx context.Context, pageURL string, change ChangeType) error {
	return c.do(ctx, http.MethodPost, "/indexing/submit", submitRequest{URL: pageURL, Type: change}, nil)
}

type inspectRequest struct {
	InspectionURL string `json:"inspectionUrl"`
}

// Inspect asks for the index verdict of a URL
func (c *Client) Inspect(ctx context.Context, pageURL string) (Inspection, error) {
	var out Inspection
	if err := c.do(ctx, http.MethodPost, "/inspection", inspectRequest{InspectionURL: pageURL}, &out); err != nil {
		return Inspection{}, err
	}
	if out.Verdict == "" {
		out.Verdict = VerdictUnknown
	}
	return out, nil
}

type analyticsRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	Dimensions []string `json:"dimensions"`
	RowLimit   int      `json:"rowLimit,omitempty"`
}

type analyticsResponse struct {
	Rows []struct {
		Keys        []string `json:"keys"`
		Clicks      float64  `json:"clicks"`
		Impressions float64  `json:"impressions"`
		Position    float64  `json:"position"`
	} `json:"rows"`
}

// Rankings runs one search analytics query. Keys are mapped positionally
// onto the requested dimensions.
func (c *Client) Rankings(ctx context.Context, q RankingQuery) ([]RankingRow, error) {
	dims := q.Dimensions
	if len(dims) == 0 {
		dims = []string{DimensionQuery, DimensionPage}
	}

	req := analyticsRequest{
		StartDate:  q.StartDate.Format(dateLayout),
		EndDate:    q.EndDate.Format(dateLayout),
		Dimensions: dims,
		RowLimit:   q.RowLimit,
	}

	var resp analyticsResponse
	if err := c.do(ctx, http.MethodPost, "/analytics/query", req, &resp); err != nil {
		return nil, err
	}

	rows := make([]RankingRow, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		row := RankingRow{
			Clicks:      int64(r.Clicks),
			Impressions: int64(r.Impressions),
			Position:    r.Position,
		}
		for i, key := range r.Keys {
			if i >= len(dims) {
				break
			}
			switch dims[i] {
			case DimensionQuery:
				row.Query = key
			case DimensionPage:
				row.Page = key
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Measure fetches a lab performance score for one device strategy
func (c *Client) Measure(ctx context.Context, pageURL string, strategy Strategy) (Performance, error) {
	params := url.Values{}
	params.Set("url", pageURL)
	params.Set("strategy", string(strategy))

	var out Performance
	if err := c.do(ctx, http.MethodGet, "/pagespeed?"+params.Encode(), nil, &out); err != nil {
		return Performance{}, err
	}
	if out.Score < 0 || out.Score > 100 {
		return Performance{}, fmt.Errorf("performance score %d out of range", out.Score)
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SEO-Engine/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
