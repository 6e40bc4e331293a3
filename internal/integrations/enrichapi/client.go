package enrichapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the people-data enrichment provider. The provider is
// treated as a black box: one search call, no retries.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type SearchRequest struct {
	Query string `json:"query"`
	Size  int    `json:"size"`
}

// Person is one enrichment result row.
type Person struct {
	FullName    string                 `json:"full_name"`
	JobTitle    string                 `json:"job_title"`
	Company     string                 `json:"company"`
	Location    string                 `json:"location"`
	Email       string                 `json:"email"`
	Phone       string                 `json:"phone"`
	LinkedinURL string                 `json:"linkedin_url"`
	Skills      []string               `json:"skills"`
	Experience  []map[string]any       `json:"experience"`
	Education   []map[string]any       `json:"education"`
	Extra       map[string]interface{} `json:"extra"`
}

type searchResponse struct {
	Data []Person `json:"data"`
}

// SearchPeople runs one person search and returns up to size results.
func (c *Client) SearchPeople(ctx context.Context, query string, size int) ([]Person, error) {
	payload, err := json.Marshal(SearchRequest{Query: query, Size: size})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v5/person/search", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("person search failed: %d - %s", resp.StatusCode, string(body))
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	return result.Data, nil
}
