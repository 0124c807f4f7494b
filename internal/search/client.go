// Package search предоставляет клиент для внешнего поискового индекса товаров.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Hit описывает один найденный товар в фиксированной проекции атрибутов индекса.
// Индекс не фильтрует по статусу на своей стороне: фильтрация активных
// товаров остаётся обязанностью вызывающего кода.
type Hit struct {
	ObjectID          string   `json:"objectID"`
	Name              string   `json:"name"`
	SKU               string   `json:"sku"`
	Category          string   `json:"category"`
	Slug              string   `json:"slug"`
	Images            []string `json:"images,omitempty"`
	WholesalePrice    *int64   `json:"wholesalePrice,omitempty"`
	RetailPrice       *int64   `json:"retailPrice,omitempty"`
	HasBoxOption      *bool    `json:"hasBoxOption,omitempty"`
	BoxWholesalePrice *int64   `json:"boxWholesalePrice,omitempty"`
	Inventory         *int     `json:"inventory,omitempty"`
	Status            string   `json:"status,omitempty"`
}

// Result содержит ответ индекса на один поисковый запрос.
type Result struct {
	Hits   []Hit `json:"hits"`
	NBHits int   `json:"nbHits"`
}

// Client инкапсулирует HTTP-взаимодействие с поисковым сервисом.
type Client struct {
	baseURL    string
	index      string
	httpClient *retryablehttp.Client
}

// NewClient создаёт клиент поискового сервиса для указанного адреса и индекса.
func NewClient(baseURL, index string) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 2
	httpClient.HTTPClient.Timeout = 5 * time.Second
	httpClient.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		index:      index,
		httpClient: httpClient,
	}
}

type searchRequest struct {
	Query                        string   `json:"query"`
	HitsPerPage                  int      `json:"hitsPerPage"`
	AttributesToRetrieve         []string `json:"attributesToRetrieve"`
	RestrictSearchableAttributes []string `json:"restrictSearchableAttributes"`
}

// Search выполняет полнотекстовый запрос к индексу товаров.
// Пустой или пробельный запрос возвращает пустой результат без обращения к сервису.
func (c *Client) Search(ctx context.Context, query string, hitsPerPage int) (*Result, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("search client not configured")
	}

	if strings.TrimSpace(query) == "" {
		return &Result{}, nil
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/indexes/%s/query", base, c.index)

	body, err := json.Marshal(searchRequest{
		Query:       query,
		HitsPerPage: hitsPerPage,
		AttributesToRetrieve: []string{
			"objectID", "name", "sku", "category", "slug", "images",
			"wholesalePrice", "retailPrice", "hasBoxOption",
			"boxWholesalePrice", "inventory", "status",
		},
		RestrictSearchableAttributes: []string{"name", "sku", "category"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}
