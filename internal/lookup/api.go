package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pricewatch/pkg/logx"
)

// apiClient talks to a structured product-data API instead of scraping. The
// endpoint takes the product URL as a query parameter and returns the title
// plus the price in both encodings (whole number and formatted string).
type apiClient struct {
	endpoint string
	key      string
	http     *http.Client
	log      logx.Logger
}

type apiProduct struct {
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	PriceRaw string `json:"price_raw"`
}

func newAPI(endpoint, key string, timeout time.Duration, log logx.Logger) (*apiClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("lookup.api_url is required for the api backend")
	}
	return &apiClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		http:     &http.Client{Timeout: timeout},
		log:      log,
	}, nil
}

func (c *apiClient) Fetch(ctx context.Context, productURL string) (Result, error) {
	q := url.Values{}
	q.Set("product_url", productURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("lookup api: bad request: %w", err)
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("lookup api: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("lookup api: unexpected status %d", resp.StatusCode)
	}

	var p apiProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Result{}, fmt.Errorf("lookup api: decode: %w", err)
	}
	if strings.TrimSpace(p.Title) == "" {
		return Result{}, errors.New("lookup api: response missing title")
	}

	price := p.Price
	if price == 0 && p.PriceRaw != "" {
		price = parseFormattedPrice(p.PriceRaw)
	}
	if price == 0 {
		c.log.Debug("product found without usable price", logx.String("url", productURL))
	}
	return Result{Title: strings.TrimSpace(p.Title), Price: price}, nil
}
