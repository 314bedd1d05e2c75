package lookup

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"pricewatch/pkg/logx"
)

// amazonClient scrapes the product page directly. Amazon renders the price
// in several DOM variants; we read the whole-number block first and fall
// back to the formatted offscreen string used by older layouts.
type amazonClient struct {
	http *http.Client
	log  logx.Logger
}

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var formattedPriceSelectors = []string{
	"#corePrice_feature_div .a-offscreen",
	"#corePriceDisplay_desktop_feature_div .a-offscreen",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
}

func newAmazon(timeout time.Duration, log logx.Logger) *amazonClient {
	return &amazonClient{
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

func (c *amazonClient) Fetch(ctx context.Context, productURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("amazon: bad url: %w", err)
	}
	// Without a browser UA Amazon answers with a bot interstitial.
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("amazon: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("amazon: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("amazon: parse: %w", err)
	}

	title := strings.TrimSpace(doc.Find("#productTitle").First().Text())
	if title == "" {
		return Result{}, fmt.Errorf("amazon: product title not found")
	}

	price := parseWholePrice(doc.Find(".a-price-whole").First().Text())
	if price == 0 {
		for _, sel := range formattedPriceSelectors {
			if txt := strings.TrimSpace(doc.Find(sel).First().Text()); txt != "" {
				price = parseFormattedPrice(txt)
				if price > 0 {
					break
				}
			}
		}
	}

	if price == 0 {
		c.log.Debug("product found without usable price", logx.String("url", productURL))
	}
	return Result{Title: title, Price: price}, nil
}
