// Package lookup resolves a product URL to its current title and price.
//
// Two backends implement the same contract: an HTML scrape of the product
// page and a structured JSON product API. Callers never see which one is
// configured.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricewatch/pkg/logx"
)

// Result is the outcome of a successful fetch. Price is in minor currency
// units; zero means the product was found but carried no usable price, which
// callers must treat differently from a fetch failure.
type Result struct {
	Title string
	Price int64
}

func (r Result) PriceAvailable() bool { return r.Price > 0 }

// Client fetches current product details for a URL. Implementations bound
// the call with their configured timeout and return an error only for
// transport-level or parse-level failures, never a panic.
type Client interface {
	Fetch(ctx context.Context, productURL string) (Result, error)
}

const (
	BackendAmazon = "amazon"
	BackendAPI    = "api"

	defaultTimeout = 25 * time.Second
)

type Options struct {
	Backend string
	Timeout time.Duration
	APIURL  string
	APIKey  string
}

// New builds the configured backend. An unknown backend name is a startup
// error rather than a silent default.
func New(opts Options, log logx.Logger) (Client, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendAmazon:
		return newAmazon(timeout, log), nil
	case BackendAPI:
		return newAPI(opts.APIURL, opts.APIKey, timeout, log)
	default:
		return nil, fmt.Errorf("unknown lookup.backend: %s", opts.Backend)
	}
}
