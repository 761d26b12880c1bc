// Package pricing is the synchronous client the order saga uses to resolve
// authoritative unit prices from the catalog service.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultTimeout bounds every price lookup. A timeout is treated exactly like
// a non-success response: the product is unavailable for ordering right now.
const DefaultTimeout = 5 * time.Second

// UnavailableError reports that a product's price could not be resolved:
// unknown product, gateway error, timeout or malformed body.
type UnavailableError struct {
	ProductID int64
	Err       error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("product %d not available: %v", e.ProductID, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Client fetches product prices over HTTP. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the catalog service at baseURL
// (e.g. http://product-service:8080).
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// priceResponse is the subset of the catalog product body the saga needs.
type priceResponse struct {
	Price decimal.Decimal `json:"price"`
}

// UnitPrice resolves the current unit price of a product. Every failure mode
// surfaces as *UnavailableError so the saga maps them uniformly.
func (c *Client) UnitPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	url := c.baseURL + "/api/products/" + strconv.FormatInt(productID, 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, &UnavailableError{ProductID: productID, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, &UnavailableError{ProductID: productID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &UnavailableError{
			ProductID: productID,
			Err:       errors.Errorf("status %d", resp.StatusCode),
		}
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, &UnavailableError{ProductID: productID, Err: errors.Wrap(err, "decode body")}
	}
	if body.Price.IsNegative() {
		return decimal.Zero, &UnavailableError{ProductID: productID, Err: errors.New("negative price")}
	}

	return body.Price, nil
}
