// Package pricefeed is a reference Price Feed collaborator: an HTTP client the Position Monitor polls for a symbol's current
// price. The feed's own data sourcing is explicitly out of scope
//; this is wire plumbing only.
package pricefeed

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	safegmx "github.com/purvik6062/safegmx"
)

// Client calls a price feed's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New wires a price feed client against baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

// GetPrice implements internal/monitor.PriceFeed.
func (c *Client) GetPrice(symbol string) (*big.Float, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/price?symbol=%s", c.baseURL, symbol))
	if err != nil {
		return nil, safegmx.WrapError(safegmx.CodePriceDataUnavailable, "", "price feed request failed", safegmx.Context{
			Service: "pricefeed", Operation: "GetPrice",
		}, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, safegmx.NewError(safegmx.CodeAPIRateLimited, "", "price feed rate limited", safegmx.Context{
			Service: "pricefeed", Operation: "GetPrice",
		})
	}
	if resp.StatusCode >= 400 {
		return nil, safegmx.NewError(safegmx.CodePriceDataUnavailable, "", fmt.Sprintf("price feed returned status %d", resp.StatusCode), safegmx.Context{
			Service: "pricefeed", Operation: "GetPrice",
		})
	}

	var body struct {
		Price string `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, safegmx.WrapError(safegmx.CodePriceDataUnavailable, "", "malformed price feed response", safegmx.Context{
			Service: "pricefeed", Operation: "GetPrice",
		}, err)
	}

	price, ok := new(big.Float).SetString(body.Price)
	if !ok {
		return nil, safegmx.NewError(safegmx.CodePriceDataUnavailable, "", fmt.Sprintf("unparseable price %q", body.Price), safegmx.Context{
			Service: "pricefeed", Operation: "GetPrice",
		})
	}
	return price, nil
}
