// Package aggregator is a reference DEX Aggregator collaborator: an
// HTTP client that turns a sell/buy token pair and amount into a swap
// Quote, and exposes the aggregator's advisory per-token minimum sell
// amount. Its own pricing/routing logic is explicitly out of scope;
// this is wire plumbing only.
package aggregator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/util"
)

// Client calls a DEX aggregator's HTTP quote API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New wires an aggregator HTTP client against baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

type quoteRequest struct {
	Network       string `json:"network"`
	Wallet        string `json:"wallet"`
	SellToken     string `json:"sellToken"`
	BuyToken      string `json:"buyToken"`
	SellAmountRaw string `json:"sellAmountRaw"`
	SlippageBps   int64  `json:"slippageBps"`
}

type quoteResponse struct {
	To               string `json:"to"`
	Data             string `json:"data"`
	Value            string `json:"value"`
	GasHint          uint64 `json:"gasHint"`
	Spender          string `json:"spender"`
	BuyAmountHintRaw string `json:"buyAmountHintRaw"`
}

// Quote implements internal/route.Aggregator.
func (c *Client) Quote(network safegmx.NetworkKey, walletAddress string, sellBinding, buyBinding safegmx.TokenBinding, sellAmountRaw *big.Int, slippageBps int64) (safegmx.Quote, error) {
	req := quoteRequest{
		Network:       string(network),
		Wallet:        walletAddress,
		SellToken:     sellBinding.ContractAddress,
		BuyToken:      buyBinding.ContractAddress,
		SellAmountRaw: sellAmountRaw.String(),
		SlippageBps:   slippageBps,
	}

	var resp quoteResponse
	if err := c.post("/quote", req, &resp); err != nil {
		return safegmx.Quote{}, safegmx.WrapError(safegmx.CodeSwapQuoteFailed, "", "aggregator quote request failed", safegmx.Context{
			Service: "aggregator", Operation: "Quote", NetworkKey: network, WalletAddress: walletAddress,
		}, err)
	}

	value, ok := new(big.Int).SetString(resp.Value, 10)
	if !ok {
		value = big.NewInt(0)
	}
	buyHint, ok := new(big.Int).SetString(resp.BuyAmountHintRaw, 10)
	if !ok {
		buyHint = nil
	}

	data, _ := util.Hex2Bytes(resp.Data)

	return safegmx.Quote{
		To:               resp.To,
		Data:             data,
		Value:            value,
		GasHint:          resp.GasHint,
		Spender:          resp.Spender,
		BuyAmountHintRaw: buyHint,
	}, nil
}

// MinSellAmountRaw implements internal/sizer.MinAmountSource.
func (c *Client) MinSellAmountRaw(symbol string, network safegmx.NetworkKey) (*big.Int, error) {
	var resp struct {
		MinSellAmountRaw string `json:"minSellAmountRaw"`
	}
	if err := c.get(fmt.Sprintf("/minimum?symbol=%s&network=%s", symbol, network), &resp); err != nil {
		return nil, safegmx.WrapError(safegmx.CodeSwapQuoteFailed, "", "aggregator minimum lookup failed", safegmx.Context{
			Service: "aggregator", Operation: "MinSellAmountRaw", NetworkKey: network,
		}, err)
	}
	min, ok := new(big.Int).SetString(resp.MinSellAmountRaw, 10)
	if !ok {
		return big.NewInt(0), nil
	}
	return min, nil
}

func (c *Client) post(path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("aggregator: marshal request: %w", err)
	}
	resp, err := c.http.Post(c.baseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("aggregator: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("aggregator: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("aggregator: get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("aggregator: %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
