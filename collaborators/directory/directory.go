// Package directory is a reference User/Wallet Directory collaborator:
// an HTTP client over the caller's persistent wallet deployment
// records. The directory's own persistent store is explicitly out of
// scope.
package directory

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	safegmx "github.com/purvik6062/safegmx"
)

// Client calls a wallet directory's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New wires a directory client against baseURL.
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

type deploymentDTO struct {
	WalletAddress string `json:"walletAddress"`
	NetworkKey    string `json:"networkKey"`
	Active        bool   `json:"active"`
	Status        string `json:"status"`
}

// GetWallet implements scheduler.Directory.
func (c *Client) GetWallet(callerId string) ([]safegmx.WalletDeployment, error) {
	resp, err := c.http.Get(fmt.Sprintf("%s/wallets/%s", c.baseURL, callerId))
	if err != nil {
		return nil, fmt.Errorf("directory: get wallet for %s: %w", callerId, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("directory: lookup for %s returned status %d", callerId, resp.StatusCode)
	}

	var dtos []deploymentDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("directory: decode response: %w", err)
	}

	out := make([]safegmx.WalletDeployment, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, safegmx.WalletDeployment{
			CallerId:      callerId,
			WalletAddress: d.WalletAddress,
			NetworkKey:    safegmx.NetworkKey(d.NetworkKey),
			Active:        d.Active,
			Status:        d.Status,
		})
	}
	return out, nil
}
