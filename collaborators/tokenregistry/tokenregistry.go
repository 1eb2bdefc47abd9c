// Package tokenregistry provides reference implementations of the Token/
// Chain Resolver's three ranked sources: a built-in
// static registry, an external token-metadata registry reached over
// HTTP, and a DEX listing index reached over HTTP. None of these sources'
// own data-maintenance logic is part of the core.
package tokenregistry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	safegmx "github.com/purvik6062/safegmx"
)

// Static is the built-in registry: a fixed, operator-curated table of
// (symbol, network) -> contract, the highest-priority source.
type Static struct {
	bindings map[string][]safegmx.TokenBinding
}

// NewStatic wires a fixed symbol -> bindings table. Every entry is
// tagged SourceKnown regardless of what the caller passes, since this
// source's whole purpose is to be the trusted table.
func NewStatic(bindings map[string][]safegmx.TokenBinding) *Static {
	tagged := make(map[string][]safegmx.TokenBinding, len(bindings))
	for symbol, bs := range bindings {
		out := make([]safegmx.TokenBinding, len(bs))
		for i, b := range bs {
			b.Source = safegmx.SourceKnown
			out[i] = b
		}
		tagged[symbol] = out
	}
	return &Static{bindings: tagged}
}

// LookupTokenBindings implements internal/resolver.Source.
func (s *Static) LookupTokenBindings(symbol string) ([]safegmx.TokenBinding, error) {
	return s.bindings[symbol], nil
}

// httpSource is the shared shape of the two HTTP-backed sources: call an
// endpoint, tag every result with a fixed TokenSource.
type httpSource struct {
	baseURL string
	path    string
	source  safegmx.TokenSource
	http    *http.Client
}

func newHTTPSource(baseURL, path string, source safegmx.TokenSource) *httpSource {
	return &httpSource{baseURL: baseURL, path: path, source: source, http: &http.Client{Timeout: 5 * time.Second}}
}

type bindingDTO struct {
	NetworkKey      string `json:"networkKey"`
	ContractAddress string `json:"contractAddress"`
	Decimals        uint8  `json:"decimals"`
	IsNative        bool   `json:"isNative"`
	Verified        bool   `json:"verified"`
}

func (h *httpSource) LookupTokenBindings(symbol string) ([]safegmx.TokenBinding, error) {
	resp, err := h.http.Get(fmt.Sprintf("%s%s?symbol=%s", h.baseURL, h.path, symbol))
	if err != nil {
		return nil, fmt.Errorf("tokenregistry: lookup %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("tokenregistry: %s returned status %d", h.path, resp.StatusCode)
	}

	var dtos []bindingDTO
	if err := json.NewDecoder(resp.Body).Decode(&dtos); err != nil {
		return nil, fmt.Errorf("tokenregistry: decode response: %w", err)
	}

	out := make([]safegmx.TokenBinding, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, safegmx.TokenBinding{
			Symbol:          symbol,
			NetworkKey:      safegmx.NetworkKey(d.NetworkKey),
			ContractAddress: d.ContractAddress,
			Decimals:        d.Decimals,
			IsNative:        d.IsNative,
			Source:          h.source,
			Verified:        d.Verified,
		})
	}
	return out, nil
}

// External is the external token-metadata registry source.
type External struct{ *httpSource }

// NewExternal wires an external metadata registry client.
func NewExternal(baseURL string) *External {
	return &External{newHTTPSource(baseURL, "/tokens", safegmx.SourceRegistry)}
}

// Listing is the DEX listing index source. The resolver keeps only its
// SourceListing-tagged results; bindings carry no base/quote marker, so
// no base-side filtering is done.
type Listing struct{ *httpSource }

// NewListing wires a DEX listing index client.
func NewListing(baseURL string) *Listing {
	return &Listing{newHTTPSource(baseURL, "/listings", safegmx.SourceListing)}
}
