// Package resolver implements the Token/Chain Resolver:
// union-merges three ranked sources of token bindings, caches the
// result per symbol with single-flight stampede protection, and caches
// negative lookups for a shorter TTL.
package resolver

import (
	"time"

	safegmx "github.com/purvik6062/safegmx"
	"github.com/purvik6062/safegmx/internal/cache"
)

// Source satisfies one of the resolver's three ranked lookup sources:
// built-in registry, external token-metadata registry, or DEX listing
// index.
type Source interface {
	LookupTokenBindings(symbol string) ([]safegmx.TokenBinding, error)
}

const (
	positiveTTL   = 5 * time.Minute
	negativeTTL   = 30 * time.Second
	cacheCapacity = 4096
)

// Resolver implements safegmx.Resolver.
type Resolver struct {
	registry Source // built-in, highest priority
	external Source // external token-metadata registry
	listing  Source // DEX listing index, lowest priority; no base-side filtering is applied

	positive *cache.TTLCache[string, []safegmx.TokenBinding]
	negative *cache.TTLCache[string, struct{}]
}

// New wires the three ranked sources in priority order.
func New(registry, external, listing Source) *Resolver {
	return &Resolver{
		registry: registry,
		external: external,
		listing:  listing,
		positive: cache.NewTTLCache[string, []safegmx.TokenBinding](cacheCapacity, positiveTTL),
		negative: cache.NewTTLCache[string, struct{}](cacheCapacity, negativeTTL),
	}
}

// ResolveBindings implements safegmx.Resolver.
func (r *Resolver) ResolveBindings(symbol string, active []safegmx.WalletDeployment) ([]safegmx.TokenBinding, error) {
	if _, negative := r.negative.Get(symbol); negative {
		return nil, nil
	}

	bindings, err := r.positive.GetOrLoad(symbol, func(s string) string { return s }, func() ([]safegmx.TokenBinding, error) {
		return r.lookupAllSources(symbol)
	})
	if err != nil {
		return nil, err
	}

	if len(bindings) == 0 {
		r.positive.Remove(symbol)
		r.negative.Set(symbol, struct{}{})
		return nil, nil
	}

	return rank(bindings, active), nil
}

// lookupAllSources queries all three sources, union-merging successful
// results and only failing the whole lookup if every source errors.
func (r *Resolver) lookupAllSources(symbol string) ([]safegmx.TokenBinding, error) {
	type result struct {
		bindings []safegmx.TokenBinding
		err      error
	}
	results := make([]result, 0, 3)

	if r.registry != nil {
		b, err := r.registry.LookupTokenBindings(symbol)
		results = append(results, result{b, err})
	}
	if r.external != nil {
		b, err := r.external.LookupTokenBindings(symbol)
		results = append(results, result{b, err})
	}
	if r.listing != nil {
		b, err := r.listing.LookupTokenBindings(symbol)
		results = append(results, result{filterBaseSide(b), err})
	}

	var merged []safegmx.TokenBinding
	allFailed := len(results) > 0
	for _, res := range results {
		if res.err == nil {
			allFailed = false
			merged = append(merged, res.bindings...)
		}
	}
	if allFailed {
		// Individual source errors are discarded, not logged. The
		// lookup fails only when every configured source returns an
		// error, of any kind, and is then reported as retriable. The closed error code
		// set has no dedicated code for this case; the nearest
		// retriable network code, PRICE_DATA_UNAVAILABLE, stands in.
		return nil, safegmx.NewError(safegmx.CodePriceDataUnavailable, safegmx.KindNetwork,
			"all token resolution sources are unreachable, retry shortly", safegmx.Context{
				Service: "resolver", Operation: "ResolveBindings",
			})
	}

	return dedupe(merged), nil
}

func filterBaseSide(bindings []safegmx.TokenBinding) []safegmx.TokenBinding {
	out := make([]safegmx.TokenBinding, 0, len(bindings))
	for _, b := range bindings {
		if b.Source == safegmx.SourceListing {
			out = append(out, b)
		}
	}
	return out
}

// dedupe removes duplicates keyed by (networkKey, contractAddress),
// keeping the first (highest-priority-source) occurrence.
func dedupe(bindings []safegmx.TokenBinding) []safegmx.TokenBinding {
	seen := make(map[string]bool, len(bindings))
	out := make([]safegmx.TokenBinding, 0, len(bindings))
	for _, b := range bindings {
		key := string(b.NetworkKey) + "|" + b.ContractAddress
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, b)
	}
	return out
}

// rank orders bindings by source priority, then verification, then
// whether the caller has an active deployment on that network (moved
// to the front without dropping the others).
func rank(bindings []safegmx.TokenBinding, active []safegmx.WalletDeployment) []safegmx.TokenBinding {
	activeNetworks := make(map[safegmx.NetworkKey]bool, len(active))
	for _, a := range active {
		if a.Active {
			activeNetworks[a.NetworkKey] = true
		}
	}

	out := make([]safegmx.TokenBinding, len(bindings))
	copy(out, bindings)

	sourceRank := func(s safegmx.TokenSource) int {
		switch s {
		case safegmx.SourceKnown:
			return 0
		case safegmx.SourceRegistry:
			return 1
		default:
			return 2
		}
	}

	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && less(out[j], out[j-1], sourceRank, activeNetworks) {
			out[j], out[j-1] = out[j-1], out[j]
			j--
		}
	}
	return out
}

func less(a, b safegmx.TokenBinding, sourceRank func(safegmx.TokenSource) int, activeNetworks map[safegmx.NetworkKey]bool) bool {
	ra, rb := sourceRank(a.Source), sourceRank(b.Source)
	if ra != rb {
		return ra < rb
	}
	if a.Verified != b.Verified {
		return a.Verified
	}
	aActive, bActive := activeNetworks[a.NetworkKey], activeNetworks[b.NetworkKey]
	if aActive != bActive {
		return aActive
	}
	return false
}
