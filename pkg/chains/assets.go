package chains

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

// Well-known tokens and denominations
const (
	ArbitrumUSDCAddress = "0xaf88d065e77c8cC2239327C5EDb3A432268e5831"
	OsmosisUSDCDenom    = "ibc/498A0751C798A0D9A389AA3691123DADA57DAA4FE165D5C75894505B876BA6E4"
	NeutronUSDCDenom    = "ibc/B559A80D62249C8AA07A380E2A2BEA6E5CA9A6F079C912C3A9E9B494105E4F81"
)

type assetKey struct {
	token  [32]byte
	domain uint32
}

// AssetTable maps a source token, as a bytes32, to its denomination on a destination domain
type AssetTable struct {
	mu      sync.RWMutex
	entries map[assetKey]string
}

// NewAssetTable creates an empty asset table
func NewAssetTable() *AssetTable {
	return &AssetTable{entries: make(map[assetKey]string)}
}

// DefaultAssetTable returns the built-in mappings
func DefaultAssetTable() *AssetTable {
	t := NewAssetTable()
	usdc := translate.EVMAddressToBytes32(common.HexToAddress(ArbitrumUSDCAddress))
	t.Set(usdc, OsmosisDomain, OsmosisUSDCDenom)
	t.Set(usdc, NeutronDomain, NeutronUSDCDenom)
	return t
}

// Set adds or overrides a mapping
func (t *AssetTable) Set(token [32]byte, domain uint32, denom string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[assetKey{token: token, domain: domain}] = denom
}

// Lookup returns the denomination of token on domain
func (t *AssetTable) Lookup(token [32]byte, domain uint32) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	denom, ok := t.entries[assetKey{token: token, domain: domain}]
	return denom, ok
}

// Denoms returns the distinct denominations mapped on domain
func (t *AssetTable) Denoms(domain uint32) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for key, denom := range t.entries {
		if key.domain == domain && !seen[denom] {
			seen[denom] = true
			out = append(out, denom)
		}
	}
	return out
}

// Len returns the number of mappings
func (t *AssetTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
