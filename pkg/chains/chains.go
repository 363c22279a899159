package chains

// Messaging-layer domains of the supported chains
const (
	EthereumDomain = 1
	ArbitrumDomain = 42161
	BaseDomain     = 8453
	OsmosisDomain  = 875
	NeutronDomain  = 1853125230
)

// DomainList contains the list of supported domains
var DomainList = []int{
	EthereumDomain,
	ArbitrumDomain,
	BaseDomain,
	OsmosisDomain,
	NeutronDomain,
}

// chainNames maps domains to their names
var chainNames = map[int]string{
	EthereumDomain: "ETHEREUM",
	ArbitrumDomain: "ARBITRUM",
	BaseDomain:     "BASE",
	OsmosisDomain:  "OSMOSIS",
	NeutronDomain:  "NEUTRON",
}

// bech32Prefixes maps cosmos domains to their account address prefix
var bech32Prefixes = map[int]string{
	OsmosisDomain: "osmo",
	NeutronDomain: "neutron",
}

// defaultGasPrices maps cosmos domains to a sensible minimum gas price
var defaultGasPrices = map[int]string{
	OsmosisDomain: "0.025uosmo",
	NeutronDomain: "0.0053untrn",
}

// GetChainName returns the name of the chain for a given domain
func GetChainName(domain int) string {
	name, exists := chainNames[domain]
	if !exists {
		return ""
	}
	return name
}

// GetBech32Prefix returns the address prefix of a cosmos domain
func GetBech32Prefix(domain int) string {
	return bech32Prefixes[domain]
}

// GetDefaultGasPrice returns the default gas price of a cosmos domain
func GetDefaultGasPrice(domain int) string {
	return defaultGasPrices[domain]
}

// IsCosmosDomain reports whether the domain is a CosmWasm chain
func IsCosmosDomain(domain int) bool {
	_, ok := bech32Prefixes[domain]
	return ok
}
