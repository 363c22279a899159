package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
	"github.com/speedrun-hq/gofast-relayer/pkg/translate"
)

const (
	// DefaultSourceRPCURL is the default source chain RPC endpoint
	DefaultSourceRPCURL = "https://arb1.arbitrum.io/rpc"

	// DefaultSourceChainID is the default source chain domain
	DefaultSourceChainID = chains.ArbitrumDomain

	// DefaultSourceSettlerAddress is the go-fast ERC-7683 settler on Arbitrum
	DefaultSourceSettlerAddress = "0x92188c8200869b7bfB9A867C545ea723bD8AfEA1"

	// DefaultSourceMailboxAddress is the Hyperlane mailbox on Arbitrum
	DefaultSourceMailboxAddress = "0x979Ca5202784112f4738403dBec5D0F3B9daabB9"

	// DefaultMaxBlockRange defines the maximum number of blocks per log query
	DefaultMaxBlockRange = 2000

	// DefaultConfirmationBlocks defines how far behind head the watcher stays when polling
	DefaultConfirmationBlocks = 0

	// DefaultPollingInterval defines the default polling interval in seconds
	DefaultPollingInterval = 5

	// DefaultDestRESTURL is the default destination chain REST endpoint
	DefaultDestRESTURL = "https://osmosis-api.polkachu.com"

	// DefaultDestChainID is the default destination chain id
	DefaultDestChainID = "osmosis-1"

	// DefaultDestDomain is the default destination domain
	DefaultDestDomain = chains.OsmosisDomain

	// DefaultGasMultiplier defines the safety factor applied to simulated gas
	DefaultGasMultiplier = cosmos.DefaultGasMultiplier

	// DefaultFillDialect defines the execute message used for unknown settlers
	DefaultFillDialect = chains.DialectFill

	// DefaultTxConfirmTimeout defines how long to wait for a fill to be included
	DefaultTxConfirmTimeout = 60 * time.Second

	// DefaultWorkerCount defines the default number of workers to process orders
	DefaultWorkerCount = 5

	// DefaultMaxRetries defines the maximum number of retries for failed fills
	DefaultMaxRetries = 3

	// DefaultFillTimeout bounds a single fill attempt
	DefaultFillTimeout = 2 * time.Minute

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker in seconds
	DefaultCircuitBreakerWindow = 60

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker in seconds
	DefaultCircuitBreakerReset = 300

	// DefaultLogLevel defines the default log level
	DefaultLogLevel = logger.InfoLevel

	// DefaultLogColoring defines whether console output is coloured
	DefaultLogColoring = true

	// DefaultLogFormat defines the default log output format
	DefaultLogFormat = LogFormatText

	// DefaultSettlementFee is the Hyperlane fee attached when the gateway cannot quote one
	DefaultSettlementFee = "270000ibc/773B4D0A3CD667B2275D5A4A7A2F0909C0BA0F4059C0B9181E680DDF4965DCC7"

	// DefaultSettlementLookbackBlocks defines how far back delivery of a settlement is searched
	DefaultSettlementLookbackBlocks = 10_000_000

	// DefaultBalanceMonitorInterval defines how often solver balances are refreshed
	DefaultBalanceMonitorInterval = 60 * time.Second
)

// Log output formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

func getEnvBool(name string, def bool) (bool, error) {
	value := os.Getenv(name)
	if value == "" {
		return def, nil
	}

	if value == "true" {
		return true, nil
	} else if value == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", name, value)
}

func getEnvURL(name, def string, schemes ...string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return def, nil
	}

	u, err := url.ParseRequestURI(value)
	if err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", name, value)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid %s value: %s, scheme must be one of %s", name, value, strings.Join(schemes, ", "))
}

func getEnvSeconds(name string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return def, nil
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		// accept Go duration strings as well
		parsed, perr := time.ParseDuration(value)
		if perr != nil {
			return 0, fmt.Errorf("invalid %s value: %s, must be seconds or a valid duration string", name, value)
		}
		if parsed <= 0 {
			return 0, fmt.Errorf("%s must be greater than 0", name)
		}
		return parsed, nil
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return time.Duration(seconds) * time.Second, nil
}

func getEnvUint(name string, def uint64) (uint64, error) {
	value := os.Getenv(name)
	if value == "" {
		return def, nil
	}

	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a non-negative integer", name, value)
	}
	return parsed, nil
}

func getEnvEVMAddress(name, def string) (common.Address, error) {
	value := os.Getenv(name)
	if value == "" {
		value = def
	}

	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s value: %s, must be a valid Ethereum address", name, value)
	}
	return common.HexToAddress(value), nil
}

// GetEnvSourceRPCURL returns the source chain RPC endpoint
func GetEnvSourceRPCURL() (string, error) {
	return getEnvURL("SOURCE_RPC_URL", DefaultSourceRPCURL, "http", "https", "ws", "wss")
}

// GetEnvSourceWSURL returns the optional source chain websocket endpoint
func GetEnvSourceWSURL() (string, error) {
	return getEnvURL("SOURCE_WS_URL", "", "ws", "wss")
}

// GetEnvSourceChainID returns the source chain domain
func GetEnvSourceChainID() (int, error) {
	chainID := os.Getenv("SOURCE_CHAIN_ID")
	if chainID == "" {
		return DefaultSourceChainID, nil
	}

	id, err := strconv.Atoi(chainID)
	if err != nil {
		return 0, fmt.Errorf("invalid SOURCE_CHAIN_ID value: %s, must be an integer", chainID)
	}
	if id <= 0 {
		return 0, fmt.Errorf("SOURCE_CHAIN_ID must be greater than 0")
	}
	return id, nil
}

// GetEnvSourceSettlerAddress returns the ERC-7683 settler emitting Open events
func GetEnvSourceSettlerAddress() (common.Address, error) {
	return getEnvEVMAddress("SOURCE_SETTLER_ADDRESS", DefaultSourceSettlerAddress)
}

// GetEnvSourceMailboxAddress returns the Hyperlane mailbox on the source chain
func GetEnvSourceMailboxAddress() (common.Address, error) {
	return getEnvEVMAddress("SOURCE_MAILBOX_ADDRESS", DefaultSourceMailboxAddress)
}

// GetEnvStartBlock returns the block the watcher starts from, 0 meaning the current head
func GetEnvStartBlock() (uint64, error) {
	return getEnvUint("START_BLOCK", 0)
}

// GetEnvMaxBlockRange returns the maximum number of blocks per log query
func GetEnvMaxBlockRange() (uint64, error) {
	maxRange, err := getEnvUint("MAX_BLOCK_RANGE", DefaultMaxBlockRange)
	if err != nil {
		return 0, err
	}
	if maxRange == 0 {
		return 0, fmt.Errorf("MAX_BLOCK_RANGE must be greater than 0")
	}
	return maxRange, nil
}

// GetEnvConfirmationBlocks returns how many blocks behind head the watcher stays
func GetEnvConfirmationBlocks() (uint64, error) {
	return getEnvUint("CONFIRMATION_BLOCKS", DefaultConfirmationBlocks)
}

// GetEnvPollingInterval returns the polling interval from environment variables
func GetEnvPollingInterval() (time.Duration, error) {
	return getEnvSeconds("POLLING_INTERVAL", DefaultPollingInterval*time.Second)
}

// GetEnvDestRESTURL returns the destination chain REST endpoint
func GetEnvDestRESTURL() (string, error) {
	return getEnvURL("DEST_REST_URL", DefaultDestRESTURL, "http", "https")
}

// GetEnvDestChainID returns the destination chain id
func GetEnvDestChainID() (string, error) {
	chainID := os.Getenv("DEST_CHAIN_ID")
	if chainID == "" {
		return DefaultDestChainID, nil
	}
	return chainID, nil
}

// GetEnvDestDomain returns the destination domain, 0 disables filtering legs by domain
func GetEnvDestDomain() (uint32, error) {
	domain := os.Getenv("DEST_DOMAIN")
	if domain == "" {
		return DefaultDestDomain, nil
	}

	parsed, err := strconv.ParseUint(domain, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid DEST_DOMAIN value: %s, must be a 32-bit unsigned integer", domain)
	}
	return uint32(parsed), nil
}

// GetEnvDestBech32Prefix returns the destination address prefix, derived from the domain when unset
func GetEnvDestBech32Prefix(domain uint32) (string, error) {
	prefix := os.Getenv("DEST_BECH32_PREFIX")
	if prefix == "" {
		prefix = chains.GetBech32Prefix(int(domain))
	}
	if prefix == "" {
		return "", fmt.Errorf("DEST_BECH32_PREFIX is required for destination domain %d", domain)
	}
	return prefix, nil
}

// GetEnvGasPrice returns the destination gas price, derived from the domain when unset
func GetEnvGasPrice(domain uint32) (cosmos.GasPrice, error) {
	price := os.Getenv("GAS_PRICE")
	if price == "" {
		price = chains.GetDefaultGasPrice(int(domain))
	}
	if price == "" {
		return cosmos.GasPrice{}, fmt.Errorf("GAS_PRICE is required for destination domain %d", domain)
	}

	parsed, err := cosmos.ParseGasPrice(price)
	if err != nil {
		return cosmos.GasPrice{}, fmt.Errorf("invalid GAS_PRICE value: %v", err)
	}
	return parsed, nil
}

// GetEnvGasMultiplier returns the safety factor applied to simulated gas
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	parsed, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a number", multiplier)
	}
	if parsed < 1 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be at least 1")
	}
	return parsed, nil
}

// GetEnvFillDialect returns the execute message used for settlers without an explicit entry
func GetEnvFillDialect() (chains.Dialect, error) {
	dialect := os.Getenv("FILL_DIALECT")
	if dialect == "" {
		return DefaultFillDialect, nil
	}
	return chains.ParseDialect(dialect)
}

// GetEnvTxConfirmTimeout returns how long to wait for inclusion of a broadcast transaction
func GetEnvTxConfirmTimeout() (time.Duration, error) {
	return getEnvSeconds("TX_CONFIRM_TIMEOUT", DefaultTxConfirmTimeout)
}

// GetEnvSignerURL returns the remote signer endpoint
func GetEnvSignerURL() (string, error) {
	signerURL, err := getEnvURL("SIGNER_URL", "", "http", "https")
	if err != nil {
		return "", err
	}
	if signerURL == "" {
		return "", fmt.Errorf("SIGNER_URL environment variable is required")
	}
	return signerURL, nil
}

// GetEnvSignerAddress returns the expected signer address, empty to accept whatever the signer reports
func GetEnvSignerAddress() (string, error) {
	address := os.Getenv("SIGNER_ADDRESS")
	if address == "" {
		return "", nil
	}
	if _, _, err := translate.Bech32ToBytes(address); err != nil {
		return "", fmt.Errorf("invalid SIGNER_ADDRESS value: %s, must be a bech32 address", address)
	}
	return address, nil
}

// GetEnvAssetMapFile returns the optional asset and settler table file
func GetEnvAssetMapFile() (string, error) {
	path := os.Getenv("ASSET_MAP_FILE")
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("invalid ASSET_MAP_FILE value: %v", err)
	}
	return path, nil
}

// GetEnvAssetTextFallback returns whether tokens may be read as zero-padded denom text
func GetEnvAssetTextFallback() (bool, error) {
	return getEnvBool("ASSET_TEXT_FALLBACK", false)
}

// GetEnvWorkerCount returns the number of workers from environment variables
func GetEnvWorkerCount() (int, error) {
	workerCount := os.Getenv("WORKER_COUNT")
	if workerCount == "" {
		return DefaultWorkerCount, nil
	}

	// use atoi
	count, err := strconv.Atoi(workerCount)
	if err != nil {
		return 0, fmt.Errorf("invalid WORKER_COUNT value: %s, must be an integer", workerCount)
	}
	if count <= 0 {
		return 0, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}
	return count, nil
}

// GetEnvMaxRetries returns the maximum number of retries from environment variables
func GetEnvMaxRetries() (int, error) {
	maxRetries := os.Getenv("MAX_RETRIES")
	if maxRetries == "" {
		return DefaultMaxRetries, nil
	}

	maxRetriesInt, err := strconv.Atoi(maxRetries)
	if err != nil {
		return 0, fmt.Errorf("invalid MAX_RETRIES value: %s, must be an integer", maxRetries)
	}
	if maxRetriesInt < 0 {
		return 0, fmt.Errorf("MAX_RETRIES must be greater than or equal to 0")
	}
	return maxRetriesInt, nil
}

// GetEnvFillTimeout returns the time budget of a single fill attempt
func GetEnvFillTimeout() (time.Duration, error) {
	return getEnvSeconds("FILL_TIMEOUT", DefaultFillTimeout)
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	return getEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	window := os.Getenv("CIRCUIT_BREAKER_WINDOW")
	if window == "" {
		return DefaultCircuitBreakerWindow * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(window)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_WINDOW value: %s, must be a valid duration string", window)
	}
	return parsed, nil
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	reset := os.Getenv("CIRCUIT_BREAKER_RESET")
	if reset == "" {
		return DefaultCircuitBreakerReset * time.Second, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(reset)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_RESET value: %s, must be a valid duration string", reset)
	}
	return parsed, nil
}

// GetEnvLogLevel returns the minimum log level
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return DefaultLogLevel, nil
	}

	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of debug, info, notice, error", level)
	}
	return parsed, nil
}

// GetEnvLogColoring returns whether console output is coloured
func GetEnvLogColoring() (bool, error) {
	return getEnvBool("LOG_COLORING", DefaultLogColoring)
}

// GetEnvLogFormat returns the log output format
func GetEnvLogFormat() (string, error) {
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		return DefaultLogFormat, nil
	}
	if format != LogFormatText && format != LogFormatJSON {
		return "", fmt.Errorf("invalid LOG_FORMAT value: %s, must be 'text' or 'json'", format)
	}
	return format, nil
}

// GetEnvSettlementEnabled returns whether confirmed fills are settled automatically
func GetEnvSettlementEnabled() (bool, error) {
	return getEnvBool("SETTLEMENT_ENABLED", false)
}

// GetEnvSettlementGatewayAddress returns the destination gateway contract settling fills
func GetEnvSettlementGatewayAddress() (string, error) {
	address := os.Getenv("SETTLEMENT_GATEWAY_ADDRESS")
	if address == "" {
		return "", nil
	}
	if _, _, err := translate.Bech32ToBytes(address); err != nil {
		return "", fmt.Errorf("invalid SETTLEMENT_GATEWAY_ADDRESS value: %s, must be a bech32 address", address)
	}
	return address, nil
}

// GetEnvSettlementRepaymentAddress returns the source chain address repaid on settlement as unprefixed bytes32 hex
func GetEnvSettlementRepaymentAddress() (string, error) {
	address := os.Getenv("SETTLEMENT_REPAYMENT_ADDRESS")
	if address == "" {
		return "", nil
	}

	if common.IsHexAddress(address) {
		padded := translate.EVMAddressToBytes32(common.HexToAddress(address))
		return translate.BytesToHex(padded[:]), nil
	}

	raw, err := translate.HexToBytes(address)
	if err != nil || len(raw) != translate.Bytes32Length {
		return "", fmt.Errorf("invalid SETTLEMENT_REPAYMENT_ADDRESS value: %s, must be an EVM address or 32 bytes of hex", address)
	}
	return translate.BytesToHex(raw), nil
}

// GetEnvSettlementFee returns the fallback protocol fee attached to settlement messages
func GetEnvSettlementFee() (cosmos.Coin, error) {
	fee := os.Getenv("SETTLEMENT_FEE")
	if fee == "" {
		fee = DefaultSettlementFee
	}

	coin, err := cosmos.ParseCoin(fee)
	if err != nil {
		return cosmos.Coin{}, fmt.Errorf("invalid SETTLEMENT_FEE value: %v", err)
	}
	return coin, nil
}

// GetEnvSettlementLookbackBlocks returns how many source blocks are searched for delivery
func GetEnvSettlementLookbackBlocks() (uint64, error) {
	return getEnvUint("SETTLEMENT_LOOKBACK_BLOCKS", DefaultSettlementLookbackBlocks)
}

// GetEnvBalanceMonitorInterval returns how often solver balances are refreshed
func GetEnvBalanceMonitorInterval() (time.Duration, error) {
	return getEnvSeconds("BALANCE_MONITOR_INTERVAL", DefaultBalanceMonitorInterval)
}
