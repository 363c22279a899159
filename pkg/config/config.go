package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/speedrun-hq/gofast-relayer/pkg/chains"
	"github.com/speedrun-hq/gofast-relayer/pkg/cosmos"
	"github.com/speedrun-hq/gofast-relayer/pkg/logger"
)

// Config holds the configuration for the relayer service
type Config struct {
	Source         SourceConfig
	Destination    DestinationConfig
	Signer         SignerConfig
	Assets         *chains.AssetTable
	Settlers       *chains.SettlerTable
	AssetFallback  bool
	WorkerCount    int
	MaxRetries     int
	FillTimeout    time.Duration
	MetricsPort    string
	MetricsAPIKey  string
	CircuitBreaker CircuitBreakerConfig
	LoggerConfig   LoggerConfig
	Settlement     SettlementConfig
	BalanceMonitor time.Duration
}

// SourceConfig holds the EVM chain the relayer watches
type SourceConfig struct {
	ChainID            int
	RPCURL             string
	WSURL              string
	SettlerAddress     common.Address
	MailboxAddress     common.Address
	StartBlock         uint64
	MaxBlockRange      uint64
	ConfirmationBlocks uint64
	PollingInterval    time.Duration
}

// DestinationConfig holds the CosmWasm chain the relayer fills on
type DestinationConfig struct {
	ChainID          string
	Domain           uint32
	RESTURL          string
	Bech32Prefix     string
	GasPrice         cosmos.GasPrice
	GasMultiplier    float64
	FillDialect      chains.Dialect
	TxConfirmTimeout time.Duration
}

// SignerConfig holds the remote signing service
type SignerConfig struct {
	URL     string
	Address string
}

// SettlementConfig holds the companion settlement path
type SettlementConfig struct {
	Enabled          bool
	GatewayAddress   string
	RepaymentAddress string
	Fee              cosmos.Coin
	LookbackBlocks   uint64
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
	Format   string
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	var (
		cfg = &Config{}
		err error
	)

	src := &cfg.Source
	if src.ChainID, err = GetEnvSourceChainID(); err != nil {
		return nil, err
	}
	if src.RPCURL, err = GetEnvSourceRPCURL(); err != nil {
		return nil, err
	}
	if src.WSURL, err = GetEnvSourceWSURL(); err != nil {
		return nil, err
	}
	if src.SettlerAddress, err = GetEnvSourceSettlerAddress(); err != nil {
		return nil, err
	}
	if src.MailboxAddress, err = GetEnvSourceMailboxAddress(); err != nil {
		return nil, err
	}
	if src.StartBlock, err = GetEnvStartBlock(); err != nil {
		return nil, err
	}
	if src.MaxBlockRange, err = GetEnvMaxBlockRange(); err != nil {
		return nil, err
	}
	if src.ConfirmationBlocks, err = GetEnvConfirmationBlocks(); err != nil {
		return nil, err
	}
	if src.PollingInterval, err = GetEnvPollingInterval(); err != nil {
		return nil, err
	}

	dst := &cfg.Destination
	if dst.ChainID, err = GetEnvDestChainID(); err != nil {
		return nil, err
	}
	if dst.Domain, err = GetEnvDestDomain(); err != nil {
		return nil, err
	}
	if dst.RESTURL, err = GetEnvDestRESTURL(); err != nil {
		return nil, err
	}
	if dst.Bech32Prefix, err = GetEnvDestBech32Prefix(dst.Domain); err != nil {
		return nil, err
	}
	if dst.GasPrice, err = GetEnvGasPrice(dst.Domain); err != nil {
		return nil, err
	}
	if dst.GasMultiplier, err = GetEnvGasMultiplier(); err != nil {
		return nil, err
	}
	if dst.FillDialect, err = GetEnvFillDialect(); err != nil {
		return nil, err
	}
	if dst.TxConfirmTimeout, err = GetEnvTxConfirmTimeout(); err != nil {
		return nil, err
	}

	if cfg.Signer.URL, err = GetEnvSignerURL(); err != nil {
		return nil, err
	}
	if cfg.Signer.Address, err = GetEnvSignerAddress(); err != nil {
		return nil, err
	}

	cfg.Assets = chains.DefaultAssetTable()
	cfg.Settlers = chains.NewSettlerTable(dst.FillDialect)
	assetFile, err := GetEnvAssetMapFile()
	if err != nil {
		return nil, err
	}
	if assetFile != "" {
		if err := LoadAssetFile(assetFile, cfg.Assets, cfg.Settlers); err != nil {
			return nil, err
		}
	}
	if cfg.AssetFallback, err = GetEnvAssetTextFallback(); err != nil {
		return nil, err
	}

	if cfg.WorkerCount, err = GetEnvWorkerCount(); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = GetEnvMaxRetries(); err != nil {
		return nil, err
	}
	if cfg.FillTimeout, err = GetEnvFillTimeout(); err != nil {
		return nil, err
	}
	if cfg.MetricsPort, err = GetEnvMetricsPort(); err != nil {
		return nil, err
	}
	cfg.MetricsAPIKey = os.Getenv("METRICS_API_KEY")

	cb := &cfg.CircuitBreaker
	if cb.Enabled, err = GetEnvCircuitBreakerEnabled(); err != nil {
		return nil, err
	}
	if cb.Threshold, err = GetEnvCircuitBreakerThreshold(); err != nil {
		return nil, err
	}
	if cb.WindowDuration, err = GetEnvCircuitBreakerWindow(); err != nil {
		return nil, err
	}
	if cb.ResetTimeout, err = GetEnvCircuitBreakerReset(); err != nil {
		return nil, err
	}

	lc := &cfg.LoggerConfig
	if lc.Level, err = GetEnvLogLevel(); err != nil {
		return nil, err
	}
	if lc.Coloring, err = GetEnvLogColoring(); err != nil {
		return nil, err
	}
	if lc.Format, err = GetEnvLogFormat(); err != nil {
		return nil, err
	}

	st := &cfg.Settlement
	if st.Enabled, err = GetEnvSettlementEnabled(); err != nil {
		return nil, err
	}
	if st.GatewayAddress, err = GetEnvSettlementGatewayAddress(); err != nil {
		return nil, err
	}
	if st.RepaymentAddress, err = GetEnvSettlementRepaymentAddress(); err != nil {
		return nil, err
	}
	if st.Fee, err = GetEnvSettlementFee(); err != nil {
		return nil, err
	}
	if st.LookbackBlocks, err = GetEnvSettlementLookbackBlocks(); err != nil {
		return nil, err
	}

	if cfg.BalanceMonitor, err = GetEnvBalanceMonitorInterval(); err != nil {
		return nil, err
	}

	// Validate required environment variables
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Signer.URL == "" {
		return fmt.Errorf("SIGNER_URL environment variable is required")
	}
	if cfg.Source.SettlerAddress == (common.Address{}) {
		return fmt.Errorf("SOURCE_SETTLER_ADDRESS must not be the zero address")
	}
	if cfg.Destination.Domain != 0 && int(cfg.Destination.Domain) == cfg.Source.ChainID {
		return fmt.Errorf("DEST_DOMAIN must differ from SOURCE_CHAIN_ID")
	}
	if cfg.Assets.Len() == 0 {
		return fmt.Errorf("at least one asset mapping is required")
	}
	if cfg.Settlement.Enabled {
		if cfg.Settlement.GatewayAddress == "" {
			return fmt.Errorf("SETTLEMENT_GATEWAY_ADDRESS is required when SETTLEMENT_ENABLED is true")
		}
		if cfg.Settlement.RepaymentAddress == "" {
			return fmt.Errorf("SETTLEMENT_REPAYMENT_ADDRESS is required when SETTLEMENT_ENABLED is true")
		}
	}
	return nil
}
