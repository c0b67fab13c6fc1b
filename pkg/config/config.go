package config

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ChainFamily distinguishes the two execution environments we index.
type ChainFamily string

const (
	FamilyEVM ChainFamily = "evm"
	FamilySVM ChainFamily = "svm"
)

// Config represents the indexer configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Chains     []ChainConfig    `mapstructure:"chains" validate:"dive"`
	Finalizer  FinalizerConfig  `mapstructure:"finalizer"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `mapstructure:"host" default:"0.0.0.0"`
	Port int    `mapstructure:"port" default:"8080"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host" default:"localhost" validate:"required"`
	Port     int    `mapstructure:"port" default:"5432"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database" default:"transfer_indexer"`
	SSLMode  string `mapstructure:"ssl_mode" default:"disable"`
}

// ChainConfig contains per-chain scanner settings
type ChainConfig struct {
	ChainID            uint64          `mapstructure:"chain_id" validate:"required"`
	Family             ChainFamily     `mapstructure:"family" default:"evm" validate:"oneof=evm svm"`
	RPCURL             string          `mapstructure:"rpc_url"`
	CctpDomain         uint32          `mapstructure:"cctp_domain"`
	// OftEid is this chain's LayerZero endpoint ID. OFTSent logs only carry
	// the destination endpoint, so the source side is stamped from here.
	OftEid             uint32          `mapstructure:"oft_eid"`
	ConfirmationBlocks uint64          `mapstructure:"confirmation_blocks" default:"12"`
	PollingInterval    time.Duration   `mapstructure:"polling_interval" default:"10s"`
	StartBlock         uint64          `mapstructure:"start_block"`
	BatchSize          uint64          `mapstructure:"batch_size" default:"2000"`
	ReceiptChunkSize   int             `mapstructure:"receipt_chunk_size" default:"20"`
	Contracts          ContractsConfig `mapstructure:"contracts"`
}

// ContractsConfig lists the bridge contract addresses watched on one chain.
// An empty address disables the corresponding protocol on that chain.
type ContractsConfig struct {
	AcrossSpokePool        string   `mapstructure:"across_spoke_pool"`
	CctpTokenMessenger     string   `mapstructure:"cctp_token_messenger"`
	CctpMessageTransmitter string   `mapstructure:"cctp_message_transmitter"`
	CctpSponsorPeriphery   string   `mapstructure:"cctp_sponsor_periphery"`
	OftAdapters            []string `mapstructure:"oft_adapters"`
}

// AttestationLatency holds the expected attestation delay for each CCTP
// finality threshold on one chain.
type AttestationLatency struct {
	Fast     time.Duration `mapstructure:"fast" default:"8s"`
	Standard time.Duration `mapstructure:"standard" default:"15m"`
}

// FinalizerConfig contains attestation finalizer scheduler settings
type FinalizerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	AttestationURL string        `mapstructure:"attestation_url" default:"https://iris-api.circle.com"`
	Production     bool          `mapstructure:"production"`
	TickInterval   time.Duration `mapstructure:"tick_interval" default:"30s"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" default:"10m"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" default:"15s"`
	// AttestationLatency is keyed by chain ID. A burn on a chain with no
	// entry is surfaced by the scheduler as a configuration error: chains
	// may be scanned without being finalized by this deployment.
	AttestationLatency map[uint64]AttestationLatency `mapstructure:"attestation_latency"`
}

// MonitoringConfig contains monitoring and metrics settings
type MonitoringConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port" default:"9090"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level" default:"info"`
	Format     string `mapstructure:"format" default:"json"`
	OutputPath string `mapstructure:"output_path" default:"stdout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := defaults.Set(&config); err != nil {
		return nil, fmt.Errorf("failed to apply config defaults: %w", err)
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Chain returns the configuration for the given chain ID.
func (c *Config) Chain(chainID uint64) (*ChainConfig, bool) {
	for i := range c.Chains {
		if c.Chains[i].ChainID == chainID {
			return &c.Chains[i], true
		}
	}
	return nil, false
}
