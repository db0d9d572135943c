// Package config loads and validates ChainGuard's process configuration.
//
// Every variable is enumerated up front; loading fails fast on a missing
// or invalid value rather than limping along with a zero value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
)

type LogLevel string

const (
	LogLevelError LogLevel = "error"
	LogLevelWarn  LogLevel = "warn"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

// NetworkEndpoints holds the RPC/WS pair and the explorer-style history
// API base URL for one chain network.
type NetworkEndpoints struct {
	RPCURL      string
	WSURL       string
	ExplorerURL string
}

// Config is the fully validated process configuration.
type Config struct {
	NodeEnv Environment
	Port    int

	DatabaseURL string
	RedisURL    string // optional; "" disables multi-instance push fan-out

	JWTSecret string

	Testnet NetworkEndpoints
	Mainnet NetworkEndpoints

	LLMWebhookURL string
	FrontendURL   string

	TestnetPrivateKey string // optional; "" disables on-chain publishing
	InstanceID        string // optional; surfaces in /metrics

	OracleContractAddress string // the ChainGuard oracle/registry contract publishing targets
	OracleChainID         int64

	LogLevel LogLevel
}

// Load reads the environment and returns a validated Config, or the first
// validation error encountered.
func Load() (*Config, error) {
	cfg := &Config{
		NodeEnv: Environment(envOrDefault("NODE_ENV", string(EnvDevelopment))),
		Port:    envInt("PORT", 3000),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		Testnet: NetworkEndpoints{
			RPCURL:      envOrDefault("TESTNET_RPC_URL", "https://testnet-rpc.chainguard.local"),
			WSURL:       envOrDefault("TESTNET_WS_URL", "wss://testnet-ws.chainguard.local"),
			ExplorerURL: envOrDefault("TESTNET_EXPLORER_URL", "https://testnet-explorer.chainguard.local"),
		},
		Mainnet: NetworkEndpoints{
			RPCURL:      envOrDefault("MAINNET_RPC_URL", "https://mainnet-rpc.chainguard.local"),
			WSURL:       envOrDefault("MAINNET_WS_URL", "wss://mainnet-ws.chainguard.local"),
			ExplorerURL: envOrDefault("MAINNET_EXPLORER_URL", "https://mainnet-explorer.chainguard.local"),
		},

		LLMWebhookURL: os.Getenv("LLM_WEBHOOK_URL"),
		FrontendURL:   os.Getenv("FRONTEND_URL"),

		TestnetPrivateKey: os.Getenv("TESTNET_PRIVATE_KEY"),
		InstanceID:        os.Getenv("INSTANCE_ID"),

		OracleContractAddress: os.Getenv("ORACLE_CONTRACT_ADDRESS"),
		OracleChainID:         int64(envInt("ORACLE_CHAIN_ID", 0)),

		LogLevel: LogLevel(envOrDefault("LOG_LEVEL", string(LogLevelInfo))),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.NodeEnv {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: invalid NODE_ENV %q", c.NodeEnv)
	}

	switch c.LogLevel {
	case LogLevelError, LogLevelWarn, LogLevelInfo, LogLevelDebug:
	default:
		return fmt.Errorf("config: invalid LOG_LEVEL %q", c.LogLevel)
	}

	for _, key := range []string{"PORT", "ORACLE_CHAIN_ID"} {
		if v := os.Getenv(key); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				return fmt.Errorf("config: invalid %s %q", key, v)
			}
		}
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("config: JWT_SECRET must be at least 32 characters")
	}
	if c.LLMWebhookURL == "" {
		return fmt.Errorf("config: LLM_WEBHOOK_URL is required")
	}
	if !isURL(c.LLMWebhookURL) {
		return fmt.Errorf("config: LLM_WEBHOOK_URL is not a valid URL")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("config: FRONTEND_URL is required")
	}
	if !isURL(c.FrontendURL) {
		return fmt.Errorf("config: FRONTEND_URL is not a valid URL")
	}
	if c.TestnetPrivateKey != "" && c.OracleContractAddress == "" {
		return fmt.Errorf("config: ORACLE_CONTRACT_ADDRESS is required when TESTNET_PRIVATE_KEY is set")
	}
	for _, n := range []struct {
		name string
		ep   NetworkEndpoints
	}{
		{"TESTNET", c.Testnet},
		{"MAINNET", c.Mainnet},
	} {
		if !isURL(n.ep.RPCURL) {
			return fmt.Errorf("config: %s_RPC_URL is not a valid URL", n.name)
		}
		if !isURL(n.ep.WSURL) {
			return fmt.Errorf("config: %s_WS_URL is not a valid URL", n.name)
		}
		if !isURL(n.ep.ExplorerURL) {
			return fmt.Errorf("config: %s_EXPLORER_URL is not a valid URL", n.name)
		}
	}

	return nil
}

// PublishingEnabled reports whether an on-chain signing key is configured.
func (c *Config) PublishingEnabled() bool {
	return c.TestnetPrivateKey != ""
}

// PushFanoutEnabled reports whether Redis-backed cross-instance fan-out
// is configured.
func (c *Config) PushFanoutEnabled() bool {
	return c.RedisURL != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "ws://") ||
		strings.HasPrefix(s, "wss://")
}
