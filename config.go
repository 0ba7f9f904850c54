package mintgate

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Defaults matching the deployed contract setup.
const (
	DefaultPrice             = 10_000_000 // 10 USDC in 6-decimal units
	DefaultMintGasLimit      = 300_000
	DefaultMaxTimeoutSeconds = 600
	DefaultResource          = "mint:x402apes:1"
	DefaultNetwork           = "base"
	DefaultAsset             = "USDC"
	DefaultX402Version       = 1
)

// Config carries everything the mint service consumes. The core treats these
// as inputs; loading and validation happen once at startup.
type Config struct {
	// Chain endpoints and identities.
	RPCURL          string
	PaymentToken    common.Address // ERC-20 contract whose transfers qualify
	Treasury        common.Address // account that must receive the payment
	MintContract    common.Address
	OwnerPrivateKey string // hex, with or without 0x prefix

	// Price in the token's smallest unit.
	Price *big.Int

	// Mint submission.
	MintGasLimit uint64

	// Timeouts for the two network suspension points.
	ReceiptTimeout time.Duration
	ConfirmTimeout time.Duration

	// Discovery metadata advertised to clients.
	X402Version int
	Resource    string
	Network     string
	Asset       string

	// Server.
	ListenAddr string

	// Optional Redis address. When set, processed payments are recorded
	// durably instead of in process memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// LoadConfigFromEnv builds a Config from environment variables, applying the
// same defaults the service has always shipped with. Callers load .env files
// (godotenv) before calling this.
func LoadConfigFromEnv() (*Config, error) {
	cfg := &Config{
		RPCURL:          os.Getenv("RPC_URL"),
		OwnerPrivateKey: os.Getenv("OWNER_PRIVATE_KEY"),
		MintGasLimit:    DefaultMintGasLimit,
		X402Version:     DefaultX402Version,
		Resource:        envOr("X402_RESOURCE", DefaultResource),
		Network:         envOr("X402_NETWORK", DefaultNetwork),
		Asset:           envOr("X402_ASSET", DefaultAsset),
		ListenAddr:      ":" + envOr("PORT", "8080"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
	}

	if v := os.Getenv("X402_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid X402_VERSION %q: %w", v, err)
		}
		cfg.X402Version = n
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = n
	}

	price := envOr("X402_PRICE_USDC", strconv.Itoa(DefaultPrice))
	p, ok := new(big.Int).SetString(price, 10)
	if !ok || p.Sign() < 0 {
		return nil, fmt.Errorf("invalid X402_PRICE_USDC %q", price)
	}
	cfg.Price = p

	timeoutSecs := DefaultMaxTimeoutSeconds
	if v := os.Getenv("X402_MAX_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid X402_MAX_TIMEOUT_SECONDS %q", v)
		}
		timeoutSecs = n
	}
	cfg.ConfirmTimeout = time.Duration(timeoutSecs) * time.Second
	// Receipt lookups are a single read; they never need the full
	// confirmation window.
	cfg.ReceiptTimeout = 30 * time.Second

	for _, a := range []struct {
		name string
		dst  *common.Address
	}{
		{"USDC_ADDRESS", &cfg.PaymentToken},
		{"TREASURY_ADDRESS", &cfg.Treasury},
		{"NFT_CONTRACT_ADDRESS", &cfg.MintContract},
	} {
		v := os.Getenv(a.name)
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("%s: invalid or missing address %q", a.name, v)
		}
		*a.dst = common.HexToAddress(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the config can actually run a mint service.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}
	if c.OwnerPrivateKey == "" {
		return fmt.Errorf("OWNER_PRIVATE_KEY is required")
	}
	if c.Price == nil || c.Price.Sign() < 0 {
		return fmt.Errorf("price must be a non-negative integer")
	}
	if c.MaxTimeoutSeconds() <= 0 {
		return fmt.Errorf("confirmation timeout must be positive")
	}
	return nil
}

// MaxTimeoutSeconds returns the confirmation window in whole seconds, as
// advertised in discovery responses.
func (c *Config) MaxTimeoutSeconds() int {
	return int(c.ConfirmTimeout / time.Second)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
