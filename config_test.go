package mintgate

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("RPC_URL", "https://mainnet.base.org")
	t.Setenv("OWNER_PRIVATE_KEY", "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	t.Setenv("USDC_ADDRESS", "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	t.Setenv("TREASURY_ADDRESS", "0x1111111111111111111111111111111111111111")
	t.Setenv("NFT_CONTRACT_ADDRESS", "0x2222222222222222222222222222222222222222")
}

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://mainnet.base.org", cfg.RPCURL)
	assert.Equal(t, common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), cfg.PaymentToken)
	assert.Equal(t, big.NewInt(DefaultPrice), cfg.Price)
	assert.Equal(t, uint64(DefaultMintGasLimit), cfg.MintGasLimit)
	assert.Equal(t, DefaultX402Version, cfg.X402Version)
	assert.Equal(t, DefaultResource, cfg.Resource)
	assert.Equal(t, DefaultNetwork, cfg.Network)
	assert.Equal(t, DefaultAsset, cfg.Asset)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, DefaultMaxTimeoutSeconds, cfg.MaxTimeoutSeconds())
	assert.Equal(t, 30*time.Second, cfg.ReceiptTimeout)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("X402_PRICE_USDC", "25000000")
	t.Setenv("X402_MAX_TIMEOUT_SECONDS", "120")
	t.Setenv("X402_RESOURCE", "mint:other:7")
	t.Setenv("X402_NETWORK", "base-sepolia")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(25_000_000), cfg.Price)
	assert.Equal(t, 120*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 120, cfg.MaxTimeoutSeconds())
	assert.Equal(t, "mint:other:7", cfg.Resource)
	assert.Equal(t, "base-sepolia", cfg.Network)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		wants string
	}{
		{
			name:  "bad price",
			env:   map[string]string{"X402_PRICE_USDC": "ten bucks"},
			wants: "X402_PRICE_USDC",
		},
		{
			name:  "negative price",
			env:   map[string]string{"X402_PRICE_USDC": "-5"},
			wants: "X402_PRICE_USDC",
		},
		{
			name:  "bad timeout",
			env:   map[string]string{"X402_MAX_TIMEOUT_SECONDS": "0"},
			wants: "X402_MAX_TIMEOUT_SECONDS",
		},
		{
			name:  "bad version",
			env:   map[string]string{"X402_VERSION": "one"},
			wants: "X402_VERSION",
		},
		{
			name:  "bad redis db",
			env:   map[string]string{"REDIS_DB": "primary"},
			wants: "REDIS_DB",
		},
		{
			name:  "missing token address",
			env:   map[string]string{"USDC_ADDRESS": ""},
			wants: "USDC_ADDRESS",
		},
		{
			name:  "malformed treasury address",
			env:   map[string]string{"TREASURY_ADDRESS": "0x123"},
			wants: "TREASURY_ADDRESS",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfigFromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wants)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RPCURL:          "https://mainnet.base.org",
			OwnerPrivateKey: "abc123",
			Price:           big.NewInt(DefaultPrice),
			ConfirmTimeout:  time.Minute,
		}
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.RPCURL = ""
	assert.ErrorContains(t, c.Validate(), "RPC_URL")

	c = valid()
	c.OwnerPrivateKey = ""
	assert.ErrorContains(t, c.Validate(), "OWNER_PRIVATE_KEY")

	c = valid()
	c.Price = nil
	assert.ErrorContains(t, c.Validate(), "price")

	c = valid()
	c.ConfirmTimeout = 0
	assert.ErrorContains(t, c.Validate(), "timeout")
}
