package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/x402apes/mintgate"
	"github.com/x402apes/mintgate/chain"
	httpapi "github.com/x402apes/mintgate/http"
	"github.com/x402apes/mintgate/idempotency"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using environment")
	}

	cfg, err := mintgate.LoadConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ledger, err := chain.Dial(ctx, cfg.RPCURL, cfg.OwnerPrivateKey, cfg.MintContract, cfg.MintGasLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("connecting to chain")
	}
	log.Info().
		Str("signer", ledger.SignerAddress().Hex()).
		Str("mint_contract", cfg.MintContract.Hex()).
		Str("treasury", cfg.Treasury.Hex()).
		Str("price", cfg.Price.String()).
		Msg("ledger client ready")

	var store idempotency.Store[mintgate.MintResult]
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("pinging redis")
		}
		store = idempotency.NewRedisStore[mintgate.MintResult](client,
			idempotency.WithReservationTTL(cfg.ConfirmTimeout+5*time.Minute))
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis processed-payment store")
	} else {
		store = idempotency.NewMemoryStore[mintgate.MintResult]()
		log.Warn().Msg("using in-memory processed-payment store; processed set is lost on restart")
	}

	svc := mintgate.NewMintService(ledger, store, cfg, mintgate.WithLogger(log))

	server := httpapi.NewServer(svc, cfg, log)
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := server.Router().Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
