package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/Osamakahen/freo-wallet-sub001/adapters/approval"
	"github.com/Osamakahen/freo-wallet-sub001/adapters/events"
	"github.com/Osamakahen/freo-wallet-sub001/adapters/network"
	"github.com/Osamakahen/freo-wallet-sub001/adapters/password"
	"github.com/Osamakahen/freo-wallet-sub001/adapters/secrets"
	"github.com/Osamakahen/freo-wallet-sub001/adapters/store"
	"github.com/Osamakahen/freo-wallet-sub001/bridge"
	"github.com/Osamakahen/freo-wallet-sub001/config"
	"github.com/Osamakahen/freo-wallet-sub001/keystore"
	"github.com/Osamakahen/freo-wallet-sub001/ports"
	"github.com/Osamakahen/freo-wallet-sub001/service"
	"github.com/Osamakahen/freo-wallet-sub001/session"
	transporthttp "github.com/Osamakahen/freo-wallet-sub001/transport/http"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Str("app", "freo-walletd").Logger()

	if err := run(logger); err != nil {
		logger.Fatal().Err(err).Msg("daemon failed")
	}
}

func run(logger zerolog.Logger) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	chains, err := config.LoadChainRegistry(cfg.ChainsFile)
	if err != nil {
		return err
	}

	var kv ports.Store
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		kv = redisStore
		logger.Info().Msg("using redis session store")
	} else {
		kv = store.NewMemoryStore()
		logger.Info().Msg("using in-memory session store")
	}
	sessions := session.NewStore(kv, session.WithLifetime(cfg.SessionLifetime))

	keys := keystore.New(
		secrets.NewFileStore(cfg.SecretFile),
		password.NewLengthValidator(cfg.MinPasswordLen),
	)
	if err := openWallet(ctx, keys, logger); err != nil {
		return err
	}

	dispatcher := service.NewDispatcher(
		keys,
		sessions,
		chains,
		approval.NewTerminalApprover(),
		network.NewStaticAdapter(),
		service.WithLogger(logger),
		service.WithDefaultChain(cfg.DefaultChain),
		service.WithApprovalTimeout(cfg.ApprovalTimeout),
	)

	publisher, err := buildPublisher(redisStore, logger)
	if err != nil {
		return err
	}

	br := bridge.New(dispatcher, bridge.WithPublisher(publisher), bridge.WithLogger(logger))
	defer br.Close()
	dispatcher.BindEvents(br)

	tokens, err := transporthttp.NewPrivilegedTokens()
	if err != nil {
		return err
	}
	uiToken, err := tokens.Mint("wallet-ui")
	if err != nil {
		return err
	}
	logger.Info().Str("token", uiToken).Msg("privileged ui token")

	router := transporthttp.SetupRouter(br, tokens, logger)
	logger.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	return router.Run(cfg.ListenAddr)
}

// openWallet unlocks an existing wallet or creates a new one, prompting for
// the password without echo.
func openWallet(ctx context.Context, keys *keystore.KeyStore, logger zerolog.Logger) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logger.Warn().Msg("stdin is not a terminal; starting locked")
		return nil
	}

	if keys.Initialized(ctx) {
		fmt.Fprint(os.Stderr, "Enter wallet password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		address, err := keys.Unlock(ctx, string(raw))
		clear(raw)
		if err != nil {
			return err
		}
		logger.Info().Str("address", address.Hex()).Msg("wallet unlocked")
		return nil
	}

	fmt.Fprint(os.Stderr, "Choose a wallet password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	address, mnemonic, err := keys.Setup(ctx, string(raw), "")
	clear(raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Recovery phrase (write it down):\n%s\n", mnemonic)
	logger.Info().Str("address", address.Hex()).Msg("wallet created")
	return nil
}

// buildPublisher assembles the event publishers: the in-process bus always,
// plus a redis stream mirror for other instances when redis is in play.
func buildPublisher(redisStore *store.RedisStore, logger zerolog.Logger) (ports.EventPublisher, error) {
	wmLogger := watermill.NewStdLogger(false, false)
	pubs := []message.Publisher{
		gochannel.NewGoChannel(gochannel.Config{}, wmLogger),
	}

	if redisStore != nil {
		streamPub, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisStore.Client()},
			wmLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
		pubs = append(pubs, streamPub)
		logger.Info().Msg("mirroring wallet events to redis stream")
	}

	return events.NewWatermillPublisher(pubs...), nil
}
