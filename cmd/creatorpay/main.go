package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/creatorpay/creatorpay/internal/blockchain"
	"github.com/creatorpay/creatorpay/internal/config"
	"github.com/creatorpay/creatorpay/internal/creator"
	"github.com/creatorpay/creatorpay/internal/gate"
	"github.com/creatorpay/creatorpay/internal/http_api"
	"github.com/creatorpay/creatorpay/internal/models"
	"github.com/creatorpay/creatorpay/internal/notificator"
	"github.com/creatorpay/creatorpay/internal/repository"
	"github.com/creatorpay/creatorpay/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "creatorpay",
		Usage: "CreatorPay gates creator content behind on-chain micropayments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "chain-rpc-url", Aliases: []string{"b"}, Usage: "Chain RPC endpoint URL"},
			&cli.StringFlag{Name: "token-contract-address", Aliases: []string{"s"}, Usage: "Payment token contract address"},
			&cli.Int64Flag{Name: "platform-fee-bps", Aliases: []string{"f"}, Usage: "Platform fee in basis points"},
			&cli.Int64Flag{Name: "challenge-ttl", Aliases: []string{"l"}, Usage: "Challenge TTL in seconds"},
			&cli.Uint64Flag{Name: "required-confirmations", Aliases: []string{"c"}, Usage: "Confirmations required before settlement"},
			&cli.BoolFlag{Name: "in-memory-store", Aliases: []string{"m"}, Usage: "Run with the in-memory store instead of Postgres"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("chain-rpc-url") {
		cfg.ChainRPCURL = c.String("chain-rpc-url")
	}
	if c.IsSet("token-contract-address") {
		cfg.TokenContractAddress = c.String("token-contract-address")
	}
	if c.IsSet("platform-fee-bps") {
		cfg.PlatformFeeBps = c.Int64("platform-fee-bps")
	}
	if c.IsSet("challenge-ttl") {
		cfg.ChallengeTTLSeconds = c.Int64("challenge-ttl")
	}
	if c.IsSet("required-confirmations") {
		cfg.RequiredConfirmations = c.Uint64("required-confirmations")
	}
	if c.IsSet("in-memory-store") {
		cfg.InMemoryStore = c.Bool("in-memory-store")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}

	// Initialize storage
	var repo models.Repository
	var closeRepo func() error
	if cfg.InMemoryStore {
		log.Warn("Running with the in-memory store; state is lost on restart")
		repo = repository.NewMemoryDB()
	} else {
		db, err := repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %v", err)
		}
		repo = db
		closeRepo = db.Close
	}

	// Initialize blockchain service
	chain := blockchain.NewGocore(cfg.ChainRPCURL, log)
	if err := chain.ConnectToRPC(); err != nil {
		return fmt.Errorf("failed to connect to chain RPC: %v", err)
	}
	defer chain.Close()

	decoder, err := blockchain.NewTransferDecoder(cfg.TokenContractAddress)
	if err != nil {
		return fmt.Errorf("failed to build transfer decoder: %v", err)
	}

	// Initialize notificator
	var telegramNotif *notificator.TelegramNotificator
	if cfg.TelegramBotToken != "" {
		telegramNotif, err = notificator.NewTelegramNotificator(log, cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram notificator: %v", err)
		}
	}
	var emailNotif *notificator.EmailNotificator
	if cfg.SMTPUser != "" {
		emailNotif = notificator.NewEmailNotificator(log, cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender)
	}
	notif := notificator.NewNotificator(log, telegramNotif, emailNotif)

	// Assemble the payment gate
	issuer := gate.NewIssuer(repo, log, cfg.TokenContractAddress, cfg.ChainID, cfg.TokenDecimals, time.Duration(cfg.ChallengeTTLSeconds)*time.Second)
	verifier := gate.NewVerifier(chain, decoder, repo, log, cfg.RequiredConfirmations)
	ledger := gate.NewLedger(repo, log, cfg.PlatformFeeBps)
	paymentGate := gate.NewGate(repo, issuer, verifier, ledger, notif, log)

	creators := creator.NewService(repo, log)

	// Initialize API server
	apiServer := http_api.NewHTTPServer(paymentGate, creators, cfg.APIPort, log)

	paymentGate.Start()
	go apiServer.Start()

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down HTTP server: ", err)
	}
	paymentGate.Stop()
	if closeRepo != nil {
		if err := closeRepo(); err != nil {
			log.Error("Failed to close database: ", err)
		}
	}

	return nil
}
