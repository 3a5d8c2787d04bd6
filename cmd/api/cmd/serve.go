package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"civic-vote/api"
	"civic-vote/biometric"
	"civic-vote/blockchain/ledger"
	"civic-vote/config"
	"civic-vote/log"
	"civic-vote/registry"
	"civic-vote/service"
	"civic-vote/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	d := config.DefaultConfig
	flags := serveCmd.Flags()
	flags.IntP("port", "p", d.Port, "port for incoming connections")
	flags.Int("difficulty", d.Difficulty, "leading zero hex digits required of a block hash")
	flags.String("hash", d.Hash, "digest algorithm ('sha256', 'keccak256')")
	flags.Int("queue-size", d.QueueSize, "votes waiting to be mined before casts are refused")
	flags.Duration("poll-duration", d.PollDuration, "how long polls stay open, 0 for no deadline")
	flags.String("store", d.Store, "record store ('memory', 'json', 'mongo')")
	flags.String("datadir", d.DataDir, "data directory of the json store")
	flags.String("mongo-uri", d.MongoURI, "mongo connection string")
	flags.String("archive-dir", d.ArchiveDir, "directory for ledger audit exports, empty to disable")
	flags.String("seed-file", d.SeedFile, "seed data file, created with demo data when missing")
	flags.Bool("seed-demo", d.SeedDemo, "seed the demo roll at start")

	for key, flag := range map[string]string{
		config.KeyPort:         "port",
		config.KeyDifficulty:   "difficulty",
		config.KeyHash:         "hash",
		config.KeyQueueSize:    "queue-size",
		config.KeyPollDuration: "poll-duration",
		config.KeyStore:        "store",
		config.KeyDataDir:      "datadir",
		config.KeyMongoURI:     "mongo-uri",
		config.KeyArchiveDir:   "archive-dir",
		config.KeySeedFile:     "seed-file",
		config.KeySeedDemo:     "seed-demo",
	} {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := log.Init(cfg.Verbosity); err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()

	store, err := storage.Open(ctx, cfg.StorageOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Error("failed to close store", zap.Error(err))
		}
	}()

	seed, err := loadSeed(cfg)
	if err != nil {
		return err
	}
	if cfg.SeedDemo {
		if err := seed(ctx, store); err != nil {
			log.Error("error creating demo data", zap.Error(err))
		}
	}

	chain := ledger.New(
		ledger.WithDifficulty(cfg.Difficulty),
		ledger.WithAlgorithm(cfg.Algorithm()),
		ledger.WithReceiptCache(cfg.ReceiptCache))

	metrics := service.NewMetricsCollector()
	metrics.StartVotingPhase()

	queue := service.NewVoteQueue(chain, cfg.QueueSize, metrics)
	queue.Start()

	auth := service.NewAuthenticator(store,
		service.Credentials{UserID: cfg.AadhaarAdminUser, Password: cfg.AadhaarAdminPassword},
		service.Credentials{UserID: cfg.VotingAdminUser, Password: cfg.VotingAdminPassword})
	auth.SeedOnFirstVoterLogin(func(ctx context.Context) error { return seed(ctx, store) })

	var archive *storage.ChainArchive
	if cfg.ArchiveDir != "" {
		if archive, err = storage.NewChainArchive(cfg.ArchiveDir, cfg.ArchiveKeep); err != nil {
			return err
		}
	}

	server := api.NewServer(api.Deps{
		Store:        store,
		Ledger:       chain,
		Queue:        queue,
		Voting:       service.NewVotingService(store, queue, service.NewPollWindow(cfg.PollDuration), metrics),
		Counting:     service.NewVoteCountingService(store, chain, metrics),
		Registration: service.NewRegistrationService(store),
		Verifier:     biometric.NewVerifier(store, biometric.WithRecorder(metrics)),
		Auth:         auth,
		Metrics:      metrics,
		Archive:      archive,
	}, api.Options{CORSOrigins: cfg.CORSOrigins})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(cfg.Addr())
	}()

	log.Info("civic server started",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.Store),
		zap.Int("difficulty", chain.Difficulty()),
		zap.String("hash", string(chain.Algorithm())))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			queue.Stop()
			return err
		}
	case sig := <-sigCh:
		log.Info("got interrupt, shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", zap.Error(err))
	}

	queue.Stop()
	if archive != nil {
		if _, err := archive.Save(chain.Export()); err != nil {
			log.Error("failed to archive ledger", zap.Error(err))
		}
	}
	log.Info("shutdown complete", zap.Any("stats", chain.Stats()))
	return nil
}

// loadSeed returns the seeding function for cfg: the file in seed_file when
// set, the built-in demo roll otherwise.
func loadSeed(cfg *config.Config) (func(context.Context, storage.Store) error, error) {
	data := registry.DefaultSeed()
	if cfg.SeedFile != "" {
		var err error
		if data, err = registry.LoadSeed(cfg.SeedFile); err != nil {
			return nil, err
		}
	}
	return func(ctx context.Context, store storage.Store) error {
		return registry.Seed(ctx, store, data)
	}, nil
}
