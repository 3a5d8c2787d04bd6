// Package config holds the server configuration as read through viper from
// flags, CIVIC_* environment variables and an optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"civic-vote/blockchain/ledger"
	"civic-vote/storage"
)

const EnvPrefix = "CIVIC"

const (
	KeyPort             = "port"
	KeyDifficulty       = "difficulty"
	KeyHash             = "hash"
	KeyReceiptCache     = "receipt_cache"
	KeyQueueSize        = "queue_size"
	KeyPollDuration     = "poll_duration"
	KeyStore            = "store"
	KeyDataDir          = "data_dir"
	KeyMongoURI         = "mongo_uri"
	KeyMongoDatabase    = "mongo_database"
	KeyArchiveDir       = "archive_dir"
	KeyArchiveKeep      = "archive_keep"
	KeySeedDemo         = "seed_demo"
	KeySeedFile         = "seed_file"
	KeyAadhaarAdminUser = "aadhaar_admin_user"
	KeyAadhaarAdminPass = "aadhaar_admin_password"
	KeyVotingAdminUser  = "voting_admin_user"
	KeyVotingAdminPass  = "voting_admin_password"
	KeyCORSOrigins      = "cors_origins"
	KeyVerbosity        = "verbosity"
)

// Config contains the settings of the civic server.
type Config struct {
	Port int `mapstructure:"port"`

	// Ledger options
	Difficulty   int    `mapstructure:"difficulty"`
	Hash         string `mapstructure:"hash"`
	ReceiptCache int    `mapstructure:"receipt_cache"`
	QueueSize    int    `mapstructure:"queue_size"`

	// PollDuration of zero keeps the polls open until closed by an admin.
	PollDuration time.Duration `mapstructure:"poll_duration"`

	// Store options
	Store         string `mapstructure:"store"`
	DataDir       string `mapstructure:"data_dir"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	// ArchiveDir receives ledger audit exports when set.
	ArchiveDir  string `mapstructure:"archive_dir"`
	ArchiveKeep int    `mapstructure:"archive_keep"`

	SeedDemo bool   `mapstructure:"seed_demo"`
	SeedFile string `mapstructure:"seed_file"`

	AadhaarAdminUser     string `mapstructure:"aadhaar_admin_user"`
	AadhaarAdminPassword string `mapstructure:"aadhaar_admin_password"`
	VotingAdminUser      string `mapstructure:"voting_admin_user"`
	VotingAdminPassword  string `mapstructure:"voting_admin_password"`

	CORSOrigins string `mapstructure:"cors_origins"`
	Verbosity   string `mapstructure:"verbosity"`
}

// DefaultConfig contains the settings of a local demo deployment.
var DefaultConfig = Config{
	Port:                 8080,
	Difficulty:           ledger.DefaultDifficulty,
	Hash:                 string(ledger.SHA256),
	ReceiptCache:         ledger.DefaultReceiptCache,
	QueueSize:            64,
	PollDuration:         24 * time.Hour,
	Store:                storage.BackendMemory,
	DataDir:              "data",
	MongoURI:             "mongodb://localhost:27017",
	MongoDatabase:        "civic",
	ArchiveKeep:          storage.DefaultArchiveKeep,
	SeedDemo:             true,
	AadhaarAdminUser:     "admin",
	AadhaarAdminPassword: "admin123",
	VotingAdminUser:      "votingadmin",
	VotingAdminPassword:  "admin123",
	CORSOrigins:          "*",
	Verbosity:            "info",
}

// SetDefaults registers DefaultConfig on v and binds CIVIC_* variables.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyDifficulty, d.Difficulty)
	v.SetDefault(KeyHash, d.Hash)
	v.SetDefault(KeyReceiptCache, d.ReceiptCache)
	v.SetDefault(KeyQueueSize, d.QueueSize)
	v.SetDefault(KeyPollDuration, d.PollDuration)
	v.SetDefault(KeyStore, d.Store)
	v.SetDefault(KeyDataDir, d.DataDir)
	v.SetDefault(KeyMongoURI, d.MongoURI)
	v.SetDefault(KeyMongoDatabase, d.MongoDatabase)
	v.SetDefault(KeyArchiveDir, d.ArchiveDir)
	v.SetDefault(KeyArchiveKeep, d.ArchiveKeep)
	v.SetDefault(KeySeedDemo, d.SeedDemo)
	v.SetDefault(KeySeedFile, d.SeedFile)
	v.SetDefault(KeyAadhaarAdminUser, d.AadhaarAdminUser)
	v.SetDefault(KeyAadhaarAdminPass, d.AadhaarAdminPassword)
	v.SetDefault(KeyVotingAdminUser, d.VotingAdminUser)
	v.SetDefault(KeyVotingAdminPass, d.VotingAdminPassword)
	v.SetDefault(KeyCORSOrigins, d.CORSOrigins)
	v.SetDefault(KeyVerbosity, d.Verbosity)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Difficulty < 0 || c.Difficulty > 64 {
		return fmt.Errorf("difficulty %d out of range [0, 64]", c.Difficulty)
	}
	if _, err := ledger.ParseAlgorithm(c.Hash); err != nil {
		return err
	}
	if c.ReceiptCache < 1 {
		return fmt.Errorf("receipt cache size must be positive, got %d", c.ReceiptCache)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.ArchiveDir != "" && c.ArchiveKeep < 1 {
		return fmt.Errorf("archive keep must be positive, got %d", c.ArchiveKeep)
	}
	if c.PollDuration < 0 {
		return fmt.Errorf("poll duration must not be negative, got %s", c.PollDuration)
	}
	switch c.Store {
	case storage.BackendMemory:
	case storage.BackendJSON:
		if c.DataDir == "" {
			return fmt.Errorf("json store needs a data directory")
		}
	case storage.BackendMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" {
			return fmt.Errorf("mongo store needs a uri and a database")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	return nil
}

func (c *Config) Algorithm() ledger.Algorithm {
	a, _ := ledger.ParseAlgorithm(c.Hash)
	return a
}

func (c *Config) StorageOptions() storage.Options {
	return storage.Options{
		Backend:       c.Store,
		DataDir:       c.DataDir,
		MongoURI:      c.MongoURI,
		MongoDatabase: c.MongoDatabase,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
