package storage

import (
	"context"
	"errors"
	"fmt"

	"civic-vote/models"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrAlreadyVoted = errors.New("voter has already voted")
)

// VotingStats is the roll-level summary reported to the voting admin.
type VotingStats struct {
	TotalVotes     int `json:"totalVotes"`
	EligibleVoters int `json:"eligibleVoters"`
	Constituencies int `json:"constituencies"`
}

// Store persists the relational records of both consoles. The vote ledger is
// not stored here; it lives in process memory.
type Store interface {
	GetAdminUser(ctx context.Context, userID string) (*models.AdminUser, error)
	CreateAdminUser(ctx context.Context, user models.AdminUser) (*models.AdminUser, error)

	GetCitizen(ctx context.Context, aadhaar string) (*models.Citizen, error)
	ListCitizens(ctx context.Context, limit, offset int) ([]models.Citizen, error)
	CreateCitizen(ctx context.Context, citizen models.Citizen) (*models.Citizen, error)
	UpdateCitizen(ctx context.Context, aadhaar string, update models.CitizenUpdate) (*models.Citizen, error)
	DeleteCitizen(ctx context.Context, aadhaar string) error
	SearchCitizens(ctx context.Context, query, district string) ([]models.Citizen, error)

	GetVoter(ctx context.Context, voterID string) (*models.Voter, error)
	GetVoterByAadhaar(ctx context.Context, aadhaar string) (*models.Voter, error)
	ListVoters(ctx context.Context) ([]models.Voter, error)
	CreateVoter(ctx context.Context, voter models.Voter) (*models.Voter, error)
	UpdateVoter(ctx context.Context, voterID string, update models.VoterUpdate) (*models.Voter, error)
	DeleteVoter(ctx context.Context, voterID string) error
	// MarkVoted sets hasVoted, failing with ErrAlreadyVoted if it was already set.
	MarkVoted(ctx context.Context, voterID string) error
	ClearVoted(ctx context.Context, voterID string) error

	ListCandidates(ctx context.Context) ([]models.Candidate, error)
	CandidatesByConstituency(ctx context.Context, constituency string) ([]models.Candidate, error)
	GetCandidate(ctx context.Context, id int) (*models.Candidate, error)
	CreateCandidate(ctx context.Context, candidate models.Candidate) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id int, update models.CandidateUpdate) (*models.Candidate, error)
	DeleteCandidate(ctx context.Context, id int) error

	SaveVote(ctx context.Context, vote models.VoteRecord) error
	VotesByConstituency(ctx context.Context, constituency string) ([]models.VoteRecord, error)
	VotingStats(ctx context.Context) (*VotingStats, error)

	LogBiometric(ctx context.Context, entry models.BiometricLog) (*models.BiometricLog, error)
	BiometricLogs(ctx context.Context, aadhaar string) ([]models.BiometricLog, error)

	Close(ctx context.Context) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*JSONStore)(nil)
	_ Store = (*MongoStore)(nil)
)

const (
	BackendMemory = "memory"
	BackendJSON   = "json"
	BackendMongo  = "mongo"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend       string
	DataDir       string
	MongoURI      string
	MongoDatabase string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendJSON:
		return NewJSONStore(opts.DataDir)
	case BackendMongo:
		return NewMongoStore(ctx, opts.MongoURI, opts.MongoDatabase)
	}
	return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
