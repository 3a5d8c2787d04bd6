// Package ledger implements the append-only, hash-chained vote ledger.
//
// Every cast vote is sealed in its own block, mined under a fixed
// leading-zero difficulty target and linked to its predecessor by hash.
// The chain lives in process memory only and starts from a fresh genesis
// block on every construction.
package ledger

import (
	"errors"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
)

const (
	DefaultDifficulty   = 4
	DefaultReceiptCache = 1024

	GenesisPreviousHash = "0"
)

var ErrBlockNotFound = errors.New("block not found")

// Stats summarises the chain for reporting.
type Stats struct {
	TotalBlocks     int    `json:"totalBlocks"`
	TotalVotes      int    `json:"totalVotes"`
	IsValid         bool   `json:"isValid"`
	LatestBlockHash string `json:"latestBlockHash"`
}

// VoteLedger holds the chain. The read-latest, mine, append sequence runs
// under the write lock so two appends never mine on the same parent.
type VoteLedger struct {
	mu     sync.RWMutex
	blocks []models.Block

	difficulty int
	algorithm  Algorithm
	miner      Miner
	now        func() time.Time

	receiptCacheSize int
	receipts         *lru.Cache
}

type Option func(*VoteLedger)

func WithDifficulty(difficulty int) Option {
	return func(l *VoteLedger) { l.difficulty = difficulty }
}

func WithAlgorithm(a Algorithm) Option {
	return func(l *VoteLedger) { l.algorithm = a }
}

func WithMiner(m Miner) Option {
	return func(l *VoteLedger) { l.miner = m }
}

// WithClock sets the source of block timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *VoteLedger) { l.now = now }
}

func WithReceiptCache(size int) Option {
	return func(l *VoteLedger) { l.receiptCacheSize = size }
}

// New returns a ledger holding only the genesis block. The genesis hash is
// computed once and is not held to the difficulty target. A negative
// difficulty is raised to 0.
func New(opts ...Option) *VoteLedger {
	l := &VoteLedger{
		difficulty:       DefaultDifficulty,
		algorithm:        SHA256,
		miner:            ProofOfWork{},
		now:              time.Now,
		receiptCacheSize: DefaultReceiptCache,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.difficulty < 0 {
		l.difficulty = 0
	}
	if l.receiptCacheSize <= 0 {
		l.receiptCacheSize = DefaultReceiptCache
	}
	l.receipts, _ = lru.New(l.receiptCacheSize)

	genesis := models.Block{
		Index:        0,
		Timestamp:    l.now().UTC().Truncate(time.Millisecond),
		Votes:        []models.VoteRecord{},
		PreviousHash: GenesisPreviousHash,
		Nonce:        0,
	}
	genesis.Hash = BlockDigest(l.algorithm, genesis)
	l.blocks = []models.Block{genesis}

	return l
}

func (l *VoteLedger) Difficulty() int {
	return l.difficulty
}

func (l *VoteLedger) Algorithm() Algorithm {
	return l.algorithm
}

// ReceiptHash is the receipt AddVote would issue for v.
func (l *VoteLedger) ReceiptHash(v models.VoteRecord) string {
	return ReceiptDigest(l.algorithm, v)
}

// AddVote seals vote in a newly mined block and returns the vote's receipt,
// not the block hash. It performs no validation of the record and cannot fail.
// It blocks for the whole mining search.
func (l *VoteLedger) AddVote(vote models.VoteRecord) string {
	vote = vote.Clone()
	vote.BlockchainHash = ReceiptDigest(l.algorithm, vote)

	l.mu.Lock()
	defer l.mu.Unlock()

	latest := l.blocks[len(l.blocks)-1]
	block := models.Block{
		Index:        latest.Index + 1,
		Timestamp:    l.now().UTC().Truncate(time.Millisecond),
		Votes:        []models.VoteRecord{vote},
		PreviousHash: latest.Hash,
		Nonce:        0,
		Hash:         "",
	}

	start := time.Now()
	preimage := blockPreimage(block)
	block.Nonce, block.Hash = l.miner.Mine(l.difficulty, func(nonce uint64) string {
		return l.algorithm.Sum(preimage + formatNonce(nonce))
	})

	l.blocks = append(l.blocks, block)
	l.receipts.Add(vote.BlockchainHash, block.Index)

	log.Debug("mined block",
		zap.Uint64("index", block.Index),
		zap.Uint64("nonce", block.Nonce),
		zap.String("hash", block.Hash),
		zap.Duration("elapsed", time.Since(start)))

	return vote.BlockchainHash
}

// LatestBlock returns the tail block. The genesis block is always present.
func (l *VoteLedger) LatestBlock() models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.blocks[len(l.blocks)-1].Clone()
}

// Block returns the block at index.
func (l *VoteLedger) Block(index uint64) (models.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if index >= uint64(len(l.blocks)) {
		return models.Block{}, ErrBlockNotFound
	}
	return l.blocks[index].Clone(), nil
}

// Blocks returns a copy of the whole chain.
func (l *VoteLedger) Blocks() []models.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	blocks := make([]models.Block, len(l.blocks))
	for i, b := range l.blocks {
		blocks[i] = b.Clone()
	}
	return blocks
}

// Export returns an audit copy of the chain tagged with the digest settings
// needed to validate it offline with ValidateBlocks.
func (l *VoteLedger) Export() models.ChainExport {
	return models.ChainExport{
		Algorithm:  string(l.algorithm),
		Difficulty: l.difficulty,
		ExportedAt: l.now().UTC(),
		Blocks:     l.Blocks(),
	}
}

// VotesByConstituency returns the votes cast in constituency, in block order
// and then in order within each block.
func (l *VoteLedger) VotesByConstituency(constituency string) []models.VoteRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	votes := make([]models.VoteRecord, 0)
	for _, block := range l.blocks {
		for _, v := range block.Votes {
			if v.Constituency == constituency {
				votes = append(votes, v.Clone())
			}
		}
	}
	return votes
}

// AllVotes returns every vote in chain order.
func (l *VoteLedger) AllVotes() []models.VoteRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allVotes()
}

func (l *VoteLedger) allVotes() []models.VoteRecord {
	votes := make([]models.VoteRecord, 0)
	for _, block := range l.blocks {
		for _, v := range block.Votes {
			votes = append(votes, v.Clone())
		}
	}
	return votes
}

// ValidateChain checks, for every block after genesis, that the stored hash
// matches a fresh digest of the block and that previousHash matches the
// predecessor's hash. The difficulty target is not re-checked and genesis is
// trusted as is.
func (l *VoteLedger) ValidateChain() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.validate()
}

func (l *VoteLedger) validate() bool {
	return ValidateBlocks(l.algorithm, l.blocks)
}

// ValidateBlocks applies the ValidateChain checks to blocks, for instance an
// exported copy of a chain.
func ValidateBlocks(a Algorithm, blocks []models.Block) bool {
	for i := 1; i < len(blocks); i++ {
		current := blocks[i]
		previous := blocks[i-1]

		if calculated := BlockDigest(a, current); calculated != current.Hash {
			log.Warn("invalid chain: hash mismatch",
				zap.Int("block", i),
				zap.String("expected", current.Hash),
				zap.String("calculated", calculated))
			return false
		}

		if current.PreviousHash != previous.Hash {
			log.Warn("invalid chain: hash link broken", zap.Int("block", i))
			return false
		}
	}
	return true
}

// Stats is a pure read over the chain.
func (l *VoteLedger) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Stats{
		TotalBlocks:     len(l.blocks),
		TotalVotes:      len(l.allVotes()),
		IsValid:         l.validate(),
		LatestBlockHash: l.blocks[len(l.blocks)-1].Hash,
	}
}
