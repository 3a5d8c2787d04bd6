package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"civic-vote/encryption"
	"civic-vote/log"
	"civic-vote/models"
)

// Algorithm names the digest used for block hashes and receipts. Both produce
// 64 lowercase hex characters, so the leading-zero target means the same thing.
type Algorithm string

const (
	SHA256    Algorithm = "sha256"
	Keccak256 Algorithm = "keccak256"
)

func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case SHA256, Keccak256:
		return Algorithm(s), nil
	case "":
		return SHA256, nil
	}
	return "", fmt.Errorf("unknown digest algorithm %q", s)
}

func (a Algorithm) Sum(data string) string {
	if a == Keccak256 {
		return encryption.Keccak256Hex([]byte(data))
	}
	return encryption.SHA256Hex([]byte(data))
}

// ReceiptDigest hashes voteId, voterId, candidate id (or NOTA) and the capture
// timestamp. It is independent of the block the vote lands in.
func ReceiptDigest(a Algorithm, v models.VoteRecord) string {
	return a.Sum(v.VoteID + v.VoterID + v.CandidateToken() + models.FormatTimestamp(v.Timestamp))
}

// blockPreimage is the digest input of b up to, but excluding, the nonce.
func blockPreimage(b models.Block) string {
	votes := b.Votes
	if votes == nil {
		votes = []models.VoteRecord{}
	}
	data, err := json.Marshal(votes)
	if err != nil {
		log.Warn("failed to marshal votes for hashing", zap.Uint64("index", b.Index), zap.Error(err))
	}
	return strconv.FormatUint(b.Index, 10) + models.FormatTimestamp(b.Timestamp) + string(data) + b.PreviousHash
}

// BlockDigest recomputes the hash of b from its own fields and stored nonce.
func BlockDigest(a Algorithm, b models.Block) string {
	return a.Sum(blockPreimage(b) + formatNonce(b.Nonce))
}

func formatNonce(nonce uint64) string {
	return strconv.FormatUint(nonce, 10)
}
