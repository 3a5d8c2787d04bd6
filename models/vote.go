package models

import (
	"strconv"
	"time"
)

// NotaToken stands in for the candidate id of a "none of the above" vote
// wherever a vote is digested.
const NotaToken = "NOTA"

// VoteRecord is a single cast vote. It is immutable once embedded in a block.
type VoteRecord struct {
	VoteID         string    `json:"voteId" bson:"vote_id"`
	VoterID        string    `json:"voterId" bson:"voter_id"`
	CandidateID    *int      `json:"candidateId,omitempty" bson:"candidate_id,omitempty"`
	Constituency   string    `json:"constituency" bson:"constituency"`
	Timestamp      time.Time `json:"timestamp" bson:"timestamp"`
	IsNota         bool      `json:"isNota" bson:"is_nota"`
	BlockchainHash string    `json:"blockchainHash" bson:"blockchain_hash"`
}

// CandidateToken returns the candidate id as decimal text, or NotaToken when
// the vote carries no candidate.
func (v VoteRecord) CandidateToken() string {
	if v.CandidateID == nil {
		return NotaToken
	}
	return strconv.Itoa(*v.CandidateID)
}

// Clone returns a copy that shares no memory with v.
func (v VoteRecord) Clone() VoteRecord {
	if v.CandidateID != nil {
		id := *v.CandidateID
		v.CandidateID = &id
	}
	return v
}

// CandidateRef is a convenience for building a *int candidate id.
func CandidateRef(id int) *int {
	return &id
}
