package models

import "time"

// ISOTimestamp is the layout used whenever a time is fed into a digest:
// UTC with millisecond precision.
const ISOTimestamp = "2006-01-02T15:04:05.000Z"

// Block anchors an ordered batch of votes and links to its predecessor by hash.
type Block struct {
	Index        uint64       `json:"index"`
	Timestamp    time.Time    `json:"timestamp"`
	Votes        []VoteRecord `json:"votes"`
	PreviousHash string       `json:"previousHash"`
	Hash         string       `json:"hash"`
	Nonce        uint64       `json:"nonce"`
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	votes := make([]VoteRecord, len(b.Votes))
	for i, v := range b.Votes {
		votes[i] = v.Clone()
	}
	b.Votes = votes
	return b
}

// FormatTimestamp renders t in the digest layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOTimestamp)
}

// ChainExport is an audit copy of a ledger written to disk. It is never read
// back into a running ledger.
type ChainExport struct {
	Algorithm  string    `json:"algorithm"`
	Difficulty int       `json:"difficulty"`
	ExportedAt time.Time `json:"exportedAt"`
	Blocks     []Block   `json:"blocks"`
}
