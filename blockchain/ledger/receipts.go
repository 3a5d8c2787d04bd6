package ledger

import (
	"errors"
	"strings"

	"civic-vote/models"
)

var ErrReceiptNotFound = errors.New("receipt not found")

// Receipt locates a vote on the chain.
type Receipt struct {
	Vote       models.VoteRecord `json:"vote"`
	BlockIndex uint64            `json:"blockIndex"`
	BlockHash  string            `json:"blockHash"`
}

// FindReceipt looks up the vote issued receipt hash. Recent receipts are served
// from an LRU index; older ones fall back to a scan from the tail.
func (l *VoteLedger) FindReceipt(hash string) (Receipt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if cached, ok := l.receipts.Get(hash); ok {
		index := cached.(uint64)
		if r, ok := l.receiptAt(index, hash); ok {
			return r, nil
		}
	}

	for i := len(l.blocks) - 1; i > 0; i-- {
		if r, ok := l.receiptAt(uint64(i), hash); ok {
			// hash may alias a caller's reusable buffer
			l.receipts.Add(strings.Clone(hash), uint64(i))
			return r, nil
		}
	}
	return Receipt{}, ErrReceiptNotFound
}

func (l *VoteLedger) receiptAt(index uint64, hash string) (Receipt, bool) {
	if index >= uint64(len(l.blocks)) {
		return Receipt{}, false
	}
	block := l.blocks[index]
	for _, v := range block.Votes {
		if v.BlockchainHash == hash {
			return Receipt{Vote: v.Clone(), BlockIndex: block.Index, BlockHash: block.Hash}, true
		}
	}
	return Receipt{}, false
}
