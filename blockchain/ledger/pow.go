package ledger

import (
	"runtime"
	"strings"
)

// Miner searches for a nonce whose digest meets the difficulty target. It is
// the one place a different execution strategy can be plugged in.
type Miner interface {
	Mine(difficulty int, digest func(nonce uint64) string) (nonce uint64, hash string)
}

// ProofOfWork is an exhaustive search from nonce 0 with no iteration cap and no
// cancellation. It returns on the first digest with difficulty leading '0's.
type ProofOfWork struct{}

func (ProofOfWork) Mine(difficulty int, digest func(nonce uint64) string) (uint64, string) {
	target := zeros(difficulty)
	var nonce uint64
	for {
		hash := digest(nonce)
		if strings.HasPrefix(hash, target) {
			return nonce, hash
		}

		nonce++
		if nonce%4096 == 0 {
			runtime.Gosched()
		}
	}
}

// MeetsTarget reports whether hash starts with difficulty hex zeros.
func MeetsTarget(hash string, difficulty int) bool {
	return strings.HasPrefix(hash, zeros(difficulty))
}

// zeros treats a negative difficulty as 0.
func zeros(difficulty int) string {
	if difficulty < 0 {
		return ""
	}
	return strings.Repeat("0", difficulty)
}
