package encryption

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
)

// Keccak256 computes the legacy Keccak-256 hash of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hex returns the lowercase hex Keccak-256 digest of data.
func Keccak256Hex(data []byte) string {
	return hex.EncodeToString(Keccak256(data))
}

// SHA256Hex returns the lowercase hex SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// TemplateDigest replaces a captured biometric template by a 0x-prefixed
// Keccak-256 digest so raw captures are never stored.
func TemplateDigest(template string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(template)))
}

// IsTemplateDigest reports whether s already has the TemplateDigest shape.
func IsTemplateDigest(s string) bool {
	if !strings.HasPrefix(s, "0x") {
		return false
	}
	b, err := hexutil.Decode(s)
	return err == nil && len(b) == 32
}
