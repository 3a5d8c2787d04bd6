package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSHA256Hex(t *testing.T) {
	// sha256("abc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", SHA256Hex([]byte("abc")))
}

func TestKeccak256Hex(t *testing.T) {
	// legacy keccak256("")
	assert.Equal(t, "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470", Keccak256Hex(nil))
	assert.Len(t, Keccak256Hex([]byte("vote")), 64)
}

func TestTemplateDigest(t *testing.T) {
	d := TemplateDigest("demo_fingerprint_template")
	assert.True(t, IsTemplateDigest(d))
	assert.Len(t, d, 66)
	assert.Equal(t, d, TemplateDigest("demo_fingerprint_template"))
	assert.NotEqual(t, d, TemplateDigest("demo_face_template"))

	assert.False(t, IsTemplateDigest("demo_face_template"))
	assert.False(t, IsTemplateDigest("0x1234"))
}
