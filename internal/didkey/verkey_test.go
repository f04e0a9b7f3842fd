package didkey

import (
	"testing"

	"github.com/mr-tron/base58"
	tdd "github.com/stretchr/testify/assert"
)

func TestVerkeyValid(t *testing.T) {
	assert := tdd.New(t)
	raw := make([]byte, ed25519PubKeySize)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := base58.Encode(raw)

	plain := Verkey(encoded)
	assert.True(plain.Valid(), "plain base58 verkey should validate")

	multibase := Verkey("z" + encoded)
	assert.True(multibase.Valid(), "multibase-prefixed verkey should validate")

	b, err := multibase.Bytes()
	assert.Nil(err)
	assert.Equal(raw, b)
}

func TestVerkeyInvalid(t *testing.T) {
	assert := tdd.New(t)
	assert.False(Verkey("not-base58-!!!").Valid())
	assert.False(Verkey("").Valid())
}
