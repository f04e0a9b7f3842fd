package forward

import (
	"encoding/json"
	"testing"

	tdd "github.com/stretchr/testify/assert"
)

func TestForwarderIdentityWithoutRoutingKeys(t *testing.T) {
	assert := tdd.New(t)
	f := New(nil)
	payload := []byte(`{"hello":"world"}`)

	out, err := f.Wrap(payload, "V", nil)
	assert.Nil(err)
	assert.Equal(payload, out, "no routing keys means the payload passes through unchanged")
}

func TestForwarderWrapsWithRoutingKeys(t *testing.T) {
	assert := tdd.New(t)
	f := New(nil)
	payload := []byte(`{"hello":"world"}`)

	out, err := f.Wrap(payload, "V", []string{"K1"})
	assert.Nil(err)
	assert.NotEqual(payload, out)

	var env envelope
	assert.Nil(json.Unmarshal(out, &env))
	assert.Equal(ForwardType, env.Type)
	assert.Equal("V", env.To)
	assert.Equal(json.RawMessage(payload), env.Msg)
}

func TestForwarderCustomWrap(t *testing.T) {
	assert := tdd.New(t)
	called := false
	f := New(func(payload []byte, to string, keys []string) ([]byte, error) {
		called = true
		assert.Equal("V", to)
		assert.Equal([]string{"K1", "K2"}, keys)
		return []byte(`"custom"`), nil
	})

	out, err := f.Wrap([]byte(`{}`), "V", []string{"K1", "K2"})
	assert.Nil(err)
	assert.True(called)
	assert.Equal(`"custom"`, string(out))
}
