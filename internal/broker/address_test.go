package broker

import (
	"testing"

	tdd "github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	assert := tdd.New(t)

	a, err := ParseAddress("amqp://broker1:5672/endpoint-abc")
	assert.Nil(err, "parse valid address")
	assert.Equal("amqp://broker1:5672", a.Broker, "broker endpoint")
	assert.Equal("endpoint-abc", a.Channel, "channel name")
	assert.Equal("broker1:5672", a.Host(), "stripped host")

	_, err = ParseAddress("no-slash-here")
	assert.NotNil(err, "reject address with no channel segment")

	_, err = ParseAddress("amqp://broker1:5672/")
	assert.NotNil(err, "reject address with empty channel segment")
}

func TestJoin(t *testing.T) {
	assert := tdd.New(t)
	assert.Equal("amqp://broker1/chan-1", Join("amqp://broker1", "chan-1"))
	assert.Equal("amqp://broker1/chan-1", Join("amqp://broker1/", "chan-1"))
}
