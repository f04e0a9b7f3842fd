package broker

import (
	"fmt"
	"strings"
)

// Address is a parsed broker pub/sub address of the form
// "<scheme>://<host>/<channel-name>". The channel name is the path
// segment after the last '/'; everything before it identifies the
// broker connection endpoint.
type Address struct {
	Full    string // original, unmodified address
	Broker  string // "<scheme>://<host>", no trailing channel name
	Channel string // channel (queue) name
}

// ParseAddress splits a broker address into its connection and channel
// name components.
func ParseAddress(addr string) (Address, error) {
	idx := strings.LastIndex(addr, "/")
	if idx < 0 || idx == len(addr)-1 {
		return Address{}, fmt.Errorf("malformed broker address: %q", addr)
	}
	return Address{
		Full:    addr,
		Broker:  addr[:idx],
		Channel: addr[idx+1:],
	}, nil
}

// Join rebuilds a full address from a broker endpoint and channel name.
func Join(brokerAddr, channel string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(brokerAddr, "/"), channel)
}

// Host strips the scheme from a broker endpoint, e.g. "amqp://broker1" -> "broker1".
func (a Address) Host() string {
	if i := strings.Index(a.Broker, "://"); i >= 0 {
		return a.Broker[i+3:]
	}
	return a.Broker
}
