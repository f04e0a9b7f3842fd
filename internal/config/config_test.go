package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	tdd "github.com/stretchr/testify/assert"
)

func TestLoadLayering(t *testing.T) {
	assert := tdd.New(t)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	assert.Nil(os.WriteFile(cfgFile, []byte("broker:\n  hosts:\n    - amqp://broker1\n    - amqp://broker2\nhttp:\n  port: 9090\n"), 0o600))

	t.Setenv("MEDIATOR_HTTP_PORT", "9999")

	flags := pflag.NewFlagSet("mediator", pflag.ContinueOnError)
	flags.String("store.dsn", "", "postgres DSN")
	assert.Nil(flags.Parse([]string{"--store.dsn=postgres://user@localhost/mediator"}))

	settings, err := Load([]string{cfgFile}, flags)
	assert.Nil(err)

	assert.Equal([]string{"amqp://broker1", "amqp://broker2"}, settings.Broker.Hosts, "file override")
	assert.Equal(9999, settings.HTTP.Port, "ENV override wins over file")
	assert.Equal("postgres://user@localhost/mediator", settings.Store.DSN, "flag override")
	assert.Equal(int64(1000), settings.Cache.MaxEntries, "default retained when not overridden")
}

func TestLoadNoFileFallsBackToDefaults(t *testing.T) {
	assert := tdd.New(t)
	settings, err := Load([]string{filepath.Join(t.TempDir(), "missing.yaml")}, nil)
	assert.Nil(err)
	assert.Equal(Defaults().HTTP, settings.HTTP)
}

func TestHTTPFacadeConfig(t *testing.T) {
	assert := tdd.New(t)
	s := Defaults()
	fc := s.HTTPFacadeConfig()
	assert.Equal(s.HTTP.EndpointsPrefix, fc.EndpointsPrefix)
	assert.Equal(s.HTTP.DeliveryTTL, fc.DeliveryTTL)
}
