// Package config loads mediator settings the way go.bryk.io/pkg/cli/konf
// layers them: built-in defaults, an optional YAML config file, ENV
// variables, then command-line flags, each overriding the last.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	lib "github.com/nil-go/konf"
	"github.com/nil-go/konf/provider/env"
	"github.com/nil-go/konf/provider/file"
	pflagP "github.com/nil-go/konf/provider/pflag"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"go.bryk.io/mediator/internal/httpapi"
)

// envPrefix namespaces every ENV override, e.g. MEDIATOR_BROKER_HOSTS.
const envPrefix = "MEDIATOR_"

// Broker settings for the pub/sub fabric.
type Broker struct {
	Hosts          []string      `yaml:"hosts"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Store settings for the SQL endpoint directory.
type Store struct {
	DSN string `yaml:"dsn"`
}

// Cache settings for the channel-pair cache.
type Cache struct {
	MaxEntries int64         `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// FCM settings for the mobile push fallback.
type FCM struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// Sentry settings for optional error reporting. DSN empty disables it.
type Sentry struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// HTTP settings for the MediatorHTTP facade.
type HTTP struct {
	Port              int           `yaml:"port"`
	EndpointsPrefix   string        `yaml:"endpoints_prefix"`
	LongPollingPrefix string        `yaml:"long_polling_prefix"`
	WSPrefix          string        `yaml:"ws_prefix"`
	DeliveryTTL       time.Duration `yaml:"delivery_ttl"`
}

// Settings is the mediator's complete runtime configuration.
type Settings struct {
	Broker Broker `yaml:"broker"`
	Store  Store  `yaml:"store"`
	Cache  Cache  `yaml:"cache"`
	FCM    FCM    `yaml:"fcm"`
	HTTP   HTTP   `yaml:"http"`
	Sentry Sentry `yaml:"sentry"`
}

// Defaults returns the baseline configuration applied before any file,
// ENV, or flag override is layered on top.
func Defaults() Settings {
	return Settings{
		Broker: Broker{ConnectTimeout: 3 * time.Second},
		Cache:  Cache{MaxEntries: 1000, TTL: 60 * time.Second},
		HTTP: HTTP{
			Port:              8080,
			EndpointsPrefix:   "/endpoints",
			LongPollingPrefix: "/lp",
			WSPrefix:          "/ws",
			DeliveryTTL:       30 * time.Second,
		},
	}
}

// HTTPFacadeConfig adapts the loaded HTTP settings into httpapi.Config.
func (s Settings) HTTPFacadeConfig() httpapi.Config {
	return httpapi.Config{
		EndpointsPrefix:   s.HTTP.EndpointsPrefix,
		LongPollingPrefix: s.HTTP.LongPollingPrefix,
		WSPrefix:          s.HTTP.WSPrefix,
		DeliveryTTL:       s.HTTP.DeliveryTTL,
	}
}

// Load builds the layered configuration and unmarshals it into a
// Settings value seeded with Defaults. locations is tried in order; the
// first readable file wins. flags, if non-nil, is merged last.
func Load(locations []string, flags *pflag.FlagSet) (Settings, error) {
	settings := Defaults()

	conf, err := loadFile(locations)
	if err != nil {
		conf = lib.New()
	}

	if err := conf.Load(env.New(env.WithPrefix(envPrefix), env.WithNameSplitter(splitEnvName))); err != nil {
		return settings, err
	}
	if flags != nil {
		if err := conf.Load(pflagP.New(conf, pflagP.WithFlagSet(flags))); err != nil {
			return settings, err
		}
	}

	if err := conf.Unmarshal("", &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// DefaultLocations returns the conventional search path for a mediator
// configuration file, mirroring the teacher's layered filesystem probe.
func DefaultLocations(fileName string) []string {
	const appName = "mediator"
	locations := []string{}
	if runtime.GOOS != "windows" {
		locations = append(locations, filepath.Join("/etc", appName, fileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		locations = append(locations, filepath.Join(home, "."+appName, fileName))
	}
	if cwd, err := os.Getwd(); err == nil {
		locations = append(locations, filepath.Join(cwd, fileName))
	}
	return locations
}

func loadFile(locations []string) (*lib.Config, error) {
	for _, cf := range locations {
		info, err := os.Stat(cf)
		if err != nil || info.IsDir() {
			continue
		}
		tag, unmarshal, err := unmarshalerFor(path.Ext(info.Name()))
		if err != nil {
			continue
		}
		conf := lib.New(lib.WithTagName(tag))
		if err := conf.Load(file.New(cf, file.WithUnmarshal(unmarshal))); err == nil {
			return conf, nil
		}
	}
	return nil, errors.New("no valid config file found")
}

func unmarshalerFor(extension string) (tag string, fn func([]byte, any) error, err error) {
	switch extension {
	case ".yaml", ".yml":
		return "yaml", yaml.Unmarshal, nil
	case ".json":
		return "json", json.Unmarshal, nil
	}
	return "", nil, errors.New("unsupported config file format")
}

func splitEnvName(s string) []string {
	s = strings.TrimPrefix(s, envPrefix)
	return strings.Split(s, "_")
}
