// Separate package is workaround to import cycles.
package tele_config

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"strings"

	"github.com/juju/errors"
	"github.com/tsclock/tsclock/telemetry"
)

const (
	TransportNone   = "none"
	TransportPaho   = "paho"
	TransportGomqtt = "gomqtt"
)

type Config struct { //nolint:maligned
	Transport         string            `hcl:"transport"`
	Broker            string            `hcl:"broker"`
	ClientID          string            `hcl:"client_id"`
	Username          string            `hcl:"username"`
	Password          string            `hcl:"password"` // secret
	PasswordEnv       string            `hcl:"password_env"`
	KeepaliveSec      int               `hcl:"keepalive_sec"`
	NetworkTimeoutSec int               `hcl:"network_timeout_sec"`
	ReconnectSec      int               `hcl:"reconnect_sec"`
	LogDebug          bool              `hcl:"log_debug"`
	TlsCaFile         string            `hcl:"tls_ca_file"`
	TopicSet          string            `hcl:"topic_set"`
	Topics            map[string]string `hcl:"topics"`
}

// ResolveTopics starts from TopicSet and applies per channel overrides,
// keys are channel names like "game-time".
func (c *Config) ResolveTopics() (telemetry.Topics, error) {
	topics, err := telemetry.TopicSet(c.TopicSet)
	if err != nil {
		return topics, errors.Annotate(err, "mqtt topic_set")
	}
	for name, topic := range c.Topics {
		ch, err := telemetry.ParseChannel(name)
		if err != nil {
			return topics, errors.Annotate(err, "mqtt topics")
		}
		topics.Set(ch, strings.TrimSpace(topic))
	}
	return topics, errors.Annotate(topics.Validate(), "mqtt topics")
}

// TLSConfig returns nil without CA file.
func (c *Config) TLSConfig() (*tls.Config, error) {
	if c.TlsCaFile == "" {
		return nil, nil
	}
	pem, err := ioutil.ReadFile(c.TlsCaFile)
	if err != nil {
		return nil, errors.Annotate(err, "mqtt tls_ca_file")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.NotValidf("mqtt tls_ca_file=%s no certificates", c.TlsCaFile)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}
