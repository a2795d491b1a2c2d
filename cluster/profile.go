// Package cluster holds the named Kafka cluster profiles a gateway serves and
// the pool of admin connections to them.
package cluster

import (
	"fmt"
	"strings"
	"time"

	"github.com/DataDog/kafka-gateway/kafkaadmin"
)

// Profile describes how to reach and authenticate against one Kafka cluster.
// Profiles are immutable once loaded.
type Profile struct {
	Name             string
	BootstrapServers []string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
	// TLS trust anchor.
	SSLCALocation string
	// Optional client certificate.
	SSLCertLocation string
	SSLKeyLocation  string
	// RequestTimeout overrides the gateway default timeout for this cluster
	// if non-zero.
	RequestTimeout time.Duration
}

// ErrInvalidProfile is returned when a Profile fails validation.
type ErrInvalidProfile struct {
	Cluster string
	Message string
}

func (e ErrInvalidProfile) Error() string {
	return fmt.Sprintf("[cluster %s] %s", e.Cluster, e.Message)
}

// Validate checks that the Profile could be turned into a working admin
// client configuration.
func (p Profile) Validate() error {
	invalid := func(format string, a ...interface{}) error {
		return ErrInvalidProfile{Cluster: p.Name, Message: fmt.Sprintf(format, a...)}
	}

	if p.Name == "" {
		return invalid("name must be specified")
	}

	if len(p.BootstrapServers) == 0 {
		return invalid("at least one bootstrap server must be specified")
	}

	for _, s := range p.BootstrapServers {
		if strings.TrimSpace(s) == "" {
			return invalid("empty bootstrap server address")
		}
	}

	if _, ok := kafkaadmin.SecurityProtocolSet[p.protocol()]; !ok {
		return invalid("unsupported security protocol %q", p.SecurityProtocol)
	}

	if p.usesSASL() {
		if _, ok := kafkaadmin.SASLMechanismSet[p.SASLMechanism]; !ok {
			return invalid("unsupported SASL mechanism %q", p.SASLMechanism)
		}
		if p.SASLUsername == "" {
			return invalid("%s requires a SASL username", p.SecurityProtocol)
		}
	}

	if p.usesSSL() && p.SSLCALocation == "" {
		return invalid("%s requires a CA file", p.SecurityProtocol)
	}

	if (p.SSLCertLocation == "") != (p.SSLKeyLocation == "") {
		return invalid("client certificate and key must be set together")
	}

	if p.RequestTimeout < 0 {
		return invalid("request timeout must be >= 0")
	}

	return nil
}

// AdminConfig returns the kafkaadmin.Config for the Profile.
func (p Profile) AdminConfig(clientID string) kafkaadmin.Config {
	return kafkaadmin.Config{
		BootstrapServers: strings.Join(p.BootstrapServers, ","),
		ClientID:         clientID,
		DefaultTimeoutMs: int(p.RequestTimeout.Milliseconds()),
		SecurityProtocol: p.protocol(),
		SASLMechanism:    p.SASLMechanism,
		SASLUsername:     p.SASLUsername,
		SASLPassword:     p.SASLPassword,
		SSLCALocation:    p.SSLCALocation,
		SSLCertLocation:  p.SSLCertLocation,
		SSLKeyLocation:   p.SSLKeyLocation,
	}
}

// protocol defaults an unset SecurityProtocol to PLAINTEXT.
func (p Profile) protocol() string {
	if p.SecurityProtocol == "" {
		return "PLAINTEXT"
	}
	return p.SecurityProtocol
}

func (p Profile) usesSASL() bool {
	return strings.HasPrefix(p.protocol(), "SASL_")
}

func (p Profile) usesSSL() bool {
	return p.protocol() == "SSL" || p.protocol() == "SASL_SSL"
}
