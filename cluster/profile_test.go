package cluster

import (
	"testing"
	"time"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/stretchr/testify/assert"
)

func TestProfileValidate(t *testing.T) {
	valid := []Profile{
		{Name: "local", BootstrapServers: []string{"localhost:9092"}},
		{Name: "tls", BootstrapServers: []string{"kafka:9093"}, SecurityProtocol: "SSL", SSLCALocation: "/etc/ca.pem"},
		{
			Name:             "prod",
			BootstrapServers: []string{"kafka-1:9094", "kafka-2:9094"},
			SecurityProtocol: "SASL_SSL",
			SASLMechanism:    "SCRAM-SHA-512",
			SASLUsername:     "gateway",
			SASLPassword:     "secret",
			SSLCALocation:    "/etc/ca.pem",
			SSLCertLocation:  "/etc/cert.pem",
			SSLKeyLocation:   "/etc/key.pem",
			RequestTimeout:   20 * time.Second,
		},
	}

	for _, p := range valid {
		assert.Nil(t, p.Validate(), p.Name)
	}

	invalid := map[string]Profile{
		"no name":          {BootstrapServers: []string{"localhost:9092"}},
		"no servers":       {Name: "x"},
		"blank server":     {Name: "x", BootstrapServers: []string{" "}},
		"bad protocol":     {Name: "x", BootstrapServers: []string{"k:9092"}, SecurityProtocol: "TLS"},
		"bad mechanism":    {Name: "x", BootstrapServers: []string{"k:9092"}, SecurityProtocol: "SASL_PLAINTEXT", SASLMechanism: "GSSAPI", SASLUsername: "u"},
		"no sasl username": {Name: "x", BootstrapServers: []string{"k:9092"}, SecurityProtocol: "SASL_PLAINTEXT", SASLMechanism: "PLAIN"},
		"ssl without ca":   {Name: "x", BootstrapServers: []string{"k:9092"}, SecurityProtocol: "SSL"},
		"cert without key": {Name: "x", BootstrapServers: []string{"k:9092"}, SSLCertLocation: "/etc/cert.pem"},
		"negative timeout": {Name: "x", BootstrapServers: []string{"k:9092"}, RequestTimeout: -time.Second},
	}

	for name, p := range invalid {
		err := p.Validate()
		assert.IsType(t, ErrInvalidProfile{}, err, name)
	}
}

func TestProfileAdminConfig(t *testing.T) {
	p := Profile{
		Name:             "prod",
		BootstrapServers: []string{"kafka-1:9094", "kafka-2:9094"},
		SecurityProtocol: "SASL_SSL",
		SASLMechanism:    "PLAIN",
		SASLUsername:     "gateway",
		SASLPassword:     "secret",
		SSLCALocation:    "/etc/ca.pem",
		RequestTimeout:   1500 * time.Millisecond,
	}

	expected := kafkaadmin.Config{
		BootstrapServers: "kafka-1:9094,kafka-2:9094",
		ClientID:         "kafka-gateway",
		DefaultTimeoutMs: 1500,
		SecurityProtocol: "SASL_SSL",
		SASLMechanism:    "PLAIN",
		SASLUsername:     "gateway",
		SASLPassword:     "secret",
		SSLCALocation:    "/etc/ca.pem",
	}

	assert.Equal(t, expected, p.AdminConfig("kafka-gateway"))

	// Unset protocols default to PLAINTEXT.
	p = Profile{Name: "local", BootstrapServers: []string{"localhost:9092"}}
	assert.Equal(t, "PLAINTEXT", p.AdminConfig("").SecurityProtocol)
}
