package cluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
clusters:
  prod:
    bootstrap_servers: [kafka-1:9094, kafka-2:9094]
    security_protocol: sasl_ssl
    sasl_mechanism: SCRAM-SHA-256
    sasl_plain_username: gateway
    sasl_plain_password: ${TEST_GATEWAY_PASSWORD}
    request_timeout: 20s
    ssl:
      ca_file: /etc/kafka/ca.pem
      certfile: /etc/kafka/cert.pem
      keyfile: /etc/kafka/key.pem
  local:
    bootstrap_servers: localhost:9092, localhost:9093
`

func TestParseConfig(t *testing.T) {
	t.Setenv("TEST_GATEWAY_PASSWORD", "s3cr3t")

	profiles, err := ParseConfig([]byte(testConfig))
	require.Nil(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, Profile{
		Name:             "local",
		BootstrapServers: []string{"localhost:9092", "localhost:9093"},
	}, profiles[0])

	assert.Equal(t, Profile{
		Name:             "prod",
		BootstrapServers: []string{"kafka-1:9094", "kafka-2:9094"},
		SecurityProtocol: "SASL_SSL",
		SASLMechanism:    "SCRAM-SHA-256",
		SASLUsername:     "gateway",
		SASLPassword:     "s3cr3t",
		SSLCALocation:    "/etc/kafka/ca.pem",
		SSLCertLocation:  "/etc/kafka/cert.pem",
		SSLKeyLocation:   "/etc/kafka/key.pem",
		RequestTimeout:   20 * time.Second,
	}, profiles[1])
}

func TestParseConfigUnsetVariable(t *testing.T) {
	os.Unsetenv("TEST_GATEWAY_PASSWORD")

	_, err := ParseConfig([]byte(testConfig))
	require.NotNil(t, err)
	assert.Equal(t, "[cluster prod] environment variable TEST_GATEWAY_PASSWORD is not set", err.Error())
}

func TestParseConfigErrors(t *testing.T) {
	tests := map[string]string{
		"malformed":   "clusters: [",
		"no clusters": "clusters: {}\n",
		"invalid profile": `
clusters:
  prod:
    bootstrap_servers: [kafka:9093]
    security_protocol: SSL
`,
		"bad servers": `
clusters:
  prod:
    bootstrap_servers:
      host: kafka
`,
	}

	for name, data := range tests {
		_, err := ParseConfig([]byte(data))
		assert.NotNil(t, err, name)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("TEST_GATEWAY_PASSWORD", "s3cr3t")

	path := filepath.Join(t.TempDir(), "clusters.yaml")
	require.Nil(t, os.WriteFile(path, []byte(testConfig), 0600))

	profiles, err := LoadConfigFile(path)
	require.Nil(t, err)
	assert.Len(t, profiles, 2)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}
