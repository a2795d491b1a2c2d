package kafkaadmin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	mkac := &mockedFactory{}
	mkac.On("NewAdminClient", &kafka.ConfigMap{"bootstrap.servers": "kafka:9092", "security.protocol": "PLAINTEXT"}).Return(&kafka.AdminClient{}, nil)
	c, err := NewClientWithFactory(Config{BootstrapServers: "kafka:9092", SecurityProtocol: "PLAINTEXT"}, mkac.NewAdminClient)
	assert.Nil(t, err)
	assert.Equal(t, defaultTimeoutMs, c.DefaultTimeoutMs)
	mkac.AssertExpectations(t)
}

func TestNewClientWithClientID(t *testing.T) {
	mkac := &mockedFactory{}
	mkac.On("NewAdminClient", &kafka.ConfigMap{"bootstrap.servers": "kafka:9092", "client.id": "kafka-gateway"}).Return(&kafka.AdminClient{}, nil)
	c, err := NewClientWithFactory(Config{BootstrapServers: "kafka:9092", ClientID: "kafka-gateway", DefaultTimeoutMs: 1500}, mkac.NewAdminClient)
	assert.Nil(t, err)
	assert.Equal(t, 1500, c.DefaultTimeoutMs)
	mkac.AssertExpectations(t)
}

func TestNewClientWithSSLEnabled(t *testing.T) {
	mkac := &mockedFactory{}
	mkac.On("NewAdminClient",
		&kafka.ConfigMap{
			"bootstrap.servers":        "kafka:9092",
			"ssl.ca.location":          "/etc/kafka/config/ca.crt",
			"ssl.certificate.location": "/etc/kafka/config/client.crt",
			"ssl.key.location":         "/etc/kafka/config/client.key",
			"security.protocol":        "SSL",
		},
	).Return(&kafka.AdminClient{}, nil)
	_, err := NewClientWithFactory(
		Config{
			BootstrapServers: "kafka:9092",
			SSLCALocation:    "/etc/kafka/config/ca.crt",
			SSLCertLocation:  "/etc/kafka/config/client.crt",
			SSLKeyLocation:   "/etc/kafka/config/client.key",
			SecurityProtocol: "SSL",
		},
		mkac.NewAdminClient,
	)
	assert.Nil(t, err)
	mkac.AssertExpectations(t)
}

func TestNewClientWithSASLEnabled(t *testing.T) {
	mkac := &mockedFactory{}
	mkac.On("NewAdminClient",
		&kafka.ConfigMap{
			"bootstrap.servers": "kafka:9092",
			"ssl.ca.location":   "/etc/kafka/config/ca.crt",
			"security.protocol": "SASL_SSL",
			"sasl.mechanism":    "PLAIN",
			"sasl.username":     "gateway",
			"sasl.password":     "secret",
		},
	).Return(&kafka.AdminClient{}, nil)
	_, err := NewClientWithFactory(
		Config{
			BootstrapServers: "kafka:9092",
			SSLCALocation:    "/etc/kafka/config/ca.crt",
			SecurityProtocol: "SASL_SSL",
			SASLMechanism:    "PLAIN",
			SASLUsername:     "gateway",
			SASLPassword:     "secret",
		},
		mkac.NewAdminClient,
	)
	assert.Nil(t, err)
	mkac.AssertExpectations(t)
}

func TestNewClientInvalidConfig(t *testing.T) {
	tests := map[string]Config{
		"no bootstrap servers": {},
		"unknown protocol":     {BootstrapServers: "kafka:9092", SecurityProtocol: "TLS"},
		"ssl without ca":       {BootstrapServers: "kafka:9092", SecurityProtocol: "SSL"},
		"unknown mechanism":    {BootstrapServers: "kafka:9092", SecurityProtocol: "SASL_PLAINTEXT", SASLMechanism: "GSSAPI"},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			mkac := &mockedFactory{}
			_, err := NewClientWithFactory(cfg, mkac.NewAdminClient)

			var target ErrInvalidConfig
			assert.True(t, errors.As(err, &target), "expected ErrInvalidConfig, got %v", err)
			mkac.AssertNotCalled(t, "NewAdminClient", mock.Anything)
		})
	}
}

func TestNewClientFactoryError(t *testing.T) {
	mkac := &mockedFactory{}
	mkac.On("NewAdminClient", mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewClientWithFactory(Config{BootstrapServers: "kafka:9092"}, mkac.NewAdminClient)
	require.Error(t, err)

	var target ErrClientInit
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "[librdkafka] boom", err.Error())
}

func TestRequestTimeout(t *testing.T) {
	c := Client{DefaultTimeoutMs: 250}

	// No deadline.
	to, err := c.requestTimeout(context.Background())
	assert.Nil(t, err)
	assert.Equal(t, 250*time.Millisecond, to)

	// Deadline set.
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	to, err = c.requestTimeout(ctx)
	assert.Nil(t, err)
	assert.InDelta(t, float64(time.Minute), float64(to), float64(time.Second))

	// Canceled.
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = c.requestTimeout(ctx)
	assert.Equal(t, context.Canceled, err)
}

func TestKafkaError(t *testing.T) {
	assert.Nil(t, kafkaError(kafka.NewError(kafka.ErrNoError, "Success", false)))

	err := kafkaError(kafka.NewError(kafka.ErrTopicAlreadyExists, "exists", false))
	require.Error(t, err)

	var kerr kafka.Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, kafka.ErrTopicAlreadyExists, kerr.Code())
}

func TestErrorFetchingMetadataUnwrap(t *testing.T) {
	err := ErrorFetchingMetadata{Err: kafka.NewError(kafka.ErrTransport, "down", false)}

	var kerr kafka.Error
	require.True(t, errors.As(err, &kerr))
	assert.Equal(t, kafka.ErrTransport, kerr.Code())
}
