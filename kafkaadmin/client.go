package kafkaadmin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var (
	empty struct{}
	// SecurityProtocolSet is the set of protocols supported to communicate with brokers
	SecurityProtocolSet = map[string]struct{}{"PLAINTEXT": empty, "SSL": empty, "SASL_PLAINTEXT": empty, "SASL_SSL": empty}
	// SASLMechanismSet is the set of mechanisms supported for client to broker authentication
	SASLMechanismSet = map[string]struct{}{"PLAIN": empty, "SCRAM-SHA-256": empty, "SCRAM-SHA-512": empty}
	// Default timeout for requests to Kafka if a context is passed in with no
	// deadline set.
	defaultTimeoutMs = 5000
	// DescribeTopics and IncrementalAlterConfigs first shipped in librdkafka 2.3.0.
	minLibrdkafkaVersion = ">= 2.3.0"
)

// FactoryFunc builds the underlying confluent admin client.
type FactoryFunc func(conf *kafka.ConfigMap) (*kafka.AdminClient, error)

// Client implements a KafkaAdmin.
type Client struct {
	c                *kafka.AdminClient
	DefaultTimeoutMs int
}

// Config holds Client configuration parameters.
type Config struct {
	// Required.
	BootstrapServers string
	// Misc.
	ClientID         string
	DefaultTimeoutMs int
	SSLCALocation    string
	SSLCertLocation  string
	SSLKeyLocation   string
	SecurityProtocol string
	SASLMechanism    string
	SASLUsername     string
	SASLPassword     string
}

// NewClient returns a KafkaAdmin.
func NewClient(cfg Config) (KafkaAdmin, error) {
	c, err := newClient(cfg, kafka.NewAdminClient)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientWithFactory returns a new admin Client using a factory func for the kafkaAdminClient
func NewClientWithFactory(cfg Config, factory FactoryFunc) (*Client, error) {
	return newClient(cfg, factory)
}

// Close closes the Client.
func (c Client) Close() {
	if c.c != nil {
		c.c.Close()
	}
}

func cfgToConfigMap(cfg Config) (*kafka.ConfigMap, error) {
	if cfg.BootstrapServers == "" {
		return nil, ErrInvalidConfig{Message: "BootstrapServers must be specified"}
	}

	kafkaCfg := &kafka.ConfigMap{
		"bootstrap.servers": cfg.BootstrapServers,
	}

	if cfg.ClientID != "" {
		kafkaCfg.SetKey("client.id", cfg.ClientID)
	}

	if cfg.SecurityProtocol != "" {
		if _, ok := SecurityProtocolSet[cfg.SecurityProtocol]; !ok {
			return nil, ErrInvalidConfig{Message: fmt.Sprintf("unsupported security protocol %q", cfg.SecurityProtocol)}
		}
		kafkaCfg.SetKey("security.protocol", cfg.SecurityProtocol)
	}

	if cfg.SecurityProtocol == "SSL" || cfg.SecurityProtocol == "SASL_SSL" {
		if cfg.SSLCALocation == "" {
			return nil, ErrInvalidConfig{Message: fmt.Sprintf("kafka %s is enabled but SSLCALocation was not provided", cfg.SecurityProtocol)}
		}
		kafkaCfg.SetKey("ssl.ca.location", cfg.SSLCALocation)

		// Client certificates are optional (mTLS).
		if cfg.SSLCertLocation != "" {
			kafkaCfg.SetKey("ssl.certificate.location", cfg.SSLCertLocation)
		}
		if cfg.SSLKeyLocation != "" {
			kafkaCfg.SetKey("ssl.key.location", cfg.SSLKeyLocation)
		}
	}

	if strings.HasPrefix(cfg.SecurityProtocol, "SASL_") {
		if _, ok := SASLMechanismSet[cfg.SASLMechanism]; !ok {
			return nil, ErrInvalidConfig{Message: fmt.Sprintf("unsupported SASL mechanism %q", cfg.SASLMechanism)}
		}
		kafkaCfg.SetKey("sasl.mechanism", cfg.SASLMechanism)
		kafkaCfg.SetKey("sasl.username", cfg.SASLUsername)
		kafkaCfg.SetKey("sasl.password", cfg.SASLPassword)
	}

	return kafkaCfg, nil
}

func newClient(cfg Config, factory FactoryFunc) (*Client, error) {
	c := &Client{
		DefaultTimeoutMs: cfg.DefaultTimeoutMs,
	}

	if c.DefaultTimeoutMs == 0 {
		c.DefaultTimeoutMs = defaultTimeoutMs
	}

	if err := checkLibraryVersion(); err != nil {
		return nil, err
	}

	kafkaCfg, err := cfgToConfigMap(cfg)
	if err != nil {
		return nil, err
	}

	k, err := factory(kafkaCfg)
	if err != nil {
		return nil, ErrClientInit{Err: err}
	}

	c.c = k

	return c, nil
}

// checkLibraryVersion ensures the linked librdkafka supports every admin
// call made by the Client.
func checkLibraryVersion() error {
	_, vs := kafka.LibraryVersion()

	v, err := semver.NewVersion(vs)
	if err != nil {
		return ErrClientInit{Err: fmt.Errorf("unparsable librdkafka version %q: %s", vs, err)}
	}

	constraint, _ := semver.NewConstraint(minLibrdkafkaVersion)
	if !constraint.Check(v) {
		return ErrClientInit{Err: fmt.Errorf("librdkafka %s does not satisfy %s", vs, minLibrdkafkaVersion)}
	}

	return nil
}

// requestTimeout returns the time remaining until the context deadline, or
// the client default if the context has no deadline.
func (c Client) requestTimeout(ctx context.Context) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	dl, ok := ctx.Deadline()
	if !ok {
		return time.Millisecond * time.Duration(c.DefaultTimeoutMs), nil
	}

	to := time.Until(dl)
	if to <= 0 {
		return 0, context.DeadlineExceeded
	}

	return to, nil
}
