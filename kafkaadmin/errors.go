package kafkaadmin

import (
	"errors"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var (
	// ErrNoResourceNames is returned when a config lookup names no resources.
	ErrNoResourceNames = errors.New("no resource names provided")
	// ErrInvalidResourceType is returned for config lookups of anything other
	// than a topic or broker.
	ErrInvalidResourceType = errors.New("invalid resource type")
)

// ErrInvalidConfig is returned when a Config can't be translated into a
// client configuration.
type ErrInvalidConfig struct {
	Message string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("[config] %s", e.Message)
}

// ErrClientInit wraps librdkafka client initialization failures.
type ErrClientInit struct {
	Err error
}

func (e ErrClientInit) Error() string {
	return fmt.Sprintf("[librdkafka] %s", e.Err)
}

func (e ErrClientInit) Unwrap() error {
	return e.Err
}

// ErrorFetchingMetadata is returned when a cluster metadata request fails.
type ErrorFetchingMetadata struct {
	Err error
}

func (e ErrorFetchingMetadata) Error() string {
	return fmt.Sprintf("failed to fetch metadata: %s", e.Err)
}

func (e ErrorFetchingMetadata) Unwrap() error {
	return e.Err
}

// kafkaError returns the kafka.Error as an error if it holds a failure
// code, nil otherwise.
func kafkaError(e kafka.Error) error {
	if e.Code() == kafka.ErrNoError {
		return nil
	}
	return e
}

// Broker error codes referenced by their protocol number.
const (
	ErrCodeSASLAuthenticationFailed kafka.ErrorCode = 58
	ErrCodeGroupIDNotFound          kafka.ErrorCode = 69
	// librdkafka local SSL failure.
	ErrCodeSSL kafka.ErrorCode = -181
)
