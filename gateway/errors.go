package gateway

import (
	"context"
	"fmt"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/pkg/errors"
)

// Class is the category of a failed operation.
type Class string

// Classes.
const (
	// Transient failures may succeed if retried with backoff.
	Transient Class = "transient"
	NotFound  Class = "not_found"
	Conflict  Class = "conflict"
	// PermissionDenied failures need a credential change.
	PermissionDenied Class = "permission_denied"
	Fatal            Class = "fatal"
	Timeout          Class = "timeout"
)

// Retriable reports whether an operation failing with the Class may be
// retried as is.
func (c Class) Retriable() bool {
	return c == Transient || c == Timeout
}

// Error is a classified operation failure.
type Error struct {
	Class   Class  `json:"class"`
	Code    string `json:"code"`
	Message string `json:"message"`
	// Retriable is derived from Class.
	Retriable bool   `json:"retriable"`
	Op        Op     `json:"op,omitempty"`
	Cluster   string `json:"cluster,omitempty"`

	err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s on cluster %s: %s (%s): %s", e.Op, e.Cluster, e.Class, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Cause returns the underlying error, for errors.Cause.
func (e *Error) Cause() error {
	return e.err
}

// NewError classifies err and attributes it to an operation on a cluster.
// Errors that are already classified keep their class and code.
func NewError(op Op, clusterName string, err error) *Error {
	class, code := Classify(err)

	e := &Error{
		Class:     class,
		Code:      code,
		Retriable: class.Retriable(),
		Op:        op,
		Cluster:   clusterName,
		err:       err,
	}

	if err != nil {
		e.Message = err.Error()
	}

	var ce *Error
	if errors.As(err, &ce) {
		e.Message = ce.Message
		e.err = ce.err
	}

	return e
}

type classification struct {
	class Class
	code  string
}

// kafkaErrorClasses maps broker and librdkafka error codes to a Class.
// Codes missing here are Transient if retriable, Fatal otherwise.
var kafkaErrorClasses = map[kafka.ErrorCode]classification{
	// Transient.
	kafka.ErrLeaderNotAvailable:        {Transient, "leader_not_available"},
	kafka.ErrBrokerNotAvailable:        {Transient, "broker_not_available"},
	kafka.ErrNotController:             {Transient, "not_controller"},
	kafka.ErrNotCoordinator:            {Transient, "not_coordinator"},
	kafka.ErrCoordinatorNotAvailable:   {Transient, "coordinator_not_available"},
	kafka.ErrCoordinatorLoadInProgress: {Transient, "coordinator_load_in_progress"},
	kafka.ErrNetworkException:          {Transient, "network_exception"},
	kafka.ErrTransport:                 {Transient, "transport"},
	kafka.ErrAllBrokersDown:            {Transient, "all_brokers_down"},
	kafka.ErrDestroy:                   {Transient, "client_destroyed"},
	// Timeout.
	kafka.ErrTimedOut:        {Timeout, "timed_out"},
	kafka.ErrRequestTimedOut: {Timeout, "request_timed_out"},
	// NotFound.
	kafka.ErrUnknownTopicOrPart:       {NotFound, "topic_not_found"},
	kafka.ErrUnknownTopic:             {NotFound, "topic_not_found"},
	kafkaadmin.ErrCodeGroupIDNotFound: {NotFound, "group_not_found"},
	// Conflict.
	kafka.ErrTopicAlreadyExists: {Conflict, "topic_already_exists"},
	kafka.ErrNonEmptyGroup:      {Conflict, "group_not_empty"},
	// PermissionDenied.
	kafka.ErrTopicAuthorizationFailed:          {PermissionDenied, "topic_authorization_failed"},
	kafka.ErrGroupAuthorizationFailed:          {PermissionDenied, "group_authorization_failed"},
	kafka.ErrClusterAuthorizationFailed:        {PermissionDenied, "cluster_authorization_failed"},
	kafkaadmin.ErrCodeSASLAuthenticationFailed: {PermissionDenied, "sasl_authentication_failed"},
	kafka.ErrAuthentication:                    {PermissionDenied, "authentication_failed"},
	kafkaadmin.ErrCodeSSL:                      {PermissionDenied, "ssl_failed"},
	// Fatal.
	kafka.ErrInvalidPartitions:        {Fatal, "invalid_partitions"},
	kafka.ErrInvalidReplicationFactor: {Fatal, "invalid_replication_factor"},
	kafka.ErrInvalidConfig:            {Fatal, "invalid_config"},
	kafka.ErrInvalidRequest:           {Fatal, "invalid_request"},
	kafka.ErrPolicyViolation:          {Fatal, "policy_violation"},
	kafka.ErrUnsupportedVersion:       {Fatal, "unsupported_version"},
	kafka.ErrInvalidArg:               {Fatal, "invalid_argument"},
	kafka.ErrTopicDeletionDisabled:    {Fatal, "topic_deletion_disabled"},
}

// Classify maps an error to a Class and a stable, machine readable code. It
// is total: unrecognized errors are Fatal.
func Classify(err error) (Class, string) {
	if err == nil {
		return Fatal, "unknown"
	}

	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class, ge.Code
	}

	// Kafka errors take precedence over the wrappers they arrive in.
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return classifyKafkaError(kerr)
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return Fatal, "invalid_request"
	case errors.Is(err, ErrRequestThrottleTimeout):
		return Timeout, "throttled"
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout, "deadline_exceeded"
	case errors.Is(err, context.Canceled):
		return Timeout, "canceled"
	case errors.Is(err, cluster.ErrClusterNotFound):
		return NotFound, "cluster_not_found"
	case errors.Is(err, ErrBrokerNotFound):
		return NotFound, "broker_not_found"
	case errors.Is(err, cluster.ErrPoolClosed):
		return Transient, "shutting_down"
	}

	var (
		invalidConfig kafkaadmin.ErrInvalidConfig
		clientInit    kafkaadmin.ErrClientInit
		connErr       cluster.ConnectionError
	)

	switch {
	case errors.As(err, &invalidConfig), errors.As(err, &clientInit):
		return Fatal, "client_config"
	case errors.As(err, &connErr):
		return Transient, "connection_failed"
	}

	return Fatal, "unknown"
}

func classifyKafkaError(kerr kafka.Error) (Class, string) {
	if c, ok := kafkaErrorClasses[kerr.Code()]; ok {
		return c.class, c.code
	}

	code := fmt.Sprintf("kafka_error_%d", int(kerr.Code()))
	if kerr.IsRetriable() {
		return Transient, code
	}

	return Fatal, code
}

// ShouldInvalidate reports whether err means the connection that produced it
// can't be trusted for further calls.
func ShouldInvalidate(err error) bool {
	var kerr kafka.Error
	if !errors.As(err, &kerr) {
		return false
	}

	if kerr.IsFatal() {
		return true
	}

	switch kerr.Code() {
	case kafka.ErrTransport, kafka.ErrAllBrokersDown, kafka.ErrAuthentication,
		kafkaadmin.ErrCodeSSL, kafkaadmin.ErrCodeSASLAuthenticationFailed, kafka.ErrDestroy:
		return true
	}

	return false
}
