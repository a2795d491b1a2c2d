// Package gateway executes Kafka admin operations against named clusters
// with bounded concurrency, timeouts and uniform error classification.
package gateway

import (
	"fmt"
	"strings"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/pkg/errors"
)

// Op names an operation.
type Op string

// Operations.
const (
	OpCreateTopic              Op = "create_topic"
	OpListTopics               Op = "list_topics"
	OpDeleteTopic              Op = "delete_topic"
	OpDescribeTopic            Op = "describe_topic"
	OpUpdateTopic              Op = "update_topic"
	OpListConsumerGroups       Op = "list_consumer_groups"
	OpListConsumerGroupOffsets Op = "list_consumer_group_offsets"
	OpDescribeConsumerGroups   Op = "describe_consumer_groups"
	OpDeleteConsumerGroup      Op = "delete_consumer_group"
	OpDescribeCluster          Op = "describe_cluster"
	OpDescribeBroker           Op = "describe_broker"
)

// ErrInvalidRequest is returned for requests rejected before any network
// access.
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, a ...interface{}) error {
	return errors.Wrap(ErrInvalidRequest, fmt.Sprintf(format, a...))
}

// Request is an operation and its parameters. The set of implementations is
// closed.
type Request interface {
	Op() Op
	// Validate checks the request shape.
	Validate() error
	// write reports whether the operation mutates cluster state.
	write() bool
}

// CreateTopic creates a topic.
type CreateTopic struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Configs           map[string]string
	// IfNotExists makes creating an existing topic succeed with
	// TopicCreated.Created unset.
	IfNotExists  bool
	ValidateOnly bool
}

// ListTopics lists topic names.
type ListTopics struct {
	// Pattern is a topic name or regex. All topics are listed if empty.
	Pattern         string
	IncludeInternal bool
}

// DeleteTopic deletes a topic.
type DeleteTopic struct {
	Name string
	// ValidateOnly only checks that the topic exists.
	ValidateOnly bool
}

// DescribeTopic describes a topic's partitions and configs.
type DescribeTopic struct {
	Name        string
	SkipConfigs bool
}

// UpdateTopic sets topic configs. Configs not named are left untouched.
type UpdateTopic struct {
	Name         string
	Configs      map[string]string
	ValidateOnly bool
}

// ListConsumerGroups lists consumer groups.
type ListConsumerGroups struct{}

// ListConsumerGroupOffsets lists a consumer group's committed offsets.
type ListConsumerGroupOffsets struct {
	GroupID string
}

// DescribeConsumerGroups describes consumer groups.
type DescribeConsumerGroups struct {
	GroupIDs []string
}

// DeleteConsumerGroup deletes an empty consumer group.
type DeleteConsumerGroup struct {
	GroupID string
}

// DescribeCluster describes the cluster and its brokers.
type DescribeCluster struct{}

// DescribeBroker describes a broker and its configs.
type DescribeBroker struct {
	BrokerID    int32
	DynamicOnly bool
}

func (CreateTopic) Op() Op              { return OpCreateTopic }
func (ListTopics) Op() Op               { return OpListTopics }
func (DeleteTopic) Op() Op              { return OpDeleteTopic }
func (DescribeTopic) Op() Op            { return OpDescribeTopic }
func (UpdateTopic) Op() Op              { return OpUpdateTopic }
func (ListConsumerGroups) Op() Op       { return OpListConsumerGroups }
func (ListConsumerGroupOffsets) Op() Op { return OpListConsumerGroupOffsets }
func (DescribeConsumerGroups) Op() Op   { return OpDescribeConsumerGroups }
func (DeleteConsumerGroup) Op() Op      { return OpDeleteConsumerGroup }
func (DescribeCluster) Op() Op          { return OpDescribeCluster }
func (DescribeBroker) Op() Op           { return OpDescribeBroker }

func (CreateTopic) write() bool              { return true }
func (ListTopics) write() bool               { return false }
func (DeleteTopic) write() bool              { return true }
func (DescribeTopic) write() bool            { return false }
func (UpdateTopic) write() bool              { return true }
func (ListConsumerGroups) write() bool       { return false }
func (ListConsumerGroupOffsets) write() bool { return false }
func (DescribeConsumerGroups) write() bool   { return false }
func (DeleteConsumerGroup) write() bool      { return true }
func (DescribeCluster) write() bool          { return false }
func (DescribeBroker) write() bool           { return false }

// Validate rejects non-positive partition counts and replication factors.
// Replication factors larger than the broker count are left to the broker.
func (r CreateTopic) Validate() error {
	if err := kafkaadmin.ValidateTopicName(r.Name); err != nil {
		return invalid("%s", err)
	}

	switch {
	case r.Partitions <= 0:
		return invalid("partitions must be > 0")
	case r.ReplicationFactor <= 0:
		return invalid("replication factor must be > 0")
	}

	return validateConfigs(r.Configs, false)
}

func (r ListTopics) Validate() error {
	if r.Pattern == "" {
		return nil
	}

	if _, err := kafkaadmin.TopicPatterns(r.Pattern); err != nil {
		return invalid("%s", err)
	}

	return nil
}

func (r DeleteTopic) Validate() error {
	return validateTopicName(r.Name)
}

func (r DescribeTopic) Validate() error {
	return validateTopicName(r.Name)
}

func (r UpdateTopic) Validate() error {
	if err := validateTopicName(r.Name); err != nil {
		return err
	}

	return validateConfigs(r.Configs, true)
}

func (ListConsumerGroups) Validate() error { return nil }

func (r ListConsumerGroupOffsets) Validate() error {
	return validateGroupID(r.GroupID)
}

func (r DescribeConsumerGroups) Validate() error {
	if len(r.GroupIDs) == 0 {
		return invalid("at least one group ID must be specified")
	}

	seen := map[string]struct{}{}
	for _, id := range r.GroupIDs {
		if err := validateGroupID(id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return invalid("duplicate group ID %q", id)
		}
		seen[id] = struct{}{}
	}

	return nil
}

func (r DeleteConsumerGroup) Validate() error {
	return validateGroupID(r.GroupID)
}

func (DescribeCluster) Validate() error { return nil }

func (r DescribeBroker) Validate() error {
	if r.BrokerID < 0 {
		return invalid("broker ID must be >= 0")
	}
	return nil
}

// validateTopicName only rejects empty names for operations on existing
// topics; anything else is resolved by the broker.
func validateTopicName(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("topic name must be specified")
	}
	return nil
}

func validateGroupID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("group ID must be specified")
	}
	return nil
}

func validateConfigs(configs map[string]string, required bool) error {
	if required && len(configs) == 0 {
		return invalid("at least one config must be specified")
	}

	for k := range configs {
		if strings.TrimSpace(k) == "" {
			return invalid("empty config name")
		}
	}

	return nil
}
