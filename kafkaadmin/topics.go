package kafkaadmin

import (
	"context"
	"sort"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// CreateTopicConfig holds CreateTopic parameters.
type CreateTopicConfig struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Config            map[string]string
	ReplicaAssignment ReplicaAssignment
	// ValidateOnly asks the controller to validate the request without
	// creating the topic.
	ValidateOnly bool
}

// ReplicaAssignment is a [][]int32 of partition assignments. The outer slice
// index maps to the partition ID (ie index position 3 describes partition 3
// for the reference topic), the inner slice is an []int32 of broker assignments.
type ReplicaAssignment [][]int32

// ListTopicsConfig holds ListTopics parameters.
type ListTopicsConfig struct {
	// Names are topic names or regex patterns; a topic is listed if it matches
	// any of them. All topics are listed if empty.
	Names []string
	// IncludeInternal includes internal topics (those prefixed with "__").
	IncludeInternal bool
}

// AlterTopicConfig holds AlterTopicConfigs parameters.
type AlterTopicConfig struct {
	Name   string
	Config map[string]string
	// ValidateOnly asks the broker to validate the change without applying it.
	ValidateOnly bool
}

// CreateTopic creates a topic.
func (c Client) CreateTopic(ctx context.Context, cfg CreateTopicConfig) error {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return err
	}

	spec := kafka.TopicSpecification{
		Topic:             cfg.Name,
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.ReplicationFactor,
		ReplicaAssignment: cfg.ReplicaAssignment,
		Config:            cfg.Config,
	}

	// ReplicaAssignment and ReplicationFactor are
	// mutually exclusive.
	if cfg.ReplicaAssignment != nil {
		spec.ReplicationFactor = 0
	}

	topic := []kafka.TopicSpecification{spec}

	res, err := c.c.CreateTopics(ctx, topic,
		kafka.SetAdminRequestTimeout(to),
		kafka.SetAdminOperationTimeout(to),
		kafka.SetAdminValidateOnly(cfg.ValidateOnly),
	)
	if err != nil {
		return err
	}

	return firstTopicResultError(res)
}

// DeleteTopic deletes a topic.
func (c Client) DeleteTopic(ctx context.Context, name string) error {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return err
	}

	res, err := c.c.DeleteTopics(ctx, []string{name},
		kafka.SetAdminRequestTimeout(to),
		kafka.SetAdminOperationTimeout(to),
	)
	if err != nil {
		return err
	}

	return firstTopicResultError(res)
}

// ListTopics returns the lexically sorted names of all topics matching the
// ListTopicsConfig.
func (c Client) ListTopics(ctx context.Context, cfg ListTopicsConfig) ([]string, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	re, err := TopicPatterns(cfg.Names...)
	if err != nil {
		return nil, err
	}

	md, err := c.c.GetMetadata(nil, true, int(to.Milliseconds()))
	if err != nil {
		return nil, ErrorFetchingMetadata{Err: err}
	}

	return FilterTopicNames(TopicNamesFromMetadata(md), re, cfg.IncludeInternal), nil
}

// DescribeTopics takes a []string of topic names and returns a TopicStates
// for each. An error is returned if any of the topics does not exist.
func (c Client) DescribeTopics(ctx context.Context, names []string) (TopicStates, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.c.DescribeTopics(ctx,
		kafka.NewTopicCollectionOfTopicNames(names),
		kafka.SetAdminRequestTimeout(to),
	)
	if err != nil {
		return nil, err
	}

	return TopicStatesFromDescriptions(res.TopicDescriptions)
}

// AlterTopicConfigs sets the provided configs on a topic. Configs not named
// in the AlterTopicConfig are left untouched.
func (c Client) AlterTopicConfigs(ctx context.Context, cfg AlterTopicConfig) error {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return err
	}

	var entries []kafka.ConfigEntry
	for k, v := range cfg.Config {
		entries = append(entries, kafka.ConfigEntry{
			Name:                 k,
			Value:                v,
			IncrementalOperation: kafka.AlterConfigOpTypeSet,
		})
	}

	resource := kafka.ConfigResource{
		Type:   kafka.ResourceTopic,
		Name:   cfg.Name,
		Config: entries,
	}

	res, err := c.c.IncrementalAlterConfigs(ctx, []kafka.ConfigResource{resource},
		kafka.SetAdminRequestTimeout(to),
		kafka.SetAdminValidateOnly(cfg.ValidateOnly),
	)
	if err != nil {
		return err
	}

	for _, r := range res {
		if err := kafkaError(r.Error); err != nil {
			return err
		}
	}

	return nil
}

// TopicNamesFromMetadata returns the lexically sorted names of all topics
// in a *kafka.Metadata.
func TopicNamesFromMetadata(md *kafka.Metadata) []string {
	var names = make([]string, 0, len(md.Topics))
	for name := range md.Topics {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// firstTopicResultError returns the first per-topic error found in a
// []kafka.TopicResult.
func firstTopicResultError(res []kafka.TopicResult) error {
	for _, r := range res {
		if err := kafkaError(r.Error); err != nil {
			return err
		}
	}
	return nil
}

// isInternalTopic reports whether a topic is broker-managed, such as
// __consumer_offsets and __transaction_state.
func isInternalTopic(name string) bool {
	return strings.HasPrefix(name, "__")
}
