// Package kafkaadmin wraps Kafka admin API calls.
package kafkaadmin

import (
	"context"
)

// KafkaAdmin interface.
type KafkaAdmin interface {
	Close()
	// Cluster.
	Ping(context.Context) error
	DescribeCluster(context.Context) (ClusterState, error)
	// Topics.
	CreateTopic(context.Context, CreateTopicConfig) error
	DeleteTopic(context.Context, string) error
	ListTopics(context.Context, ListTopicsConfig) ([]string, error)
	DescribeTopics(context.Context, []string) (TopicStates, error)
	AlterTopicConfigs(context.Context, AlterTopicConfig) error
	// Configs.
	GetConfigs(context.Context, string, []string) (ResourceConfigs, error)
	GetDynamicConfigs(context.Context, string, []string) (ResourceConfigs, error)
	// Consumer groups.
	ListConsumerGroups(context.Context) ([]ConsumerGroupListing, error)
	ListConsumerGroupOffsets(context.Context, string) (GroupOffsets, error)
	DescribeConsumerGroups(context.Context, []string) ([]ConsumerGroupDescription, error)
	DeleteConsumerGroup(context.Context, string) error
}
