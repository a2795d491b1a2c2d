package gateway

import (
	"github.com/DataDog/kafka-gateway/kafkaadmin"
)

// Result is the outcome of an operation. Exactly one of Payload and Err is
// set.
type Result struct {
	Op      Op
	Cluster string
	Payload Payload
	Err     *Error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Payload is the JSON serializable result of a successful operation. The
// set of implementations is closed.
type Payload interface {
	payload()
}

// TopicCreated is the CreateTopic payload.
type TopicCreated struct {
	Name string `json:"name"`
	// Created is false if the topic already existed or ValidateOnly was set.
	Created      bool `json:"created"`
	ValidateOnly bool `json:"validate_only,omitempty"`
}

// TopicList is the ListTopics payload.
type TopicList struct {
	Topics []string `json:"topics"`
}

// TopicDeleted is the DeleteTopic payload.
type TopicDeleted struct {
	Name         string `json:"name"`
	Deleted      bool   `json:"deleted"`
	ValidateOnly bool   `json:"validate_only,omitempty"`
}

// TopicDescription is the DescribeTopic payload.
type TopicDescription struct {
	Name              string                      `json:"name"`
	Internal          bool                        `json:"internal"`
	Partitions        int32                       `json:"partitions"`
	ReplicationFactor int32                       `json:"replication_factor"`
	UnderReplicated   bool                        `json:"under_replicated"`
	PartitionStates   []kafkaadmin.PartitionState `json:"partition_states"`
	Configs           map[string]string           `json:"configs,omitempty"`
}

// TopicUpdated is the UpdateTopic payload.
type TopicUpdated struct {
	Name         string            `json:"name"`
	Configs      map[string]string `json:"configs"`
	ValidateOnly bool              `json:"validate_only,omitempty"`
}

// ConsumerGroupList is the ListConsumerGroups payload.
type ConsumerGroupList struct {
	Groups []kafkaadmin.ConsumerGroupListing `json:"groups"`
}

// ConsumerGroupOffsets is the ListConsumerGroupOffsets payload.
type ConsumerGroupOffsets struct {
	GroupID string                  `json:"group_id"`
	Offsets kafkaadmin.GroupOffsets `json:"offsets"`
}

// ConsumerGroupDescriptions is the DescribeConsumerGroups payload.
type ConsumerGroupDescriptions struct {
	Groups []kafkaadmin.ConsumerGroupDescription `json:"groups"`
}

// ConsumerGroupDeleted is the DeleteConsumerGroup payload.
type ConsumerGroupDeleted struct {
	GroupID string `json:"group_id"`
	Deleted bool   `json:"deleted"`
}

// ClusterDescription is the DescribeCluster payload.
type ClusterDescription struct {
	Name string `json:"name"`
	kafkaadmin.ClusterState
}

// BrokerDescription is the DescribeBroker payload.
type BrokerDescription struct {
	kafkaadmin.BrokerState
	Controller bool              `json:"controller"`
	Configs    map[string]string `json:"configs"`
}

func (TopicCreated) payload()              {}
func (TopicList) payload()                 {}
func (TopicDeleted) payload()              {}
func (TopicDescription) payload()          {}
func (TopicUpdated) payload()              {}
func (ConsumerGroupList) payload()         {}
func (ConsumerGroupOffsets) payload()      {}
func (ConsumerGroupDescriptions) payload() {}
func (ConsumerGroupDeleted) payload()      {}
func (ClusterDescription) payload()        {}
func (BrokerDescription) payload()         {}

// topicDescription builds a TopicDescription from a TopicState.
func topicDescription(ts kafkaadmin.TopicState, configs map[string]string) TopicDescription {
	return TopicDescription{
		Name:              ts.Name,
		Internal:          ts.Internal,
		Partitions:        ts.Partitions,
		ReplicationFactor: ts.ReplicationFactor,
		UnderReplicated:   ts.UnderReplicated(),
		PartitionStates:   ts.SortedPartitionStates(),
		Configs:           configs,
	}
}
