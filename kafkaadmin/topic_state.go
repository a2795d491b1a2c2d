package kafkaadmin

import (
	"sort"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Note: tests are located in the stub subdir so that mock data can be used
// without resulting in import cycle.

// NoLeader is the PartitionState.Leader value for a partition with no
// elected leader.
const NoLeader int32 = -1

// TopicStates is a map of topic names to TopicState.
type TopicStates map[string]TopicState

// TopicState describes the current state of a topic.
type TopicState struct {
	Name              string                 `json:"name"`
	Internal          bool                   `json:"internal"`
	Partitions        int32                  `json:"partitions"`
	ReplicationFactor int32                  `json:"replication_factor"`
	PartitionStates   map[int]PartitionState `json:"partition_states"`
}

// PartitionState describes the state of a partition.
type PartitionState struct {
	ID       int32   `json:"id"`
	Leader   int32   `json:"leader"`
	Replicas []int32 `json:"replicas"`
	ISR      []int32 `json:"isr"`
}

// NewTopicStates initializes a TopicStates.
func NewTopicStates() TopicStates {
	return make(TopicStates)
}

// NewTopicState initializes a TopicState.
func NewTopicState(name string) TopicState {
	return TopicState{
		Name:            name,
		PartitionStates: make(map[int]PartitionState),
	}
}

// TopicStatesFromDescriptions converts the topic descriptions returned by a
// DescribeTopics call into a TopicStates. The first topic level error found
// is returned, e.g. an unknown topic or missing authorization.
func TopicStatesFromDescriptions(tds []kafka.TopicDescription) (TopicStates, error) {
	var ts = NewTopicStates()

	for _, td := range tds {
		if err := kafkaError(td.Error); err != nil {
			return nil, err
		}

		state := NewTopicState(td.Name)
		state.Internal = td.IsInternal
		state.Partitions = int32(len(td.Partitions))

		for _, p := range td.Partitions {
			ps := PartitionState{
				ID:       int32(p.Partition),
				Leader:   NoLeader,
				Replicas: nodeIDs(p.Replicas),
				ISR:      nodeIDs(p.Isr),
			}

			if p.Leader != nil {
				ps.Leader = int32(p.Leader.ID)
			}

			// The replication factor is taken as the widest replica set; a topic
			// mid-reassignment can briefly have uneven sets.
			if rf := int32(len(ps.Replicas)); rf > state.ReplicationFactor {
				state.ReplicationFactor = rf
			}

			state.PartitionStates[p.Partition] = ps
		}

		ts[td.Name] = state
	}

	return ts, nil
}

// List returns the lexically sorted topic names in the TopicStates.
func (ts TopicStates) List() []string {
	var names = make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// SortedPartitionStates returns the PartitionStates ordered by partition ID.
func (t TopicState) SortedPartitionStates() []PartitionState {
	var out = make([]PartitionState, 0, len(t.PartitionStates))
	for _, ps := range t.PartitionStates {
		out = append(out, ps)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out
}

// UnderReplicated returns a TopicStates and only includes under-replicated topics.
func (ts TopicStates) UnderReplicated() TopicStates {
	filtered := TopicStates{}

	// Loop through all topics.
	for topic, state := range ts {
		if state.UnderReplicated() {
			filtered[topic] = state
		}
	}

	return filtered
}

// UnderReplicated reports whether any partition of the topic has fewer in-sync
// replicas than assigned replicas.
func (t TopicState) UnderReplicated() bool {
	// The best inference we have as to whether a partition (and therefore its
	// parent topic) is under-replicated is looking for those where
	// len(ISR) < len(Replicas). This also means that under-replicated topics are
	// indistinguishable from reassigning topics.
	for _, partnState := range t.PartitionStates {
		if len(partnState.ISR) < len(partnState.Replicas) {
			return true
		}
	}

	return false
}

func nodeIDs(nodes []kafka.Node) []int32 {
	var ids = make([]int32, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, int32(n.ID))
	}
	return ids
}
