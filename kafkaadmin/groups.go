package kafkaadmin

import (
	"context"
	"sort"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// ConsumerGroupListing is a consumer group as returned by ListConsumerGroups.
type ConsumerGroupListing struct {
	GroupID string `json:"group_id"`
	State   string `json:"state"`
	// Simple groups commit offsets but have no group membership.
	Simple bool `json:"simple"`
}

// ConsumerGroupDescription describes a consumer group and its members.
type ConsumerGroupDescription struct {
	GroupID           string             `json:"group_id"`
	State             string             `json:"state"`
	Simple            bool               `json:"simple"`
	PartitionAssignor string             `json:"partition_assignor"`
	Coordinator       BrokerState        `json:"coordinator"`
	Members           []GroupMemberState `json:"members"`
}

// GroupMemberState describes a consumer group member and its assignment.
type GroupMemberState struct {
	ConsumerID      string             `json:"consumer_id"`
	ClientID        string             `json:"client_id"`
	GroupInstanceID string             `json:"group_instance_id,omitempty"`
	Host            string             `json:"host"`
	Assignment      map[string][]int32 `json:"assignment"`
}

// GroupOffsets is a map of topic name to partition ID to committed offset.
type GroupOffsets map[string]map[int32]int64

// AddOffset records a committed offset for a topic partition.
func (g GroupOffsets) AddOffset(topic string, partition int32, offset int64) {
	if _, ok := g[topic]; !ok {
		g[topic] = make(map[int32]int64)
	}
	g[topic][partition] = offset
}

// ListConsumerGroups returns all consumer groups known to the cluster, sorted
// by group ID.
func (c Client) ListConsumerGroups(ctx context.Context) ([]ConsumerGroupListing, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.c.ListConsumerGroups(ctx, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return nil, err
	}

	// Errors holds per-broker failures. Listings from the remaining brokers
	// would be incomplete, so any failure fails the call.
	if len(res.Errors) > 0 {
		return nil, res.Errors[0]
	}

	return GroupListingsFromResult(res.Valid), nil
}

// ListConsumerGroupOffsets returns the committed offsets of all partitions
// consumed by the group. A group with no committed offsets yields an empty
// GroupOffsets.
func (c Client) ListConsumerGroupOffsets(ctx context.Context, groupID string) (GroupOffsets, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	// Nil partitions requests all partitions the group has offsets for.
	req := []kafka.ConsumerGroupTopicPartitions{{Group: groupID}}

	res, err := c.c.ListConsumerGroupOffsets(ctx, req, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return nil, err
	}

	return GroupOffsetsFromResult(groupID, res.ConsumerGroupsTopicPartitions)
}

// DescribeConsumerGroups describes the named consumer groups. Descriptions
// are returned in request order.
func (c Client) DescribeConsumerGroups(ctx context.Context, groupIDs []string) ([]ConsumerGroupDescription, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.c.DescribeConsumerGroups(ctx, groupIDs, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return nil, err
	}

	return GroupDescriptionsFromResult(res.ConsumerGroupDescriptions)
}

// DeleteConsumerGroup deletes a consumer group. The group must have no
// active members.
func (c Client) DeleteConsumerGroup(ctx context.Context, groupID string) error {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return err
	}

	res, err := c.c.DeleteConsumerGroups(ctx, []string{groupID}, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return err
	}

	for _, r := range res.ConsumerGroupResults {
		if err := kafkaError(r.Error); err != nil {
			return err
		}
	}

	return nil
}

// GroupListingsFromResult converts ListConsumerGroups listings, sorted by
// group ID.
func GroupListingsFromResult(listings []kafka.ConsumerGroupListing) []ConsumerGroupListing {
	var out = make([]ConsumerGroupListing, 0, len(listings))
	for _, l := range listings {
		out = append(out, ConsumerGroupListing{
			GroupID: l.GroupID,
			State:   l.State.String(),
			Simple:  l.IsSimpleConsumerGroup,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupID < out[j].GroupID
	})

	return out
}

// GroupOffsetsFromResult extracts the committed offsets for groupID from a
// ListConsumerGroupOffsets result. Partitions without a committed offset are
// omitted.
func GroupOffsetsFromResult(groupID string, res []kafka.ConsumerGroupTopicPartitions) (GroupOffsets, error) {
	var offsets = make(GroupOffsets)

	for _, g := range res {
		if g.Group != groupID {
			continue
		}

		for _, tp := range g.Partitions {
			if tp.Error != nil {
				return nil, tp.Error
			}

			if tp.Topic == nil || tp.Offset < 0 {
				continue
			}

			offsets.AddOffset(*tp.Topic, tp.Partition, int64(tp.Offset))
		}
	}

	return offsets, nil
}

// GroupDescriptionsFromResult converts DescribeConsumerGroups descriptions.
// The first group level error found is returned.
func GroupDescriptionsFromResult(descs []kafka.ConsumerGroupDescription) ([]ConsumerGroupDescription, error) {
	var out = make([]ConsumerGroupDescription, 0, len(descs))

	for _, d := range descs {
		if err := kafkaError(d.Error); err != nil {
			return nil, err
		}

		desc := ConsumerGroupDescription{
			GroupID:           d.GroupID,
			State:             d.State.String(),
			Simple:            d.IsSimpleConsumerGroup,
			PartitionAssignor: d.PartitionAssignor,
			Coordinator:       brokerStateFromNode(&d.Coordinator),
			Members:           make([]GroupMemberState, 0, len(d.Members)),
		}

		for _, m := range d.Members {
			member := GroupMemberState{
				ConsumerID:      m.ConsumerID,
				ClientID:        m.ClientID,
				GroupInstanceID: m.GroupInstanceID,
				Host:            m.Host,
				Assignment:      make(map[string][]int32),
			}

			for _, tp := range m.Assignment.TopicPartitions {
				if tp.Topic == nil {
					continue
				}
				member.Assignment[*tp.Topic] = append(member.Assignment[*tp.Topic], tp.Partition)
			}

			for _, ps := range member.Assignment {
				sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
			}

			desc.Members = append(desc.Members, member)
		}

		out = append(out, desc)
	}

	return out, nil
}
