package stub

import (
	"context"
	"fmt"
	"sort"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Close marks the Client closed. Subsequent calls fail with a destroyed
// handle error.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *Client) Ping(context.Context) error {
	if err := c.begin(MethodPing); err != nil {
		return err
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) DescribeCluster(context.Context) (kafkaadmin.ClusterState, error) {
	if err := c.begin(MethodDescribeCluster); err != nil {
		return kafkaadmin.ClusterState{}, err
	}
	defer c.mu.Unlock()

	brokers := make([]kafkaadmin.BrokerState, len(c.brokers))
	copy(brokers, c.brokers)

	return kafkaadmin.ClusterState{
		ClusterID:    c.clusterID,
		ControllerID: c.controllerID,
		Brokers:      brokers,
	}, nil
}

func (c *Client) CreateTopic(_ context.Context, cfg kafkaadmin.CreateTopicConfig) error {
	if err := c.begin(MethodCreateTopic); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if _, exists := c.topics[cfg.Name]; exists {
		return kafka.NewError(kafka.ErrTopicAlreadyExists, fmt.Sprintf("Broker: Topic '%s' already exists.", cfg.Name), false)
	}

	partitions, rf := cfg.Partitions, cfg.ReplicationFactor
	if cfg.ReplicaAssignment != nil {
		partitions = len(cfg.ReplicaAssignment)
		if partitions > 0 {
			rf = len(cfg.ReplicaAssignment[0])
		}
	}

	switch {
	case partitions <= 0:
		return kafka.NewError(kafka.ErrInvalidPartitions, "Broker: Invalid number of partitions", false)
	case rf <= 0 || rf > len(c.brokers):
		return kafka.NewError(kafka.ErrInvalidReplicationFactor,
			fmt.Sprintf("Broker: Replication factor: %d larger than available brokers: %d.", rf, len(c.brokers)), false)
	}

	if cfg.ValidateOnly {
		return nil
	}

	t := &topic{
		partitions:        partitions,
		replicationFactor: rf,
		configs:           make(map[string]string),
	}
	for k, v := range cfg.Config {
		t.configs[k] = v
	}

	c.topics[cfg.Name] = t

	return nil
}

func (c *Client) DeleteTopic(_ context.Context, name string) error {
	if err := c.begin(MethodDeleteTopic); err != nil {
		return err
	}
	defer c.mu.Unlock()

	if _, exists := c.topics[name]; !exists {
		return unknownTopic(name)
	}

	delete(c.topics, name)

	return nil
}

func (c *Client) ListTopics(_ context.Context, cfg kafkaadmin.ListTopicsConfig) ([]string, error) {
	re, err := kafkaadmin.TopicPatterns(cfg.Names...)
	if err != nil {
		return nil, err
	}

	if err := c.begin(MethodListTopics); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var names []string
	for name := range c.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	return kafkaadmin.FilterTopicNames(names, re, cfg.IncludeInternal), nil
}

func (c *Client) DescribeTopics(_ context.Context, names []string) (kafkaadmin.TopicStates, error) {
	if err := c.begin(MethodDescribeTopics); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var tds []kafka.TopicDescription
	for _, name := range names {
		t, exists := c.topics[name]
		if !exists {
			tds = append(tds, kafka.TopicDescription{Name: name, Error: unknownTopic(name)})
			continue
		}

		tds = append(tds, c.describe(name, t))
	}

	return kafkaadmin.TopicStatesFromDescriptions(tds)
}

// describe lays out partition replicas round-robin across brokers, the first
// replica leading.
func (c *Client) describe(name string, t *topic) kafka.TopicDescription {
	nodes := make([]kafka.Node, len(c.brokers))
	for i, b := range c.brokers {
		nodes[i] = kafka.Node{ID: int(b.ID), Host: b.Host, Port: b.Port}
	}

	td := kafka.TopicDescription{Name: name, IsInternal: len(name) > 2 && name[:2] == "__"}

	for p := 0; p < t.partitions; p++ {
		var replicas []kafka.Node
		for r := 0; r < t.replicationFactor; r++ {
			replicas = append(replicas, nodes[(p+r)%len(nodes)])
		}

		leader := replicas[0]
		td.Partitions = append(td.Partitions, kafka.TopicPartitionInfo{
			Partition: p,
			Leader:    &leader,
			Replicas:  replicas,
			Isr:       replicas,
		})
	}

	return td
}

func (c *Client) AlterTopicConfigs(_ context.Context, cfg kafkaadmin.AlterTopicConfig) error {
	if err := c.begin(MethodAlterTopicConfigs); err != nil {
		return err
	}
	defer c.mu.Unlock()

	t, exists := c.topics[cfg.Name]
	if !exists {
		return unknownTopic(cfg.Name)
	}

	if cfg.ValidateOnly {
		return nil
	}

	for k, v := range cfg.Config {
		t.configs[k] = v
	}

	return nil
}

func (c *Client) GetConfigs(_ context.Context, kind string, names []string) (kafkaadmin.ResourceConfigs, error) {
	return c.getConfigs(MethodGetConfigs, kind, names, false)
}

func (c *Client) GetDynamicConfigs(_ context.Context, kind string, names []string) (kafkaadmin.ResourceConfigs, error) {
	return c.getConfigs(MethodGetDynamicConfigs, kind, names, true)
}

func (c *Client) getConfigs(method, kind string, names []string, onlyDynamic bool) (kafkaadmin.ResourceConfigs, error) {
	if len(names) == 0 {
		return nil, kafkaadmin.ErrNoResourceNames
	}

	if err := c.begin(method); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	rc := kafkaadmin.ResourceConfigs{}

	for _, name := range names {
		rc[name] = map[string]string{}

		switch kind {
		case "topic":
			t, exists := c.topics[name]
			if !exists {
				return nil, unknownTopic(name)
			}

			if !onlyDynamic {
				for k, v := range DefaultTopicConfigs {
					rc.AddConfig(name, k, v)
				}
			}
			for k, v := range t.configs {
				rc.AddConfig(name, k, v)
			}
		case "broker":
			b, exists := c.brokerByID(name)
			if !exists {
				return nil, kafka.NewError(kafka.ErrInvalidArg, fmt.Sprintf("Local: Invalid argument or configuration: broker %s", name), false)
			}

			if !onlyDynamic {
				rc.AddConfig(name, "broker.id", name)
				rc.AddConfig(name, "broker.rack", b.Rack)
				rc.AddConfig(name, "num.partitions", "1")
			}
		default:
			return nil, kafkaadmin.ErrInvalidResourceType
		}
	}

	return rc, nil
}

func (c *Client) ListConsumerGroups(context.Context) ([]kafkaadmin.ConsumerGroupListing, error) {
	if err := c.begin(MethodListConsumerGroups); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var out = []kafkaadmin.ConsumerGroupListing{}
	for id, g := range c.groups {
		out = append(out, kafkaadmin.ConsumerGroupListing{GroupID: id, State: g.state})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].GroupID < out[j].GroupID
	})

	return out, nil
}

// ListConsumerGroupOffsets returns an empty GroupOffsets for unknown groups,
// as brokers do.
func (c *Client) ListConsumerGroupOffsets(_ context.Context, groupID string) (kafkaadmin.GroupOffsets, error) {
	if err := c.begin(MethodListConsumerGroupOffsets); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	out := kafkaadmin.GroupOffsets{}

	g, exists := c.groups[groupID]
	if !exists {
		return out, nil
	}

	for t, ps := range g.offsets {
		for p, o := range ps {
			out.AddOffset(t, p, o)
		}
	}

	return out, nil
}

// DescribeConsumerGroups reports unknown groups in the Dead state, as
// brokers do.
func (c *Client) DescribeConsumerGroups(_ context.Context, groupIDs []string) ([]kafkaadmin.ConsumerGroupDescription, error) {
	if err := c.begin(MethodDescribeConsumerGroups); err != nil {
		return nil, err
	}
	defer c.mu.Unlock()

	var out = make([]kafkaadmin.ConsumerGroupDescription, 0, len(groupIDs))
	for _, id := range groupIDs {
		desc := kafkaadmin.ConsumerGroupDescription{
			GroupID:     id,
			State:       "Dead",
			Coordinator: c.brokers[0],
			Members:     []kafkaadmin.GroupMemberState{},
		}

		if g, exists := c.groups[id]; exists {
			desc.State = g.state
			desc.PartitionAssignor = "range"
			desc.Members = append(desc.Members, g.members...)
		}

		out = append(out, desc)
	}

	return out, nil
}

func (c *Client) DeleteConsumerGroup(_ context.Context, groupID string) error {
	if err := c.begin(MethodDeleteConsumerGroup); err != nil {
		return err
	}
	defer c.mu.Unlock()

	g, exists := c.groups[groupID]
	if !exists {
		return kafka.NewError(kafkaadmin.ErrCodeGroupIDNotFound, "Broker: The group id does not exist", false)
	}

	if len(g.members) > 0 {
		return kafka.NewError(kafka.ErrNonEmptyGroup, "Broker: The group is not empty", false)
	}

	delete(c.groups, groupID)

	return nil
}
