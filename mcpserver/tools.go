package mcpserver

import (
	"math"

	"github.com/DataDog/kafka-gateway/gateway"

	"github.com/mark3labs/mcp-go/mcp"
)

// Arguments common to every operation tool.
const (
	argCluster   = "cluster"
	argTimeoutMs = "timeout_ms"
)

// Defaults for create_topic.
const (
	defaultPartitions        = 3
	defaultReplicationFactor = 3
)

// toolDef binds an MCP tool to the gateway operation it runs.
type toolDef struct {
	op    gateway.Op
	write bool
	opts  []mcp.ToolOption
	build func(arguments) (gateway.Request, error)
}

func clusterOpts() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString(argCluster,
			mcp.Description("Name of the cluster to run against. May be omitted if only one cluster is configured."),
		),
		mcp.WithNumber(argTimeoutMs,
			mcp.Description("Overall timeout in milliseconds. Defaults to the cluster's request timeout."),
			mcp.Min(0),
		),
	}
}

var toolDefs = []toolDef{
	{
		op: gateway.OpDescribeCluster,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Fetch cluster-wide metadata: the cluster ID, the controller ID and the list of live brokers."),
		},
		build: func(arguments) (gateway.Request, error) {
			return gateway.DescribeCluster{}, nil
		},
	},
	{
		op: gateway.OpDescribeBroker,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Fetch the address, rack and configuration of a broker."),
			mcp.WithNumber("broker_id", mcp.Required(), mcp.Description("ID of the broker to describe."), mcp.Min(0)),
			mcp.WithBoolean("dynamic_only", mcp.Description("Only return dynamically set broker configs.")),
		},
		build: func(a arguments) (gateway.Request, error) {
			if !a.has("broker_id") {
				return nil, invalidArg("broker_id", "is required")
			}

			id, err := a.integer("broker_id", 0)
			if err != nil {
				return nil, err
			}
			if id > math.MaxInt32 {
				return nil, invalidArg("broker_id", "out of range")
			}

			dynamic, err := a.boolean("dynamic_only", false)
			if err != nil {
				return nil, err
			}

			return gateway.DescribeBroker{BrokerID: int32(id), DynamicOnly: dynamic}, nil
		},
	},
	{
		op:    gateway.OpCreateTopic,
		write: true,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Create a topic. Use if_not_exists to make the call a no-op when the topic exists. " +
				"For important topics set retention.ms, cleanup.policy and min.insync.replicas explicitly; " +
				"the replication factor must be at least min.insync.replicas."),
			mcp.WithString("name", mcp.Required(), mcp.Description("Topic name.")),
			mcp.WithNumber("num_partitions", mcp.Description("Number of partitions."), mcp.DefaultNumber(defaultPartitions), mcp.Min(1)),
			mcp.WithNumber("replication_factor", mcp.Description("Replication factor."), mcp.DefaultNumber(defaultReplicationFactor), mcp.Min(1)),
			mcp.WithBoolean("if_not_exists", mcp.Description("Succeed without changes if the topic already exists.")),
			mcp.WithBoolean("validate_only", mcp.Description("Validate the request on the controller without creating the topic.")),
			mcp.WithObject("configs", mcp.Description("Topic config overrides, e.g. {\"retention.ms\": \"86400000\"}.")),
		},
		build: func(a arguments) (gateway.Request, error) {
			var r gateway.CreateTopic
			var err error

			if r.Name, err = a.requiredStr("name"); err != nil {
				return nil, err
			}
			if r.Partitions, err = a.integer("num_partitions", defaultPartitions); err != nil {
				return nil, err
			}
			if r.ReplicationFactor, err = a.integer("replication_factor", defaultReplicationFactor); err != nil {
				return nil, err
			}
			if r.IfNotExists, err = a.boolean("if_not_exists", false); err != nil {
				return nil, err
			}
			if r.ValidateOnly, err = a.boolean("validate_only", false); err != nil {
				return nil, err
			}
			if r.Configs, err = a.configs("configs"); err != nil {
				return nil, err
			}

			return r, nil
		},
	},
	{
		op: gateway.OpListTopics,
		opts: []mcp.ToolOption{
			mcp.WithDescription("List topic names, sorted. Internal topics are omitted unless include_internal is set."),
			mcp.WithString("pattern", mcp.Description("Topic name or regular expression to filter by.")),
			mcp.WithBoolean("include_internal", mcp.Description("Include internal topics such as __consumer_offsets.")),
		},
		build: func(a arguments) (gateway.Request, error) {
			pattern, err := a.str("pattern")
			if err != nil {
				return nil, err
			}

			internal, err := a.boolean("include_internal", false)
			if err != nil {
				return nil, err
			}

			return gateway.ListTopics{Pattern: pattern, IncludeInternal: internal}, nil
		},
	},
	{
		op: gateway.OpDescribeTopic,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Fetch the partitions, leaders, replicas, in-sync replicas and configuration of a topic."),
			mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name.")),
			mcp.WithBoolean("include_configs", mcp.Description("Include the topic configuration."), mcp.DefaultBool(true)),
		},
		build: func(a arguments) (gateway.Request, error) {
			name, err := a.requiredStr("topic")
			if err != nil {
				return nil, err
			}

			configs, err := a.boolean("include_configs", true)
			if err != nil {
				return nil, err
			}

			return gateway.DescribeTopic{Name: name, SkipConfigs: !configs}, nil
		},
	},
	{
		op:    gateway.OpUpdateTopic,
		write: true,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Set configs on a topic. Configs not named are left unchanged."),
			mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name.")),
			mcp.WithObject("configs", mcp.Required(), mcp.Description("Config names to new values.")),
			mcp.WithBoolean("validate_only", mcp.Description("Validate the change without applying it.")),
		},
		build: func(a arguments) (gateway.Request, error) {
			var r gateway.UpdateTopic
			var err error

			if r.Name, err = a.requiredStr("topic"); err != nil {
				return nil, err
			}
			if r.Configs, err = a.configs("configs"); err != nil {
				return nil, err
			}
			if r.ValidateOnly, err = a.boolean("validate_only", false); err != nil {
				return nil, err
			}

			return r, nil
		},
	},
	{
		op:    gateway.OpDeleteTopic,
		write: true,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Delete a topic and all of its data. Use validate_only to check the topic exists without deleting it."),
			mcp.WithString("topic", mcp.Required(), mcp.Description("Topic name.")),
			mcp.WithBoolean("validate_only", mcp.Description("Only check that the topic can be deleted.")),
			mcp.WithDestructiveHintAnnotation(true),
		},
		build: func(a arguments) (gateway.Request, error) {
			name, err := a.requiredStr("topic")
			if err != nil {
				return nil, err
			}

			validate, err := a.boolean("validate_only", false)
			if err != nil {
				return nil, err
			}

			return gateway.DeleteTopic{Name: name, ValidateOnly: validate}, nil
		},
	},
	{
		op: gateway.OpListConsumerGroups,
		opts: []mcp.ToolOption{
			mcp.WithDescription("List all consumer groups known to the cluster with their state."),
		},
		build: func(arguments) (gateway.Request, error) {
			return gateway.ListConsumerGroups{}, nil
		},
	},
	{
		op: gateway.OpListConsumerGroupOffsets,
		opts: []mcp.ToolOption{
			mcp.WithDescription("List the committed offsets of a consumer group by topic and partition."),
			mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID.")),
		},
		build: func(a arguments) (gateway.Request, error) {
			id, err := a.requiredStr("group_id")
			if err != nil {
				return nil, err
			}
			return gateway.ListConsumerGroupOffsets{GroupID: id}, nil
		},
	},
	{
		op: gateway.OpDescribeConsumerGroups,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Describe consumer groups: state, coordinator, members and their partition assignments."),
			mcp.WithArray("group_ids",
				mcp.Required(),
				mcp.Description("Consumer group IDs to describe."),
				mcp.Items(map[string]interface{}{"type": "string"}),
			),
		},
		build: func(a arguments) (gateway.Request, error) {
			ids, err := a.strings("group_ids")
			if err != nil {
				return nil, err
			}
			return gateway.DescribeConsumerGroups{GroupIDs: ids}, nil
		},
	},
	{
		op:    gateway.OpDeleteConsumerGroup,
		write: true,
		opts: []mcp.ToolOption{
			mcp.WithDescription("Delete a consumer group and its committed offsets. The group must have no active members."),
			mcp.WithString("group_id", mcp.Required(), mcp.Description("Consumer group ID.")),
			mcp.WithDestructiveHintAnnotation(true),
		},
		build: func(a arguments) (gateway.Request, error) {
			id, err := a.requiredStr("group_id")
			if err != nil {
				return nil, err
			}
			return gateway.DeleteConsumerGroup{GroupID: id}, nil
		},
	},
}

// tool builds the mcp.Tool for a toolDef.
func (t toolDef) tool() mcp.Tool {
	var opts = make([]mcp.ToolOption, 0, len(t.opts)+3)
	opts = append(opts, t.opts...)
	opts = append(opts, clusterOpts()...)
	opts = append(opts, mcp.WithReadOnlyHintAnnotation(!t.write))

	return mcp.NewTool(string(t.op), opts...)
}
