package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/gateway"
	"github.com/DataDog/kafka-gateway/kafkaadmin"
	"github.com/DataDog/kafka-gateway/kafkaadmin/stub"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, cfg Config, names ...string) *Server {
	t.Helper()

	if len(names) == 0 {
		names = []string{"prod"}
	}

	var profiles []cluster.Profile
	for _, n := range names {
		profiles = append(profiles, cluster.Profile{Name: n, BootstrapServers: []string{n + ":9092"}})
	}

	registry, err := cluster.NewRegistry(profiles...)
	require.Nil(t, err)

	factory := func(kafkaadmin.Config) (kafkaadmin.KafkaAdmin, error) {
		return stub.NewClient(), nil
	}

	pool := cluster.NewPool(factory, cluster.PoolConfig{}, nil)
	t.Cleanup(pool.Close)

	d := gateway.NewDispatcher(registry, pool, gateway.DispatcherConfig{}, nil)

	return New(d, registry, cfg, nil)
}

// call invokes a tool and returns its decoded JSON text and error flag.
func call(t *testing.T, s *Server, tool string, args map[string]interface{}) (map[string]interface{}, bool) {
	t.Helper()

	h, ok := s.handlers[tool]
	require.True(t, ok, "tool %s not registered", tool)

	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := h(context.Background(), req)
	require.Nil(t, err)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]interface{}
	require.Nil(t, json.Unmarshal([]byte(text.Text), &out))

	return out, res.IsError
}

func TestTools(t *testing.T) {
	s := newTestServer(t, Config{})

	expected := []string{
		"list_clusters",
		"describe_cluster",
		"describe_broker",
		"create_topic",
		"list_topics",
		"describe_topic",
		"update_topic",
		"delete_topic",
		"list_consumer_groups",
		"list_consumer_group_offsets",
		"describe_consumer_groups",
		"delete_consumer_group",
	}

	assert.Equal(t, expected, s.Tools())
}

func TestToolsReadOnly(t *testing.T) {
	s := newTestServer(t, Config{ReadOnly: true})

	for _, name := range s.Tools() {
		assert.NotContains(t, []string{"create_topic", "update_topic", "delete_topic", "delete_consumer_group"}, name)
	}

	assert.Contains(t, s.Tools(), "list_topics")
}

func TestToolDefinitions(t *testing.T) {
	for _, def := range toolDefs {
		tool := def.tool()
		assert.Equal(t, string(def.op), tool.Name)
		assert.NotEmpty(t, tool.Description, def.op)
		assert.Contains(t, tool.InputSchema.Properties, argCluster, def.op)
		assert.Contains(t, tool.InputSchema.Properties, argTimeoutMs, def.op)
		assert.NotContains(t, tool.InputSchema.Required, argCluster, def.op)
	}
}

func TestListClusters(t *testing.T) {
	s := newTestServer(t, Config{}, "prod", "dev")

	out, isErr := call(t, s, "list_clusters", nil)
	require.False(t, isErr)

	data := out["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"dev", "prod"}, data["clusters"])
	assert.NotContains(t, data, "default")

	s = newTestServer(t, Config{})
	out, _ = call(t, s, "list_clusters", nil)
	assert.Equal(t, "prod", out["data"].(map[string]interface{})["default"])
}

func TestCreateAndDescribeTopic(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "create_topic", map[string]interface{}{
		"name":               "orders",
		"num_partitions":     float64(3),
		"replication_factor": float64(1),
		"configs":            map[string]interface{}{"retention.ms": float64(3600000), "cleanup.policy": "compact"},
	})
	require.False(t, isErr, "%v", out)

	expected := map[string]interface{}{"name": "orders", "created": true}
	assert.Equal(t, expected, out["data"])

	out, isErr = call(t, s, "describe_topic", map[string]interface{}{"topic": "orders"})
	require.False(t, isErr)

	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["partitions"])
	assert.Len(t, data["partition_states"], 3)

	configs := data["configs"].(map[string]interface{})
	assert.Equal(t, "3600000", configs["retention.ms"])
	assert.Equal(t, "compact", configs["cleanup.policy"])

	out, _ = call(t, s, "describe_topic", map[string]interface{}{"topic": "orders", "include_configs": false})
	assert.NotContains(t, out["data"], "configs")
}

func TestCreateTopicDefaults(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "create_topic", map[string]interface{}{"name": "orders"})
	require.False(t, isErr, "%v", out)

	out, _ = call(t, s, "describe_topic", map[string]interface{}{"topic": "orders", "include_configs": false})
	data := out["data"].(map[string]interface{})
	assert.Equal(t, float64(defaultPartitions), data["partitions"])
	assert.Equal(t, float64(defaultReplicationFactor), data["replication_factor"])
}

func TestErrorEnvelope(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "delete_topic", map[string]interface{}{"topic": "missing"})
	require.True(t, isErr)
	require.NotContains(t, out, "data")

	e := out["error"].(map[string]interface{})
	assert.Equal(t, "not_found", e["class"])
	assert.Equal(t, "topic_not_found", e["code"])
	assert.Equal(t, false, e["retriable"])
	assert.Equal(t, "delete_topic", e["op"])
	assert.Equal(t, "prod", e["cluster"])
	assert.NotEmpty(t, e["message"])
}

func TestArgumentErrors(t *testing.T) {
	s := newTestServer(t, Config{})

	tests := []struct {
		tool string
		args map[string]interface{}
	}{
		{"create_topic", map[string]interface{}{}},
		{"create_topic", map[string]interface{}{"name": "orders", "num_partitions": 1.5}},
		{"create_topic", map[string]interface{}{"name": "orders", "if_not_exists": "yes"}},
		{"create_topic", map[string]interface{}{"name": "orders", "configs": "retention.ms=1"}},
		{"create_topic", map[string]interface{}{"name": "orders", "configs": map[string]interface{}{"a": []interface{}{}}}},
		{"describe_broker", map[string]interface{}{}},
		{"describe_broker", map[string]interface{}{"broker_id": float64(-1)}},
		{"describe_consumer_groups", map[string]interface{}{"group_ids": []interface{}{"a", 1.0}}},
		{"describe_consumer_groups", map[string]interface{}{"group_ids": []interface{}{}}},
		{"list_topics", map[string]interface{}{"cluster": 1.0}},
		{"list_topics", map[string]interface{}{"timeout_ms": float64(-5)}},
		{"update_topic", map[string]interface{}{"topic": "orders"}},
	}

	for _, tt := range tests {
		out, isErr := call(t, s, tt.tool, tt.args)
		require.True(t, isErr, "%s %v", tt.tool, tt.args)

		e := out["error"].(map[string]interface{})
		assert.Equal(t, "fatal", e["class"], "%s %v", tt.tool, tt.args)
		assert.Equal(t, "invalid_request", e["code"], "%s %v", tt.tool, tt.args)
		assert.Equal(t, tt.tool, e["op"])
	}
}

func TestUnknownCluster(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "list_topics", map[string]interface{}{"cluster": "staging"})
	require.True(t, isErr)

	e := out["error"].(map[string]interface{})
	assert.Equal(t, "not_found", e["class"])
	assert.Equal(t, "cluster_not_found", e["code"])
}

func TestConsumerGroupTools(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "list_consumer_groups", nil)
	require.False(t, isErr)
	assert.Equal(t, map[string]interface{}{"groups": []interface{}{}}, out["data"])

	out, isErr = call(t, s, "list_consumer_group_offsets", map[string]interface{}{"group_id": "billing"})
	require.False(t, isErr)
	assert.Equal(t, map[string]interface{}{"group_id": "billing", "offsets": map[string]interface{}{}}, out["data"])

	out, isErr = call(t, s, "describe_consumer_groups", map[string]interface{}{"group_ids": []interface{}{"billing"}})
	require.False(t, isErr)
	groups := out["data"].(map[string]interface{})["groups"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "Dead", groups[0].(map[string]interface{})["state"])

	out, isErr = call(t, s, "delete_consumer_group", map[string]interface{}{"group_id": "billing"})
	require.True(t, isErr)
	assert.Equal(t, "group_not_found", out["error"].(map[string]interface{})["code"])
}

func TestDescribeClusterTools(t *testing.T) {
	s := newTestServer(t, Config{})

	out, isErr := call(t, s, "describe_cluster", nil)
	require.False(t, isErr)

	data := out["data"].(map[string]interface{})
	assert.Equal(t, "prod", data["name"])
	assert.Equal(t, "stub-cluster", data["cluster_id"])
	assert.Equal(t, float64(1001), data["controller_id"])
	assert.Len(t, data["brokers"], 3)

	// Hosts commonly send numbers as strings.
	out, isErr = call(t, s, "describe_broker", map[string]interface{}{"broker_id": "1002"})
	require.False(t, isErr, "%v", out)

	data = out["data"].(map[string]interface{})
	assert.Equal(t, float64(1002), data["id"])
	assert.Equal(t, "host-b", data["host"])
	assert.Equal(t, false, data["controller"])
}
