// Package stub provides an in-memory kafkaadmin.KafkaAdmin that behaves like
// a small Kafka cluster.
package stub

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

var _ kafkaadmin.KafkaAdmin = (*Client)(nil)

// Client is a stubbed implementation of kafkaadmin.KafkaAdmin. It is safe for
// concurrent use.
type Client struct {
	mu sync.Mutex

	clusterID    string
	controllerID int32
	brokers      []kafkaadmin.BrokerState
	topics       map[string]*topic
	groups       map[string]*group

	// Injected behavior.
	delay  time.Duration
	errs   map[string]error
	closed bool
	calls  map[string]int
}

type topic struct {
	partitions        int
	replicationFactor int
	configs           map[string]string
}

type group struct {
	state   string
	members []kafkaadmin.GroupMemberState
	offsets kafkaadmin.GroupOffsets
}

// Method names accepted by SetError and Calls.
const (
	MethodPing                     = "Ping"
	MethodDescribeCluster          = "DescribeCluster"
	MethodCreateTopic              = "CreateTopic"
	MethodDeleteTopic              = "DeleteTopic"
	MethodListTopics               = "ListTopics"
	MethodDescribeTopics           = "DescribeTopics"
	MethodAlterTopicConfigs        = "AlterTopicConfigs"
	MethodGetConfigs               = "GetConfigs"
	MethodGetDynamicConfigs        = "GetDynamicConfigs"
	MethodListConsumerGroups       = "ListConsumerGroups"
	MethodListConsumerGroupOffsets = "ListConsumerGroupOffsets"
	MethodDescribeConsumerGroups   = "DescribeConsumerGroups"
	MethodDeleteConsumerGroup      = "DeleteConsumerGroup"
)

// DefaultTopicConfigs are reported by GetConfigs for every topic alongside
// the configs set on it.
var DefaultTopicConfigs = map[string]string{
	"cleanup.policy":      "delete",
	"min.insync.replicas": "1",
	"retention.ms":        "604800000",
}

// NewClient returns a Client backed by three brokers (1001-1003) and no
// topics or groups.
func NewClient() *Client {
	return &Client{
		clusterID:    "stub-cluster",
		controllerID: 1001,
		brokers: []kafkaadmin.BrokerState{
			{ID: 1001, Host: "host-a", Port: 9092, Rack: "a"},
			{ID: 1002, Host: "host-b", Port: 9092, Rack: "b"},
			{ID: 1003, Host: "host-c", Port: 9092, Rack: "c"},
		},
		topics: make(map[string]*topic),
		groups: make(map[string]*group),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

// SetDelay makes every call block for d before doing any work. The delay
// ignores the call context, like a librdkafka call stuck on a dead transport.
func (c *Client) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

// SetError makes every call of the named method fail with err until cleared
// with a nil err.
func (c *Client) SetError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		delete(c.errs, method)
		return
	}
	c.errs[method] = err
}

// Calls returns the number of times the named method was called.
func (c *Client) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Closed reports whether Close was called.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// AddTopic registers a topic as if it had been created with CreateTopic.
func (c *Client) AddTopic(name string, partitions, replicationFactor int, configs map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &topic{
		partitions:        partitions,
		replicationFactor: replicationFactor,
		configs:           make(map[string]string),
	}
	for k, v := range configs {
		t.configs[k] = v
	}

	c.topics[name] = t
}

// AddGroup registers a consumer group. A group with members is Stable,
// otherwise Empty.
func (c *Client) AddGroup(id string, members []kafkaadmin.GroupMemberState, offsets kafkaadmin.GroupOffsets) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := &group{
		state:   "Empty",
		members: members,
		offsets: offsets,
	}
	if len(members) > 0 {
		g.state = "Stable"
	}
	if g.offsets == nil {
		g.offsets = kafkaadmin.GroupOffsets{}
	}

	c.groups[id] = g
}

// begin records the call, applies the injected delay and returns the
// injected error, if any. The lock is held on return when err is nil.
func (c *Client) begin(method string) error {
	c.mu.Lock()
	c.calls[method]++
	delay := c.delay
	c.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return kafka.NewError(kafka.ErrDestroy, "Local: Broker handle destroyed", false)
	}
	if err, ok := c.errs[method]; ok {
		c.mu.Unlock()
		return err
	}

	return nil
}

func (c *Client) brokerByID(id string) (kafkaadmin.BrokerState, bool) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return kafkaadmin.BrokerState{}, false
	}

	for _, b := range c.brokers {
		if int(b.ID) == n {
			return b, true
		}
	}

	return kafkaadmin.BrokerState{}, false
}

func unknownTopic(name string) kafka.Error {
	return kafka.NewError(kafka.ErrUnknownTopicOrPart, fmt.Sprintf("Broker: Unknown topic or partition: %s", name), false)
}
