package kafkaadmin

import (
	"context"
	"sort"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// BrokerState holds metadata that describes a broker.
type BrokerState struct {
	ID   int32  `json:"id"`
	Host string `json:"host"`
	Port int    `json:"port"`
	Rack string `json:"rack,omitempty"`
}

// ClusterState describes a cluster and its live brokers.
type ClusterState struct {
	ClusterID    string        `json:"cluster_id"`
	ControllerID int32         `json:"controller_id"`
	Brokers      []BrokerState `json:"brokers"`
}

// DescribeCluster returns the cluster ID, the active controller and all live
// brokers ordered by ID.
func (c Client) DescribeCluster(ctx context.Context) (ClusterState, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return ClusterState{}, err
	}

	res, err := c.c.DescribeCluster(ctx, kafka.SetAdminRequestTimeout(to))
	if err != nil {
		return ClusterState{}, err
	}

	return ClusterStateFromResult(res), nil
}

// ClusterStateFromResult converts a DescribeCluster result into a
// ClusterState. The ControllerID is NoLeader if no controller is known.
func ClusterStateFromResult(res kafka.DescribeClusterResult) ClusterState {
	cs := ClusterState{
		ControllerID: NoLeader,
		Brokers:      make([]BrokerState, 0, len(res.Nodes)),
	}

	if res.ClusterID != nil {
		cs.ClusterID = *res.ClusterID
	}

	if res.Controller != nil {
		cs.ControllerID = int32(res.Controller.ID)
	}

	for _, n := range res.Nodes {
		cs.Brokers = append(cs.Brokers, brokerStateFromNode(&n))
	}

	sort.Slice(cs.Brokers, func(i, j int) bool {
		return cs.Brokers[i].ID < cs.Brokers[j].ID
	})

	return cs
}

// Ping performs a broker metadata lookup to verify the cluster is reachable
// with the client's credentials.
func (c Client) Ping(ctx context.Context) error {
	_, err := c.fetchBrokers(ctx)
	return err
}

// fetchBrokers performs a ckg broker metadata lookup.
func (c Client) fetchBrokers(ctx context.Context) ([]kafka.BrokerMetadata, error) {
	to, err := c.requestTimeout(ctx)
	if err != nil {
		return nil, err
	}

	// confluent-kafka-go loads both topic and broker metadata in a single call.
	// This is a hack to avoid looking up topic metadata.
	ts := ""
	md, err := c.c.GetMetadata(&ts, false, int(to.Milliseconds()))
	if err != nil {
		return nil, ErrorFetchingMetadata{Err: err}
	}

	return md.Brokers, nil
}

func brokerStateFromNode(n *kafka.Node) BrokerState {
	if n == nil {
		return BrokerState{ID: NoLeader}
	}

	bs := BrokerState{
		ID:   int32(n.ID),
		Host: n.Host,
		Port: n.Port,
	}

	if n.Rack != nil {
		bs.Rack = *n.Rack
	}

	return bs
}
