package gateway

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/DataDog/kafka-gateway/cluster"
	"github.com/DataDog/kafka-gateway/kafkaadmin"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// DefaultTimeout applies when neither the call nor the cluster Profile
	// sets one.
	DefaultTimeout = 30 * time.Second
	// DefaultStuckGrace is how long a call may run past its deadline before
	// its connection is considered stuck.
	DefaultStuckGrace = time.Second
	// ErrBrokerNotFound is returned by DescribeBroker for unknown broker IDs.
	ErrBrokerNotFound = errors.New("broker not found")
)

// DispatcherConfig holds Dispatcher configuration parameters.
type DispatcherConfig struct {
	// DefaultTimeout overrides the package DefaultTimeout if non-zero.
	DefaultTimeout time.Duration
	// MaxInFlightPerCluster bounds concurrent broker calls per cluster. A
	// call abandoned at its deadline holds its slot until it returns. Zero
	// is unbounded.
	MaxInFlightPerCluster int64
	// StuckGrace overrides DefaultStuckGrace if non-zero.
	StuckGrace time.Duration
	// Optional throttles for read and write operations.
	ReadThrottle  RequestThrottle
	WriteThrottle RequestThrottle
}

// Dispatcher validates operations and executes them against registered
// clusters through pooled connections.
type Dispatcher struct {
	registry *cluster.Registry
	pool     *cluster.Pool
	cfg      DispatcherConfig
	log      *zap.Logger

	mu       sync.Mutex
	inFlight map[string]*semaphore.Weighted
}

// NewDispatcher initializes a Dispatcher. A nil logger disables logging.
func NewDispatcher(registry *cluster.Registry, pool *cluster.Pool, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultTimeout
	}

	if cfg.StuckGrace <= 0 {
		cfg.StuckGrace = DefaultStuckGrace
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		registry: registry,
		pool:     pool,
		cfg:      cfg,
		log:      logger,
		inFlight: make(map[string]*semaphore.Weighted),
	}
}

// Execute runs req against the named cluster. An empty name selects the
// default cluster if only one is registered. timeout bounds the whole call;
// if zero, the cluster Profile's RequestTimeout or the Dispatcher default
// applies.
//
// A call still running at its deadline gets StuckGrace to return. If it
// returns within that window its connection is kept, and a result other than
// a context error is returned as is. Otherwise the connection is evicted.
//
// Execute never retries. A failed call returns a Result with a classified
// Err and no Payload.
func (d *Dispatcher) Execute(ctx context.Context, clusterName string, req Request, timeout time.Duration) Result {
	start := time.Now()

	var op Op
	if req != nil {
		op = req.Op()
	}

	res := Result{Op: op, Cluster: clusterName}

	payload, err := d.execute(ctx, &res, req, timeout)
	if err != nil {
		res.Err = NewError(op, res.Cluster, err)
	} else {
		res.Payload = payload
	}

	elapsed := time.Since(start)
	class := classOK
	if res.Err != nil {
		class = string(res.Err.Class)
		d.log.Warn("operation failed",
			zap.String("cluster", res.Cluster),
			zap.String("op", string(op)),
			zap.String("class", class),
			zap.String("code", res.Err.Code),
			zap.String("error", res.Err.Message),
			zap.Duration("elapsed", elapsed))
	} else {
		d.log.Debug("operation completed",
			zap.String("cluster", res.Cluster),
			zap.String("op", string(op)),
			zap.Duration("elapsed", elapsed))
	}

	OperationCount.WithLabelValues(string(op), res.Cluster, class).Inc()
	OperationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())

	return res
}

// outcome is the result of a broker call.
type outcome struct {
	payload Payload
	err     error
}

func (d *Dispatcher) execute(ctx context.Context, res *Result, req Request, timeout time.Duration) (Payload, error) {
	if req == nil {
		return nil, invalid("no operation given")
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	profile, err := d.registry.Resolve(res.Cluster)
	if err != nil {
		return nil, err
	}
	res.Cluster = profile.Name

	switch {
	case timeout > 0:
	case profile.RequestTimeout > 0:
		timeout = profile.RequestTimeout
	default:
		timeout = d.cfg.DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	throttle := d.cfg.ReadThrottle
	if req.write() {
		throttle = d.cfg.WriteThrottle
	}

	if throttle != nil {
		if err := throttle.Request(ctx); err != nil {
			return nil, err
		}
	}

	release := func() {}
	if sem := d.semaphore(profile.Name); sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		release = func() { sem.Release(1) }
	}

	conn, err := d.pool.Acquire(ctx, profile)
	if err != nil {
		release()
		return nil, err
	}

	d.log.Debug("dispatching operation",
		zap.String("cluster", profile.Name),
		zap.String("op", string(req.Op())),
		zap.Duration("timeout", timeout))

	gauge := InFlight.WithLabelValues(profile.Name)
	gauge.Inc()

	// The call owns the Conn and its in-flight slot until it returns, even if
	// abandoned below. librdkafka calls don't all honor ctx.
	done := make(chan outcome, 1)
	go func() {
		defer release()
		defer gauge.Dec()

		payload, err := run(ctx, profile, conn.Admin(), req)
		switch {
		case err == nil:
			conn.MarkHealthy()
			d.pool.Release(conn)
		case ShouldInvalidate(err):
			d.pool.Invalidate(conn)
		default:
			d.pool.Release(conn)
		}

		done <- outcome{payload: payload, err: err}
	}()

	select {
	case o := <-done:
		return o.payload, o.err
	case <-ctx.Done():
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		// The caller gave up; the connection may be fine.
		conn.MarkUnknown()
		return nil, ctx.Err()
	}

	grace := time.NewTimer(d.cfg.StuckGrace)
	defer grace.Stop()

	select {
	case o := <-done:
		if isContextError(o.err) {
			// The transport answered the deadline; check it before reuse.
			conn.MarkUnknown()
			return nil, ctx.Err()
		}
		return o.payload, o.err
	case <-grace.C:
	}

	d.log.Warn("operation exceeded deadline, evicting connection",
		zap.String("cluster", profile.Name),
		zap.String("op", string(req.Op())),
		zap.Duration("timeout", timeout),
		zap.Duration("grace", d.cfg.StuckGrace))
	d.pool.Evict(conn)

	return nil, ctx.Err()
}

// isContextError reports whether err is the call giving up on its ctx.
// librdkafka reports an expired admin request as a local timeout.
func isContextError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Code() == kafka.ErrTimedOut || kerr.Code() == kafka.ErrTimedOutQueue
	}

	return false
}

func (d *Dispatcher) semaphore(name string) *semaphore.Weighted {
	if d.cfg.MaxInFlightPerCluster <= 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	sem, ok := d.inFlight[name]
	if !ok {
		sem = semaphore.NewWeighted(d.cfg.MaxInFlightPerCluster)
		d.inFlight[name] = sem
	}

	return sem
}

// run maps a Request to its admin calls.
func run(ctx context.Context, profile cluster.Profile, admin kafkaadmin.KafkaAdmin, req Request) (Payload, error) {
	switch r := req.(type) {
	case CreateTopic:
		return createTopic(ctx, admin, r)
	case ListTopics:
		cfg := kafkaadmin.ListTopicsConfig{IncludeInternal: r.IncludeInternal}
		if r.Pattern != "" {
			cfg.Names = []string{r.Pattern}
		}

		names, err := admin.ListTopics(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return TopicList{Topics: names}, nil
	case DeleteTopic:
		return deleteTopic(ctx, admin, r)
	case DescribeTopic:
		return describeTopic(ctx, admin, r)
	case UpdateTopic:
		err := admin.AlterTopicConfigs(ctx, kafkaadmin.AlterTopicConfig{
			Name:         r.Name,
			Config:       r.Configs,
			ValidateOnly: r.ValidateOnly,
		})
		if err != nil {
			return nil, err
		}
		return TopicUpdated{Name: r.Name, Configs: r.Configs, ValidateOnly: r.ValidateOnly}, nil
	case ListConsumerGroups:
		groups, err := admin.ListConsumerGroups(ctx)
		if err != nil {
			return nil, err
		}
		return ConsumerGroupList{Groups: groups}, nil
	case ListConsumerGroupOffsets:
		offsets, err := admin.ListConsumerGroupOffsets(ctx, r.GroupID)
		if err != nil {
			return nil, err
		}
		if offsets == nil {
			offsets = kafkaadmin.GroupOffsets{}
		}
		return ConsumerGroupOffsets{GroupID: r.GroupID, Offsets: offsets}, nil
	case DescribeConsumerGroups:
		groups, err := admin.DescribeConsumerGroups(ctx, r.GroupIDs)
		if err != nil {
			return nil, err
		}
		return ConsumerGroupDescriptions{Groups: groups}, nil
	case DeleteConsumerGroup:
		if err := admin.DeleteConsumerGroup(ctx, r.GroupID); err != nil {
			return nil, err
		}
		return ConsumerGroupDeleted{GroupID: r.GroupID, Deleted: true}, nil
	case DescribeCluster:
		cs, err := admin.DescribeCluster(ctx)
		if err != nil {
			return nil, err
		}
		return ClusterDescription{Name: profile.Name, ClusterState: cs}, nil
	case DescribeBroker:
		return describeBroker(ctx, admin, r)
	default:
		return nil, invalid("unsupported operation %T", req)
	}
}

func createTopic(ctx context.Context, admin kafkaadmin.KafkaAdmin, r CreateTopic) (Payload, error) {
	err := admin.CreateTopic(ctx, kafkaadmin.CreateTopicConfig{
		Name:              r.Name,
		Partitions:        r.Partitions,
		ReplicationFactor: r.ReplicationFactor,
		Config:            r.Configs,
		ValidateOnly:      r.ValidateOnly,
	})

	var kerr kafka.Error
	switch {
	case err == nil:
		return TopicCreated{Name: r.Name, Created: !r.ValidateOnly, ValidateOnly: r.ValidateOnly}, nil
	case r.IfNotExists && errors.As(err, &kerr) && kerr.Code() == kafka.ErrTopicAlreadyExists:
		return TopicCreated{Name: r.Name, ValidateOnly: r.ValidateOnly}, nil
	default:
		return nil, err
	}
}

func deleteTopic(ctx context.Context, admin kafkaadmin.KafkaAdmin, r DeleteTopic) (Payload, error) {
	// Brokers have no dry run for deletions; check existence instead.
	if r.ValidateOnly {
		if _, err := admin.DescribeTopics(ctx, []string{r.Name}); err != nil {
			return nil, err
		}
		return TopicDeleted{Name: r.Name, ValidateOnly: true}, nil
	}

	if err := admin.DeleteTopic(ctx, r.Name); err != nil {
		return nil, err
	}

	return TopicDeleted{Name: r.Name, Deleted: true}, nil
}

func describeTopic(ctx context.Context, admin kafkaadmin.KafkaAdmin, r DescribeTopic) (Payload, error) {
	states, err := admin.DescribeTopics(ctx, []string{r.Name})
	if err != nil {
		return nil, err
	}

	state, ok := states[r.Name]
	if !ok {
		return nil, kafka.NewError(kafka.ErrUnknownTopicOrPart, "topic "+r.Name+" not found", false)
	}

	var configs map[string]string
	if !r.SkipConfigs {
		rc, err := admin.GetConfigs(ctx, "topic", []string{r.Name})
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch topic configs")
		}
		configs = rc[r.Name]
	}

	return topicDescription(state, configs), nil
}

func describeBroker(ctx context.Context, admin kafkaadmin.KafkaAdmin, r DescribeBroker) (Payload, error) {
	cs, err := admin.DescribeCluster(ctx)
	if err != nil {
		return nil, err
	}

	var desc BrokerDescription
	var found bool

	for _, b := range cs.Brokers {
		if b.ID == r.BrokerID {
			desc.BrokerState = b
			desc.Controller = b.ID == cs.ControllerID
			found = true
			break
		}
	}

	if !found {
		return nil, errors.Wrapf(ErrBrokerNotFound, "broker %d", r.BrokerID)
	}

	id := strconv.Itoa(int(r.BrokerID))

	var rc kafkaadmin.ResourceConfigs
	if r.DynamicOnly {
		rc, err = admin.GetDynamicConfigs(ctx, "broker", []string{id})
	} else {
		rc, err = admin.GetConfigs(ctx, "broker", []string{id})
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch broker configs")
	}

	desc.Configs = rc[id]
	if desc.Configs == nil {
		desc.Configs = map[string]string{}
	}

	return desc, nil
}
