package observability

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// PutMetricData accepts at most this many datums per call
const maxDatumsPerCall = 1000

// CloudWatchAPI is the subset of the CloudWatch client the sink uses
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

type metricKey struct {
	name      string
	dimension string
	value     string
}

// CloudWatchMetrics accumulates counters in memory and ships them to
// CloudWatch on Flush. Recording never blocks on the network.
type CloudWatchMetrics struct {
	namespace string
	client    CloudWatchAPI
	logger    *zap.Logger

	mu     sync.Mutex
	counts map[metricKey]float64
}

// NewCloudWatchMetrics creates a new CloudWatch sink
func NewCloudWatchMetrics(namespace string, client CloudWatchAPI, logger *zap.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
		counts:    make(map[metricKey]float64),
	}
}

// RecordMutation counts a cart or wishlist mutation
func (m *CloudWatchMetrics) RecordMutation(aggregate, operation string) {
	m.add(metricKey{"Mutation", "Operation", aggregate + "." + operation}, 1)
}

// RecordStorageFailure counts a failed snapshot write
func (m *CloudWatchMetrics) RecordStorageFailure(operation string) {
	m.add(metricKey{"StorageFailure", "Operation", operation}, 1)
}

// RecordMirror counts a mirror call
func (m *CloudWatchMetrics) RecordMirror(success bool) {
	m.add(metricKey{"MirrorCall", "Status", statusLabel(success)}, 1)
}

// RecordDrain counts a drain attempt
func (m *CloudWatchMetrics) RecordDrain(outcome string, lines int) {
	m.add(metricKey{"Drain", "Outcome", outcome}, 1)
	if outcome == DrainSucceeded {
		m.add(metricKey{"DrainedLines", "Outcome", outcome}, float64(lines))
	}
}

// Flush sends every accumulated counter and resets them. Counters are
// restored if the call fails so the next flush retries them.
func (m *CloudWatchMetrics) Flush(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	m.mu.Lock()
	pending := m.counts
	m.counts = make(map[metricKey]float64)
	m.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	keys := make([]metricKey, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].value < keys[j].value
	})

	now := time.Now()
	data := make([]types.MetricDatum, 0, len(keys))
	for _, k := range keys {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(k.name),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String(k.dimension),
					Value: aws.String(k.value),
				},
			},
			Value:     aws.Float64(pending[k]),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(now),
		})
	}

	for i := 0; i < len(data); i += maxDatumsPerCall {
		end := i + maxDatumsPerCall
		if end > len(data) {
			end = len(data)
		}

		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: data[i:end],
		}
		if _, err := m.client.PutMetricData(ctx, input); err != nil {
			for _, k := range keys[i:] {
				m.add(k, pending[k])
			}
			return fmt.Errorf("failed to send metrics: %w", err)
		}
	}
	return nil
}

// Run flushes every interval until ctx is cancelled, then flushes once more
func (m *CloudWatchMetrics) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := m.Flush(flushCtx); err != nil {
				m.logger.Warn("Final metrics flush failed", zap.Error(err))
			}
			cancel()
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				m.logger.Warn("Metrics flush failed", zap.Error(err))
			}
		}
	}
}

func (m *CloudWatchMetrics) add(k metricKey, v float64) {
	m.mu.Lock()
	m.counts[k] += v
	m.mu.Unlock()
}
