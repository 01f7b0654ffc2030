package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("cartsync_test")

	c.RecordMutation("cart", "add")
	c.RecordMutation("cart", "add")
	c.RecordStorageFailure("save")
	c.RecordMirror(true)
	c.RecordMirror(false)
	c.RecordDrain(DrainSucceeded, 3)
	c.RecordDrain(DrainFailed, 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(c.Mutations.WithLabelValues("cart", "add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StorageFailures.WithLabelValues("save")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Mirrors.WithLabelValues("failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Drains.WithLabelValues(DrainFailed)))
	assert.Equal(t, float64(3), testutil.ToFloat64(c.DrainedLines))
}

func TestCollector_HandlerExposesMetrics(t *testing.T) {
	c := NewCollector("cartsync_test")
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/cart", http.StatusOK, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cartsync_test_http_requests_total")
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestCloudWatchMetrics_FlushAggregates(t *testing.T) {
	api := &fakeCloudWatch{}
	m := NewCloudWatchMetrics("CartSync", api, zap.NewNop())

	m.RecordMirror(true)
	m.RecordMirror(true)
	m.RecordDrain(DrainSucceeded, 4)

	require.NoError(t, m.Flush(context.Background()))
	require.Len(t, api.inputs, 1)
	assert.Equal(t, "CartSync", aws.ToString(api.inputs[0].Namespace))

	values := map[string]float64{}
	for _, d := range api.inputs[0].MetricData {
		values[aws.ToString(d.MetricName)] += aws.ToFloat64(d.Value)
	}
	assert.Equal(t, float64(2), values["MirrorCall"])
	assert.Equal(t, float64(1), values["Drain"])
	assert.Equal(t, float64(4), values["DrainedLines"])

	require.NoError(t, m.Flush(context.Background()))
	assert.Len(t, api.inputs, 1, "nothing pending means no call")
}

func TestCloudWatchMetrics_FlushFailureKeepsCounts(t *testing.T) {
	api := &fakeCloudWatch{err: errors.New("throttled")}
	m := NewCloudWatchMetrics("CartSync", api, zap.NewNop())
	m.RecordStorageFailure("save")

	assert.Error(t, m.Flush(context.Background()))

	api.err = nil
	require.NoError(t, m.Flush(context.Background()))
	require.Len(t, api.inputs, 2)
	assert.Len(t, api.inputs[1].MetricData, 1)
}

func TestFanout_ForwardsToAll(t *testing.T) {
	a := NewCollector("a")
	b := NewCollector("b")
	f := Fanout{a, b, NopRecorder{}}

	f.RecordMutation("wishlist", "add")

	assert.Equal(t, float64(1), testutil.ToFloat64(a.Mutations.WithLabelValues("wishlist", "add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(b.Mutations.WithLabelValues("wishlist", "add")))
}

func TestTracer_NilIsNoop(t *testing.T) {
	var tracer *Tracer

	ctx, seg := tracer.StartSegment(context.Background(), "drain")
	assert.Nil(t, seg)
	tracer.EndSegment(seg, nil)

	called := false
	err := tracer.TraceFunction(ctx, "step", func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	client := &http.Client{}
	assert.Same(t, client, tracer.Client(client))
}

func TestTracer_TraceFunctionWithoutSegment(t *testing.T) {
	tracer := NewTracer("cartsync")
	boom := errors.New("boom")

	err := tracer.TraceFunction(context.Background(), "step", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
