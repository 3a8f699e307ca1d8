// Package observability publishes admission-path counters to CloudWatch.
// Metrics are strictly best-effort: a publish failure is logged by the
// caller's logger if at all, and never affects the request.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names recorded by the admission path.
const (
	MetricCommentsAccepted  = "CommentsAccepted"
	MetricCommentsRejected  = "CommentsRejected"
	MetricRateLimitRejected = "RateLimitRejected"
	MetricCacheHit          = "CacheHit"
	MetricCacheMiss         = "CacheMiss"
	MetricCaptchaFailed     = "CaptchaFailed"
)

// Metrics publishes counters under a namespace. A nil client disables
// publishing, which keeps local development quiet.
type Metrics struct {
	client    *cloudwatch.Client
	namespace string
}

// NewMetrics creates a metrics publisher.
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	return &Metrics{client: client, namespace: namespace}
}

// Count publishes a count metric with optional dimensions given as
// alternating name/value pairs.
func (m *Metrics) Count(ctx context.Context, name string, value float64, dims ...string) error {
	if m == nil || m.client == nil {
		return nil
	}

	datum := types.MetricDatum{
		MetricName: aws.String(name),
		Timestamp:  aws.Time(time.Now()),
		Unit:       types.StandardUnitCount,
		Value:      aws.Float64(value),
	}
	for i := 0; i+1 < len(dims); i += 2 {
		datum.Dimensions = append(datum.Dimensions, types.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: []types.MetricDatum{datum},
	})
	return err
}

// Increment publishes a count of one.
func (m *Metrics) Increment(ctx context.Context, name string, dims ...string) error {
	return m.Count(ctx, name, 1, dims...)
}
