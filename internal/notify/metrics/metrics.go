package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	NotificationsCreated *prometheus.CounterVec
	DispatchRetries      prometheus.Counter
	DispatchFailures     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiplog_notifications_created_total",
			Help: "Notifications created by the dispatcher, by category",
		}, []string{"category"}),
		DispatchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shiplog_notify_dispatch_retries_total",
			Help: "Transient dispatch failures that were retried",
		}),
		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shiplog_notify_dispatch_failures_total",
			Help: "Dispatch attempts abandoned after exhausting retries",
		}),
	}
}

func (m *Metrics) IncCreated(category string) { m.NotificationsCreated.WithLabelValues(category).Inc() }
func (m *Metrics) IncRetry()                  { m.DispatchRetries.Inc() }
func (m *Metrics) IncFailure()                { m.DispatchFailures.Inc() }
