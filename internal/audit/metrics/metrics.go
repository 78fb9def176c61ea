package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsWritten       *prometheus.CounterVec
	RecordFailures       *prometheus.CounterVec
	DispatchEnqueueDrops prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsWritten: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiplog_audit_records_written_total",
			Help: "Total audit records written, by record kind",
		}, []string{"kind"}),
		RecordFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "shiplog_audit_record_failures_total",
			Help: "Total audit store write failures, by record kind",
		}, []string{"kind"}),
		DispatchEnqueueDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "shiplog_audit_dispatch_enqueue_drops_total",
			Help: "Notable events dropped because the dispatcher inbox was full",
		}),
	}
}

func (m *Metrics) IncWritten(kind string) { m.RecordsWritten.WithLabelValues(kind).Inc() }
func (m *Metrics) IncFailure(kind string) { m.RecordFailures.WithLabelValues(kind).Inc() }
func (m *Metrics) IncEnqueueDrop()        { m.DispatchEnqueueDrops.Inc() }
