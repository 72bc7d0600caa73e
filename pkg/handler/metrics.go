package handler

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts the requests handled and the upload sessions moved
// through their lifecycle.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	UploadsInitiated prometheus.Counter
	PartsPresigned   prometheus.Counter
	UploadsCompleted prometheus.Counter
	UploadsAborted   prometheus.Counter
}

func newMetrics() Metrics {
	return Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploadd_requests_total",
			Help: "Total number of requests served by endpoint.",
		}, []string{"endpoint"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uploadd_errors_total",
			Help: "Total number of error responses by error code.",
		}, []string{"code"}),
		UploadsInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadd_uploads_initiated_total",
			Help: "Total number of multipart upload sessions initiated.",
		}),
		PartsPresigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadd_parts_presigned_total",
			Help: "Total number of part upload URLs presigned.",
		}),
		UploadsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadd_uploads_completed_total",
			Help: "Total number of multipart upload sessions completed.",
		}),
		UploadsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uploadd_uploads_aborted_total",
			Help: "Total number of multipart upload sessions aborted.",
		}),
	}
}

// RegisterMetrics registers the handler's counters with registry.
func (handler *Handler) RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(
		handler.Metrics.RequestsTotal,
		handler.Metrics.ErrorsTotal,
		handler.Metrics.UploadsInitiated,
		handler.Metrics.PartsPresigned,
		handler.Metrics.UploadsCompleted,
		handler.Metrics.UploadsAborted,
	)
}
