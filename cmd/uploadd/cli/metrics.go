package cli

import (
	"net/http"
	"os"
	"strings"

	"github.com/goji/httpauth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/castkit/uploadd/pkg/handler"
	"github.com/castkit/uploadd/pkg/objstore"
)

var MetricsOpenConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "uploadd_connections_open",
	Help: "Current number of open connections.",
})

// SetupMetrics mounts the Prometheus endpoint and registers the store's
// and handler's collectors. Setting UPLOADD_METRICS_AUTH to "user:pass"
// puts the endpoint behind HTTP basic auth.
func SetupMetrics(globalMux *http.ServeMux, store *objstore.Store, uploadHandler *handler.Handler) {
	prometheus.MustRegister(MetricsOpenConnections)
	store.RegisterMetrics(prometheus.DefaultRegisterer)
	uploadHandler.RegisterMetrics(prometheus.DefaultRegisterer)

	var metricsHandler http.Handler = promhttp.Handler()
	auth := os.Getenv("UPLOADD_METRICS_AUTH")
	if auth != "" {
		parts := strings.SplitN(auth, ":", 2)
		if len(parts) != 2 {
			logger.Fatal().Msg("UPLOADD_METRICS_AUTH must be two values separated by a colon")
		}

		metricsHandler = httpauth.SimpleBasicAuth(parts[0], parts[1])(metricsHandler)
	}

	globalMux.Handle(Flags.MetricsPath, metricsHandler)
}
