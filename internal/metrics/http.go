package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the Prometheus handler for every promauto metric.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}
