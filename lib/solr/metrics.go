package solr

import (
	"errors"
	"fmt"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// observeRequest records the result and duration of a dispatched request
func observeRequest(req Request, start time.Time, err error) {
	result := "success"
	var solrErr *SolrError
	if errors.As(err, &solrErr) {
		result = solrErr.Kind.String()
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`dsolr_solr_requests_total{role=%q,method=%q,result=%q}`,
		req.Role, req.Method, result)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`dsolr_solr_request_duration_seconds{role=%q}`,
		req.Role)).UpdateDuration(start)
}

// observeRetry counts a retried attempt
func observeRetry(req Request) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`dsolr_solr_retries_total{role=%q,method=%q}`,
		req.Role, req.Method)).Inc()
}
